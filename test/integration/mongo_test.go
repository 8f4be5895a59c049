//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
	ordermongo "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/mongo"
)

func TestMongoStoreRoundTrip(t *testing.T) {
	uri := StartMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := ordermongo.Connect(ctx, uri, "storefront_it")
	require.NoError(t, err)
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	store := ordermongo.NewStore(discardLogger(), db)
	require.NoError(t, store.EnsureIndexes(ctx))

	first := sampleOrder(t, "u-7")
	firstID, err := store.Create(ctx, first)
	require.NoError(t, err)

	second := sampleOrder(t, "u-7")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	secondID, err := store.Create(ctx, second)
	require.NoError(t, err)

	got, err := store.Get(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, firstID, got.ID)
	assert.True(t, first.Subtotal.Equal(got.Subtotal))
	assert.True(t, first.TotalAmount.Equal(got.TotalAmount))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "280.5", got.Items[0].UnitPrice.String())
	require.NotNil(t, got.Items[0].OriginalUnitPrice)
	assert.Equal(t, "320", got.Items[0].OriginalUnitPrice.String())
	assert.Equal(t, first.Customer, got.Customer)

	listed, err := store.ListByCustomer(ctx, "u-7")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, secondID, listed[0].ID)

	empty, err := store.ListByCustomer(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.UpdateStatus(ctx, firstID, domain.StatusPending, domain.StatusConfirmed, time.Now()))
	err = store.UpdateStatus(ctx, firstID, domain.StatusPending, domain.StatusConfirmed, time.Now())
	assert.ErrorIs(t, err, domain.ErrStatusConflict)
	err = store.UpdateStatus(ctx, "missing", domain.StatusPending, domain.StatusConfirmed, time.Now())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
