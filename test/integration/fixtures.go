//go:build integration

package integration

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleOrder(t *testing.T, customerID string) domain.Order {
	t.Helper()
	original := decimal.NewFromInt(320)
	items := []cartdomain.LineItem{
		{ID: "mango", Name: "Mango Pickle", UnitPrice: decimal.RequireFromString("280.50"), OriginalUnitPrice: &original, Quantity: 2, WeightLabel: "500g"},
		{ID: "garlic", Name: "Garlic Pickle", UnitPrice: decimal.NewFromInt(150), Quantity: 1},
	}
	o, err := domain.Assemble(items,
		domain.Customer{ExternalID: customerID, Email: "asha@example.com", DisplayName: "Asha"},
		domain.DeliveryDetails{Address: "12 MG Road, Pune", Phone: "+919876543210", PaymentMethod: "upi"},
		cartdomain.DefaultPolicy(),
		time.Now().Truncate(time.Millisecond),
	)
	require.NoError(t, err)
	return o
}
