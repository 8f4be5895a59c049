package twilio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

type fakeAPI struct {
	params *twilioapi.CreateMessageParams
	err    error
	delay  time.Duration
}

func (f *fakeAPI) CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioapi.ApiV2010Message{Sid: &sid}, nil
}

func request() domain.NotificationRequest {
	return domain.NotificationRequest{
		OrderID:      "ord-1",
		CustomerName: "Asha",
		Items: []cartdomain.LineItem{
			{ID: "a", Name: "Mango", UnitPrice: decimal.NewFromInt(100), Quantity: 1},
		},
		Subtotal: decimal.NewFromInt(100),
		Total:    decimal.NewFromInt(150),
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotify_SendsWhatsApp(t *testing.T) {
	api := &fakeAPI{}
	n := newNotifier(discard(), api, "+14155238886", "whatsapp:+919800000000")

	require.NoError(t, n.Notify(context.Background(), request()))
	require.NotNil(t, api.params)
	assert.Equal(t, "whatsapp:+14155238886", *api.params.From)
	assert.Equal(t, "whatsapp:+919800000000", *api.params.To)
	assert.Contains(t, *api.params.Body, "Order ID: ord-1")
}

func TestNotify_MapsTwilioErrors(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{codeInvalidPhoneNumber, ErrInvalidPhoneNumber},
		{codeWhatsAppNotEnabled, ErrWhatsAppNotEnabled},
	}
	for _, tt := range tests {
		api := &fakeAPI{err: &twclient.TwilioRestError{Code: tt.code, Message: "rejected"}}
		n := newNotifier(discard(), api, "+1", "+2")

		err := n.Notify(context.Background(), request())
		assert.ErrorIs(t, err, tt.want)
	}

	api := &fakeAPI{err: errors.New("connection reset")}
	err := newNotifier(discard(), api, "+1", "+2").Notify(context.Background(), request())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestNotify_HonoursDeadline(t *testing.T) {
	api := &fakeAPI{delay: 200 * time.Millisecond}
	n := newNotifier(discard(), api, "+1", "+2")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := n.Notify(ctx, request())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewNotifier_RequiresConfig(t *testing.T) {
	_, err := NewNotifier(discard(), Config{})
	assert.ErrorIs(t, err, ErrCredentialsMissing)

	_, err = NewNotifier(discard(), Config{AccountSID: "AC1", AuthToken: "t"})
	assert.ErrorIs(t, err, ErrNumbersMissing)

	n, err := NewNotifier(discard(), Config{AccountSID: "AC1", AuthToken: "t", FromNumber: "+1", AdminNumber: "+2"})
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+2", n.to)
}
