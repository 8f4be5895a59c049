package twilio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

const (
	codeInvalidPhoneNumber = 21211
	codeWhatsAppNotEnabled = 21608
)

var (
	ErrCredentialsMissing = errors.New("twilio credentials not configured")
	ErrNumbersMissing     = errors.New("whatsapp numbers not configured")
	ErrInvalidPhoneNumber = errors.New("invalid phone number format")
	ErrWhatsAppNotEnabled = errors.New("twilio whatsapp not enabled")
)

type Config struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	AdminNumber string
}

type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// Notifier sends the staff summary over WhatsApp through the Twilio REST API.
type Notifier struct {
	log  *slog.Logger
	api  messageCreator
	from string
	to   string
}

func NewNotifier(log *slog.Logger, cfg Config) (*Notifier, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, ErrCredentialsMissing
	}
	if cfg.FromNumber == "" || cfg.AdminNumber == "" {
		return nil, ErrNumbersMissing
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newNotifier(log, client.Api, cfg.FromNumber, cfg.AdminNumber), nil
}

func newNotifier(log *slog.Logger, api messageCreator, from, to string) *Notifier {
	return &Notifier{log: log, api: api, from: whatsappAddress(from), to: whatsappAddress(to)}
}

type result struct {
	sid string
	err error
}

// Notify gives up when ctx ends; the REST call itself is not cancellable and
// finishes in the background.
func (n *Notifier) Notify(ctx context.Context, req domain.NotificationRequest) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(n.from)
	params.SetTo(n.to)
	params.SetBody(req.Message())

	done := make(chan result, 1)
	go func() {
		msg, err := n.api.CreateMessage(params)
		if err != nil {
			done <- result{err: err}
			return
		}
		var sid string
		if msg != nil && msg.Sid != nil {
			sid = *msg.Sid
		}
		done <- result{sid: sid}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("whatsapp send: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return mapError(r.err)
		}
		n.log.Info("whatsapp notification sent", "order_id", req.OrderID, "message_sid", r.sid)
		return nil
	}
}

func mapError(err error) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		switch restErr.Code {
		case codeInvalidPhoneNumber:
			return fmt.Errorf("%w: %s", ErrInvalidPhoneNumber, restErr.Message)
		case codeWhatsAppNotEnabled:
			return fmt.Errorf("%w: %s", ErrWhatsAppNotEnabled, restErr.Message)
		}
	}
	return fmt.Errorf("whatsapp send: %w", err)
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
