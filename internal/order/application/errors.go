package application

import (
	"errors"
	"fmt"

	cartapp "github.com/dmehra2102/Pickle-Storefront/internal/cart/application"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

var (
	// ErrSubmissionInFlight is also what cart edits return during checkout.
	ErrSubmissionInFlight = cartapp.ErrCheckoutInFlight
	ErrOrderNotFound      = domain.ErrOrderNotFound
	ErrIllegalTransition  = errors.New("illegal order status transition")
	ErrUnknownStatus      = errors.New("unknown order status")
)

// StoreError means the order could not be persisted. Nothing was written and
// the cart is untouched.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("order store: %v", e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// NotifyError means staff could not be alerted about a persisted order.
type NotifyError struct {
	OrderID string
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify order %s: %v", e.OrderID, e.Err)
}
func (e *NotifyError) Unwrap() error { return e.Err }
