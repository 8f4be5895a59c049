package domain

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusConflict is returned by stores when the order's status changed
	// underneath a conditional update.
	ErrStatusConflict = errors.New("order status changed concurrently")
)
