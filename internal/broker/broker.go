// Package broker defines the external broker adapter boundary. Session
// management and authentication refresh are the adapter's responsibility;
// the gateway only distinguishes auth failures from transient ones.
package broker

import (
	"context"
	"errors"
	"fmt"
)

// PlaceOrderRequest carries everything an adapter needs to submit an order.
type PlaceOrderRequest struct {
	OrderID   string
	Symbol    string
	Side      string
	Quantity  float64
	OrderType string
	Price     float64 // 0 for market orders
}

// Position is a broker-side position row.
type Position struct {
	Symbol   string
	Quantity float64
	AvgPrice float64
}

// Funds reports account buying power.
type Funds struct {
	Available float64
	Used      float64
}

// OrderUpdate is the venue's current view of a working order. Status uses the
// venue's vocabulary (OPEN, FILLED, REJECTED, CANCELLED); FilledPrice is only
// meaningful for fills.
type OrderUpdate struct {
	Status      string
	FilledPrice float64
}

// Broker is the live order venue adapter.
type Broker interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (brokerOrderID string, err error)
	CancelOrder(ctx context.Context, brokerOrderID string) error
	OrderStatus(ctx context.Context, brokerOrderID string) (OrderUpdate, error)
	Positions(ctx context.Context) ([]Position, error)
	Funds(ctx context.Context) (Funds, error)
}

// AuthError marks a rejected session or credential. Fatal until the adapter
// is re-authenticated externally; never retried by the gateway.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("broker auth error: %s", e.Reason)
}

// TransientError wraps a network or venue hiccup worth a bounded retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("broker transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
