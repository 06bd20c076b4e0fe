// Package execution converts qualifying signals into broker orders and owns
// the order lifecycle state machine.
package execution

import (
	"errors"
	"fmt"
	"time"

	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

var (
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order state transition")
)

// Status tracks the order lifecycle.
type Status string

const (
	StatusCreated              Status = "CREATED"
	StatusSubmitted            Status = "SUBMITTED"
	StatusSubmittedPendingBrkr Status = "SUBMITTED_PENDING_BROKER"
	StatusFilled               Status = "FILLED"
	StatusRejected             Status = "REJECTED"
	StatusCancelled            Status = "CANCELLED"
)

// Machine-readable rejection reason codes.
const (
	ReasonRiskViolation = "RISK_VIOLATION"
	ReasonBrokerAuth    = "BROKER_AUTH_ERROR"
	ReasonBrokerError   = "BROKER_ERROR"
	ReasonNoMarketData  = "NO_MARKET_DATA"
	ReasonJournalError  = "JOURNAL_ERROR"
	ReasonInvalidSignal = "INVALID_SIGNAL"
)

// Order is the gateway's view of one submission. Exactly one Order exists
// per signal id.
type Order struct {
	ID             string
	SignalID       string
	Symbol         string
	Side           sig.Side
	Quantity       float64
	OrderType      string
	RequestedPrice float64
	Status         Status
	BrokerOrderID  string
	ReasonCode     string
	Reason         string
	SubmittedAt    time.Time
	TerminalAt     *time.Time
}

// IsTerminal reports whether the order reached a final status.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case StatusFilled, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// transition moves the order to the next status, enforcing the state machine
// CREATED -> SUBMITTED -> {FILLED, REJECTED, CANCELLED}, with SUBMITTED
// optionally passing through SUBMITTED_PENDING_BROKER.
func (o *Order) transition(to Status, at time.Time) error {
	if !validTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s (order %s)", ErrInvalidTransition, o.Status, to, o.ID)
	}
	o.Status = to
	if o.IsTerminal() {
		t := at
		o.TerminalAt = &t
	}
	return nil
}

func validTransition(from, to Status) bool {
	switch from {
	case StatusCreated:
		return to == StatusSubmitted || to == StatusRejected
	case StatusSubmitted:
		return to == StatusSubmittedPendingBrkr || to == StatusFilled ||
			to == StatusRejected || to == StatusCancelled
	case StatusSubmittedPendingBrkr:
		return to == StatusFilled || to == StatusRejected || to == StatusCancelled
	default:
		return false
	}
}

// Fill confirms an order executed at a price. Published on TopicFills for
// the position ledger.
type Fill struct {
	OrderID  string
	SignalID string
	Symbol   string
	Side     sig.Side
	Quantity float64
	Price    float64
	At       time.Time
}
