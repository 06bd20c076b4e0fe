// Package feed hosts market data provider clients and the failover controller
// that exposes them as a single logical feed.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
)

// ErrAuthFailed marks a provider rejected for credentials. It is terminal:
// the client stops retrying until it is reconfigured and reconnected
// explicitly.
var ErrAuthFailed = errors.New("provider authentication failed")

// State tracks a provider connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateAuthFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateAuthFailed:
		return "auth_failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event reports a provider connectivity transition.
type Event struct {
	Provider string
	State    State
	Err      error
	At       time.Time
}

// QuoteSink receives normalized quotes from a provider client.
type QuoteSink func(market.Quote)

// EventSink receives connectivity transitions. Clients emit one event per
// transition, including every reconnect attempt outcome.
type EventSink func(Event)

// Feed is a pluggable market data stream implementation. Concrete clients own
// their reconnect loops; staleness detection belongs to the failover
// controller, not the client.
type Feed interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	State() State
	Subscribe(symbols []string)
	LastUpdate() time.Time
}
