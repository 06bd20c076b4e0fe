// Package signal defines the trade recommendation payload produced by
// strategies and consumed by the order gateway.
package signal

import (
	"fmt"
	"time"
)

// Side enumerates trade directions.
type Side string

const (
	// Buy indicates a long entry.
	Buy Side = "BUY"
	// Sell indicates a short entry.
	Sell Side = "SELL"
)

// Signal is a strategy's recommendation to trade. Immutable after creation;
// the ID doubles as the order idempotency key.
type Signal struct {
	ID           string    `json:"id"`
	Strategy     string    `json:"strategy"`
	Symbol       string    `json:"symbol"`
	Side         Side      `json:"side"`
	Instrument   string    `json:"instrument"`
	Quantity     float64   `json:"quantity"`
	PriceHint    float64   `json:"price_hint"`
	StopLoss     float64   `json:"stop_loss"`
	TakeProfit   float64   `json:"take_profit"`
	QualityScore float64   `json:"quality_score"` // 0-10
	GeneratedAt  time.Time `json:"generated_at"`
}

// Validate rejects signals the gateway must never act on.
func (s Signal) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("signal missing id")
	}
	if s.Symbol == "" {
		return fmt.Errorf("signal %s missing symbol", s.ID)
	}
	if s.Side != Buy && s.Side != Sell {
		return fmt.Errorf("signal %s has unknown side %q", s.ID, s.Side)
	}
	if s.Quantity <= 0 {
		return fmt.Errorf("signal %s has non-positive quantity %f", s.ID, s.Quantity)
	}
	if s.QualityScore < 0 || s.QualityScore > 10 {
		return fmt.Errorf("signal %s quality score %f outside 0-10", s.ID, s.QualityScore)
	}
	return nil
}

// Direction returns +1 for buys and -1 for sells.
func (s Signal) Direction() float64 {
	if s.Side == Sell {
		return -1
	}
	return 1
}
