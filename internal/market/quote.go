// Package market standardizes quote payloads shared between data ingestion,
// strategy, and ledger layers.
package market

import "time"

// Quote models a normalized market snapshot for one symbol. Quotes are
// immutable once published; the next quote for the same symbol supersedes it.
type Quote struct {
	Symbol       string
	LastPrice    float64
	Volume       float64
	OpenInterest float64
	Bid          float64
	Ask          float64
	High         float64
	Low          float64
	Open         float64
	Timestamp    time.Time
	Source       string
}

// Mid returns the bid/ask midpoint, falling back to the last price when the
// book sides are missing.
func (q Quote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.LastPrice
}

// Age reports how long ago the quote was produced.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}
