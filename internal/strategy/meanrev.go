package strategy

import (
	"math"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

// MeanReversion fades stretched moves: when the latest price deviates from
// the window mean by more than threshold standard deviations it signals a
// trade back toward the mean.
type MeanReversion struct {
	threshold     float64 // z-score trigger
	quantity      float64
	stopLossPct   float64
	takeProfitPct float64
}

// NewMeanReversion builds a MeanReversion instance with defaults.
func NewMeanReversion(p Params) *MeanReversion {
	if p.Threshold <= 0 {
		p.Threshold = 2
	}
	if p.Quantity <= 0 {
		p.Quantity = 1
	}
	return &MeanReversion{
		threshold:     p.Threshold,
		quantity:      p.Quantity,
		stopLossPct:   p.StopLossPct,
		takeProfitPct: p.TakeProfitPct,
	}
}

// Name returns the identifier for the strategy implementation.
func (s *MeanReversion) Name() string { return "MeanReversion" }

// Evaluate emits a counter-trend signal when the z-score of the latest price
// clears the configured threshold.
func (s *MeanReversion) Evaluate(w *market.Window) *sig.Signal {
	if w == nil || w.Len() < 3 {
		return nil
	}

	prices := w.Prices()
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))

	var variance float64
	for _, p := range prices {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(prices))
	std := math.Sqrt(variance)
	if std == 0 {
		return nil
	}

	last := prices[len(prices)-1]
	z := (last - mean) / std
	if math.Abs(z) < s.threshold {
		return nil
	}

	// Stretched above the mean: sell it back down; below: buy the dip.
	side := sig.Sell
	if z < 0 {
		side = sig.Buy
	}
	stop, target := bracket(last, side, s.stopLossPct, s.takeProfitPct)

	return &sig.Signal{
		Symbol:       w.Symbol(),
		Side:         side,
		Quantity:     s.quantity,
		PriceHint:    last,
		StopLoss:     stop,
		TakeProfit:   target,
		QualityScore: clamp(math.Abs(z)*2.5, 0, 10),
	}
}
