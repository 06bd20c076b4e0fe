package strategy

import (
	"math"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

// Momentum combines signed volume imbalance with price momentum over the
// supplied window. Quotes on rising prices count as buy pressure, falling as
// sell pressure.
type Momentum struct {
	threshold     float64
	quantity      float64
	stopLossPct   float64
	takeProfitPct float64
}

// NewMomentum builds a Momentum instance, applying defaults for unset knobs.
func NewMomentum(p Params) *Momentum {
	if p.Threshold <= 0 {
		p.Threshold = 0.25
	}
	if p.Quantity <= 0 {
		p.Quantity = 1
	}
	return &Momentum{
		threshold:     p.Threshold,
		quantity:      p.Quantity,
		stopLossPct:   p.StopLossPct,
		takeProfitPct: p.TakeProfitPct,
	}
}

// Name returns the identifier for the strategy implementation.
func (s *Momentum) Name() string { return "Momentum" }

// Evaluate scores the window and emits a directional signal when the blended
// score clears the threshold.
func (s *Momentum) Evaluate(w *market.Window) *sig.Signal {
	if w == nil || w.Len() < 2 {
		return nil
	}

	prices := w.Prices()
	volumes := w.Volumes()

	var buyVol, sellVol float64
	for i := 1; i < len(prices); i++ {
		vol := math.Abs(volumes[i])
		switch {
		case prices[i] > prices[i-1]:
			buyVol += vol
		case prices[i] < prices[i-1]:
			sellVol += vol
		}
	}

	var imbalance float64
	if total := buyVol + sellVol; total > 0 {
		imbalance = clamp((buyVol-sellVol)/total, -1, 1)
	}

	anchor := prices[0]
	var momentum float64
	if anchor > 0 {
		raw := (prices[len(prices)-1] - anchor) / anchor
		momentum = clamp(math.Tanh(raw*3), -1, 1)
	}

	score := 0.6*imbalance + 0.4*momentum
	if math.Abs(score) < s.threshold {
		return nil
	}

	side := sig.Buy
	if score < 0 {
		side = sig.Sell
	}
	last, _ := w.Last()
	stop, target := bracket(last.LastPrice, side, s.stopLossPct, s.takeProfitPct)

	return &sig.Signal{
		Symbol:       w.Symbol(),
		Side:         side,
		Quantity:     s.quantity,
		PriceHint:    last.LastPrice,
		StopLoss:     stop,
		TakeProfit:   target,
		QualityScore: clamp(math.Abs(score)*10, 0, 10),
	}
}
