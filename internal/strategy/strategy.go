// Package strategy contains the trading signal generators evaluated by the
// scheduler. Implementations are pure functions over a quote window: they
// mutate nothing and communicate only through the returned signal.
package strategy

import (
	"strings"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

// Strategy defines behaviour shared by signal generator implementations.
// Evaluate returns nil when the window shows no qualifying setup. The
// returned signal carries symbol, side, sizing, and quality; the scheduler
// stamps identity and timing.
type Strategy interface {
	Evaluate(w *market.Window) *sig.Signal
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	Threshold     float64
	Quantity      float64
	StopLossPct   float64
	TakeProfitPct float64
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "momentum", "vol_momentum":
		return NewMomentum(params)
	case "meanrev", "mean_reversion", "reversion":
		return NewMeanReversion(params)
	default:
		return NewMomentum(params)
	}
}

// bracket derives stop loss and take profit prices from percentage offsets.
func bracket(entry float64, side sig.Side, stopPct, targetPct float64) (stop, target float64) {
	if entry <= 0 {
		return 0, 0
	}
	dir := 1.0
	if side == sig.Sell {
		dir = -1
	}
	if stopPct > 0 {
		stop = entry * (1 - dir*stopPct)
	}
	if targetPct > 0 {
		target = entry * (1 + dir*targetPct)
	}
	return stop, target
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
