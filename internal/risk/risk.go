// Package risk implements the gate consulted by the order gateway before
// every submission. A veto is an expected control-flow outcome, not an error.
package risk

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/metrics"
	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

// Violation codes.
const (
	CodeMaxPositions = "MAX_POSITIONS"
	CodeMaxExposure  = "MAX_EXPOSURE"
	CodeDailyLoss    = "DAILY_LOSS"
)

// Violation explains a veto with a machine-readable code and a human message.
type Violation struct {
	Code string
	Msg  string
}

// Limits are the configured guard-rails.
type Limits struct {
	Capital         float64
	MaxExposurePct  float64 // fraction of capital, e.g. 0.5
	MaxDailyLossPct float64 // fraction of capital, e.g. 0.02
	MaxPositions    int
}

// LedgerView is the read-only ledger surface the gate consults.
type LedgerView interface {
	Exposure() float64
	OpenPositionCount() int
	HasOpenPosition(symbol string) bool
	DailyRealizedPnL() float64
}

// Gate evaluates signals against the limits and the live ledger state.
type Gate struct {
	limits Limits
	ledger LedgerView
	log    zerolog.Logger
}

// NewGate constructs a gate over the given ledger view.
func NewGate(limits Limits, ledger LedgerView, log zerolog.Logger) *Gate {
	return &Gate{
		limits: limits,
		ledger: ledger,
		log:    log.With().Str("component", "risk").Logger(),
	}
}

// Check returns nil when the signal may proceed, or the first violation
// found. refPrice is the price the order would execute near (last quote or
// the signal's hint).
func (g *Gate) Check(s sig.Signal, refPrice float64) *Violation {
	if v := g.check(s, refPrice); v != nil {
		metrics.RiskVetoesTotal.WithLabelValues(v.Code).Inc()
		g.log.Warn().
			Str("signal", s.ID).
			Str("symbol", s.Symbol).
			Str("code", v.Code).
			Msg(v.Msg)
		return v
	}
	return nil
}

func (g *Gate) check(s sig.Signal, refPrice float64) *Violation {
	if g.limits.MaxDailyLossPct > 0 {
		maxLoss := g.limits.Capital * g.limits.MaxDailyLossPct
		if pnl := g.ledger.DailyRealizedPnL(); pnl <= -maxLoss {
			return &Violation{
				Code: CodeDailyLoss,
				Msg:  fmt.Sprintf("daily realized loss %.2f breaches limit %.2f", -pnl, maxLoss),
			}
		}
	}

	if g.limits.MaxPositions > 0 && !g.ledger.HasOpenPosition(s.Symbol) {
		if n := g.ledger.OpenPositionCount(); n >= g.limits.MaxPositions {
			return &Violation{
				Code: CodeMaxPositions,
				Msg:  fmt.Sprintf("open positions %d at limit %d", n, g.limits.MaxPositions),
			}
		}
	}

	if g.limits.MaxExposurePct > 0 {
		price := refPrice
		if price <= 0 {
			price = s.PriceHint
		}
		proposed := s.Quantity * price
		maxExposure := g.limits.Capital * g.limits.MaxExposurePct
		if exp := g.ledger.Exposure(); exp+proposed > maxExposure {
			return &Violation{
				Code: CodeMaxExposure,
				Msg: fmt.Sprintf("exposure %.2f + proposed %.2f exceeds limit %.2f",
					exp, proposed, maxExposure),
			}
		}
	}

	return nil
}
