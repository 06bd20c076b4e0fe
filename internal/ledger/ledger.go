// Package ledger tracks per-symbol positions, realized and unrealized P&L,
// and exposure. It is the single owner of position state: mutation happens
// only through fill and quote events, serialized by one mutex.
package ledger

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/bus"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/execution"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

const epsilon = 1e-9

// Position is one symbol's net exposure. Quantity sign encodes direction;
// net zero closes the position and moves it to history.
type Position struct {
	Symbol        string
	NetQuantity   float64
	AvgEntryPrice float64
	RealizedPnL   float64
	UnrealizedPnL float64
	OpenedAt      time.Time
	ClosedAt      *time.Time
}

// Totals aggregates the ledger at one observation instant.
type Totals struct {
	RealizedPnL   float64
	UnrealizedPnL float64
	TotalPnL      float64
	Exposure      float64
	OpenPositions int
}

// Snapshot is a read-only copy of ledger state.
type Snapshot struct {
	Positions []Position
	History   []Position
	Totals    Totals
}

// Ledger consumes fills and quotes and answers risk/reporting queries.
type Ledger struct {
	log zerolog.Logger

	mu            sync.Mutex
	open          map[string]*Position
	history       []Position
	marks         map[string]float64
	realizedTotal float64
	dailyRealized float64
	day           string
}

// New constructs an empty ledger.
func New(log zerolog.Logger) *Ledger {
	return &Ledger{
		log:   log.With().Str("component", "ledger").Logger(),
		open:  make(map[string]*Position),
		marks: make(map[string]float64),
	}
}

// Attach subscribes the ledger to fill and quote topics.
func (l *Ledger) Attach(b *bus.Bus) {
	b.Subscribe(bus.TopicFills, func(payload any) {
		if f, ok := payload.(execution.Fill); ok {
			l.OnFill(f)
		}
	})
	b.Subscribe(bus.TopicQuotes, func(payload any) {
		if q, ok := payload.(market.Quote); ok {
			l.OnQuote(q)
		}
	})
}

// OnFill applies one execution to the position for its symbol. Same-direction
// fills blend the average entry price; opposite-direction fills realize P&L
// against the average without changing it, closing at net zero and opening a
// remainder position on a flip.
func (l *Ledger) OnFill(f execution.Fill) {
	signed := f.Quantity
	if f.Side == sig.Sell {
		signed = -signed
	}
	if signed == 0 || f.Price <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollDay(f.At)

	pos, ok := l.open[f.Symbol]
	switch {
	case !ok:
		l.open[f.Symbol] = l.newPosition(f, signed)
	case pos.NetQuantity*signed > 0:
		// Same direction: quantity-weighted blend of old and new entry.
		oldAbs := math.Abs(pos.NetQuantity)
		addAbs := math.Abs(signed)
		pos.AvgEntryPrice = (pos.AvgEntryPrice*oldAbs + f.Price*addAbs) / (oldAbs + addAbs)
		pos.NetQuantity += signed
	default:
		// Opposite direction: realize against the existing average.
		closeQty := math.Min(math.Abs(signed), math.Abs(pos.NetQuantity))
		direction := 1.0
		if pos.NetQuantity < 0 {
			direction = -1
		}
		realized := (f.Price - pos.AvgEntryPrice) * closeQty * direction
		pos.RealizedPnL += realized
		l.realizedTotal += realized
		l.dailyRealized += realized

		remainder := pos.NetQuantity + signed
		if math.Abs(remainder) <= epsilon {
			l.closeLocked(pos, f.At)
		} else if remainder*pos.NetQuantity < 0 {
			// Flip: close the old position entirely, open the rest fresh at
			// the fill price.
			l.closeLocked(pos, f.At)
			flip := f
			l.open[f.Symbol] = l.newPosition(flip, remainder)
		} else {
			pos.NetQuantity = remainder
		}
	}

	if pos, ok := l.open[f.Symbol]; ok {
		l.markLocked(pos)
	}

	l.log.Info().
		Str("symbol", f.Symbol).
		Str("side", string(f.Side)).
		Float64("qty", f.Quantity).
		Float64("price", f.Price).
		Msg("fill applied")
}

func (l *Ledger) newPosition(f execution.Fill, signed float64) *Position {
	return &Position{
		Symbol:        f.Symbol,
		NetQuantity:   signed,
		AvgEntryPrice: f.Price,
		OpenedAt:      f.At,
	}
}

func (l *Ledger) closeLocked(pos *Position, at time.Time) {
	t := at
	pos.NetQuantity = 0
	pos.UnrealizedPnL = 0
	pos.ClosedAt = &t
	l.history = append(l.history, *pos)
	delete(l.open, pos.Symbol)
}

// OnQuote marks the open position in that symbol to market.
func (l *Ledger) OnQuote(q market.Quote) {
	if q.LastPrice <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.marks[q.Symbol] = q.LastPrice
	if pos, ok := l.open[q.Symbol]; ok {
		l.markLocked(pos)
	}
}

func (l *Ledger) markLocked(pos *Position) {
	mark, ok := l.marks[pos.Symbol]
	if !ok || mark <= 0 {
		pos.UnrealizedPnL = 0
		return
	}
	pos.UnrealizedPnL = (mark - pos.AvgEntryPrice) * pos.NetQuantity
}

// rollDay resets the daily realized counter on the first event of a new day.
func (l *Ledger) rollDay(at time.Time) {
	day := at.UTC().Format("2006-01-02")
	if l.day != day {
		l.day = day
		l.dailyRealized = 0
	}
}

// Snapshot returns a consistent copy of positions, history, and totals.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Positions: make([]Position, 0, len(l.open)),
		History:   make([]Position, len(l.history)),
	}
	copy(snap.History, l.history)

	var unrealized, exposure float64
	for _, pos := range l.open {
		snap.Positions = append(snap.Positions, *pos)
		unrealized += pos.UnrealizedPnL
		if mark, ok := l.marks[pos.Symbol]; ok {
			exposure += math.Abs(pos.NetQuantity * mark)
		} else {
			exposure += math.Abs(pos.NetQuantity * pos.AvgEntryPrice)
		}
	}

	snap.Totals = Totals{
		RealizedPnL:   l.realizedTotal,
		UnrealizedPnL: unrealized,
		TotalPnL:      l.realizedTotal + unrealized,
		Exposure:      exposure,
		OpenPositions: len(l.open),
	}
	return snap
}

// Exposure returns sum(|net_quantity * current_price|) across open positions.
func (l *Ledger) Exposure() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var exposure float64
	for _, pos := range l.open {
		if mark, ok := l.marks[pos.Symbol]; ok {
			exposure += math.Abs(pos.NetQuantity * mark)
		} else {
			exposure += math.Abs(pos.NetQuantity * pos.AvgEntryPrice)
		}
	}
	return exposure
}

// OpenPositionCount reports the number of open positions.
func (l *Ledger) OpenPositionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}

// HasOpenPosition reports whether the symbol currently has an open position.
func (l *Ledger) HasOpenPosition(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.open[symbol]
	return ok
}

// DailyRealizedPnL reports realized P&L accumulated today (UTC).
func (l *Ledger) DailyRealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dailyRealized
}
