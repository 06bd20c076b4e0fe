// Package scheduler drives strategy evaluation on a fixed cadence and owns
// every cross-cutting trading rule (hours, cooldowns, daily caps) so that
// strategies stay pure functions over a quote window.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/bus"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/metrics"
	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/strategy"
)

// Policy bounds how often one registered strategy may signal.
type Policy struct {
	Cooldown        time.Duration
	MaxDailySignals int // 0 = unlimited
	MinWindow       int // minimum quotes required before evaluating
}

type entry struct {
	name         string
	symbol       string
	strat        strategy.Strategy
	policy       Policy
	lastSignalAt time.Time
	signalsToday int
	day          string
	degraded     bool
}

// Scheduler evaluates registered strategies every interval and publishes
// qualifying signals onto the bus. One failing strategy is marked degraded
// and skipped; it never stops the scheduler or its peers.
type Scheduler struct {
	log        zerolog.Logger
	bus        *bus.Bus
	interval   time.Duration
	hours      market.Hours
	windowSize int
	now        func() time.Time

	mu      sync.Mutex
	entries []*entry
	windows map[string]*market.Window
}

// Option configures Scheduler construction.
type Option func(*Scheduler)

// WithClock substitutes the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New constructs a scheduler and subscribes it to the quotes topic.
func New(log zerolog.Logger, b *bus.Bus, interval time.Duration, hours market.Hours, windowSize int, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:        log.With().Str("component", "scheduler").Logger(),
		bus:        b,
		interval:   interval,
		hours:      hours,
		windowSize: windowSize,
		now:        time.Now,
		windows:    make(map[string]*market.Window),
	}
	for _, opt := range opts {
		opt(s)
	}
	b.Subscribe(bus.TopicQuotes, func(payload any) {
		if q, ok := payload.(market.Quote); ok {
			s.onQuote(q)
		}
	})
	return s
}

func (s *Scheduler) onQuote(q market.Quote) {
	s.mu.Lock()
	w, ok := s.windows[q.Symbol]
	if !ok {
		w = market.NewWindow(q.Symbol, s.windowSize)
		s.windows[q.Symbol] = w
	}
	w.Append(q)
	s.mu.Unlock()
}

// Register adds a strategy instance under a unique name.
func (s *Scheduler) Register(name, symbol string, strat strategy.Strategy, policy Policy) error {
	if name == "" || symbol == "" {
		return fmt.Errorf("register: name and symbol required")
	}
	if policy.MinWindow <= 0 {
		policy.MinWindow = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.name == name {
			return fmt.Errorf("register: strategy %q already registered", name)
		}
	}
	s.entries = append(s.entries, &entry{name: name, symbol: symbol, strat: strat, policy: policy})
	return nil
}

// Degraded reports whether the named strategy has been sidelined.
func (s *Scheduler) Degraded(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.name == name {
			return e.degraded
		}
	}
	return false
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

type evaluation struct {
	e *entry
	w *market.Window
}

// Tick runs one evaluation pass. Exported so tests can drive the scheduler
// without real time.
func (s *Scheduler) Tick() {
	now := s.now()
	if !s.hours.Contains(now) {
		return
	}
	day := now.Format("2006-01-02")

	s.mu.Lock()
	eligible := make([]evaluation, 0, len(s.entries))
	for _, e := range s.entries {
		if e.degraded {
			continue
		}
		if e.day != day {
			e.day = day
			e.signalsToday = 0
		}
		if e.policy.Cooldown > 0 && !e.lastSignalAt.IsZero() && now.Sub(e.lastSignalAt) < e.policy.Cooldown {
			continue
		}
		if e.policy.MaxDailySignals > 0 && e.signalsToday >= e.policy.MaxDailySignals {
			continue
		}
		w, ok := s.windows[e.symbol]
		if !ok || w.Len() < e.policy.MinWindow {
			continue
		}
		eligible = append(eligible, evaluation{e: e, w: w.Clone()})
	}
	s.mu.Unlock()

	if len(eligible) == 0 {
		return
	}

	// Evaluations run concurrently over private window clones; only the
	// returned signals re-enter shared state.
	results := make([]*sig.Signal, len(eligible))
	var wg sync.WaitGroup
	for i, ev := range eligible {
		wg.Add(1)
		go func(i int, ev evaluation) {
			defer wg.Done()
			results[i] = s.evaluate(ev)
		}(i, ev)
	}
	wg.Wait()

	for i, out := range results {
		if out == nil {
			continue
		}
		s.emit(eligible[i].e, out, now)
	}
}

// evaluate runs one strategy, containing panics so a broken generator only
// degrades itself.
func (s *Scheduler) evaluate(ev evaluation) (out *sig.Signal) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			ev.e.degraded = true
			s.mu.Unlock()
			metrics.StrategyErrorsTotal.WithLabelValues(ev.e.name).Inc()
			s.log.Error().Str("strategy", ev.e.name).Interface("panic", r).Msg("strategy degraded after evaluation failure")
			out = nil
		}
	}()
	return ev.e.strat.Evaluate(ev.w)
}

func (s *Scheduler) emit(e *entry, out *sig.Signal, now time.Time) {
	out.ID = uuid.NewString()
	out.Strategy = e.name
	if out.Symbol == "" {
		out.Symbol = e.symbol
	}
	out.GeneratedAt = now.UTC()
	if err := out.Validate(); err != nil {
		s.log.Warn().Err(err).Str("strategy", e.name).Msg("discarding invalid signal")
		return
	}

	s.mu.Lock()
	e.lastSignalAt = now
	e.signalsToday++
	s.mu.Unlock()

	metrics.SignalsTotal.WithLabelValues(e.name).Inc()
	s.log.Info().
		Str("strategy", e.name).
		Str("symbol", out.Symbol).
		Str("side", string(out.Side)).
		Float64("qty", out.Quantity).
		Float64("score", out.QualityScore).
		Msg("signal generated")
	s.bus.Publish(bus.TopicSignals, *out)
}
