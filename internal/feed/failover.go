package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/bus"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/metrics"
)

// SwitchEvent reports an active-provider change. Published on TopicProviders.
type SwitchEvent struct {
	From   string
	To     string
	Reason string
	At     time.Time
}

// ProviderStatus is one provider row in a Status snapshot.
type ProviderStatus struct {
	Name       string
	Connected  bool
	State      State
	LastUpdate time.Time
}

// Status is a read-only view of the failover controller.
type Status struct {
	ActiveProvider string
	Providers      []ProviderStatus
}

// Failover owns the configured providers in priority order and exposes them
// as one logical feed. Only the active provider's quotes reach the bus; when
// the active provider disconnects or goes stale it is demoted, and a
// recovered higher-priority provider is promoted back on a later check. When
// nothing is healthy the controller reports no data rather than replaying
// stale prices.
type Failover struct {
	log       zerolog.Logger
	bus       *bus.Bus
	staleness time.Duration
	interval  time.Duration
	now       func() time.Time

	mu     sync.RWMutex
	feeds  []Feed
	active int // index into feeds, -1 when no provider is healthy
	quotes map[string]market.Quote

	kick chan struct{}
}

// FailoverOption configures the controller.
type FailoverOption func(*Failover)

// WithClock substitutes the time source (tests).
func WithClock(now func() time.Time) FailoverOption {
	return func(f *Failover) { f.now = now }
}

// NewFailover constructs the controller. Feeds are attached with SetFeeds
// after their sinks have been wired to this controller.
func NewFailover(log zerolog.Logger, b *bus.Bus, staleness, healthInterval time.Duration, opts ...FailoverOption) *Failover {
	f := &Failover{
		log:       log.With().Str("component", "failover").Logger(),
		bus:       b,
		staleness: staleness,
		interval:  healthInterval,
		now:       time.Now,
		active:    -1,
		quotes:    make(map[string]market.Quote),
		kick:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetFeeds registers providers in priority order (index 0 is primary).
func (f *Failover) SetFeeds(feeds []Feed) {
	f.mu.Lock()
	f.feeds = feeds
	f.mu.Unlock()
}

// OnQuote is the QuoteSink shared by every attached provider. Quotes from
// non-active providers are discarded so downstream consumers see one
// consistent source.
func (f *Failover) OnQuote(q market.Quote) {
	f.mu.Lock()
	if f.active < 0 || f.active >= len(f.feeds) || f.feeds[f.active].Name() != q.Source {
		f.mu.Unlock()
		return
	}
	f.quotes[q.Symbol] = q
	f.mu.Unlock()

	metrics.QuotesTotal.WithLabelValues(q.Source, q.Symbol).Inc()
	f.bus.Publish(bus.TopicQuotes, q)
}

// OnEvent is the EventSink shared by every attached provider. A transition
// away from connected triggers an immediate health evaluation instead of
// waiting for the next tick.
func (f *Failover) OnEvent(e Event) {
	up := 0.0
	if e.State == StateConnected {
		up = 1
	}
	metrics.ProviderUp.WithLabelValues(e.Provider).Set(up)
	f.bus.Publish(bus.TopicProviders, e)

	if e.State != StateConnected {
		select {
		case f.kick <- struct{}{}:
		default:
		}
	}
}

// Subscribe forwards the symbol universe to every provider.
func (f *Failover) Subscribe(symbols []string) {
	f.mu.RLock()
	feeds := f.feeds
	f.mu.RUnlock()
	for _, fd := range feeds {
		fd.Subscribe(symbols)
	}
}

// CurrentQuote returns the latest quote for the symbol, or absent when no
// provider is healthy or the quote exceeded the staleness threshold. Absence
// is the contract: stale or fabricated values are never returned.
func (f *Failover) CurrentQuote(symbol string) (market.Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.active < 0 {
		return market.Quote{}, false
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return market.Quote{}, false
	}
	if f.now().Sub(q.Timestamp) > f.staleness {
		return market.Quote{}, false
	}
	return q, true
}

// Status reports the active provider and per-provider connectivity.
func (f *Failover) Status() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st := Status{}
	if f.active >= 0 && f.active < len(f.feeds) {
		st.ActiveProvider = f.feeds[f.active].Name()
	}
	for _, fd := range f.feeds {
		st.Providers = append(st.Providers, ProviderStatus{
			Name:       fd.Name(),
			Connected:  fd.IsConnected(),
			State:      fd.State(),
			LastUpdate: fd.LastUpdate(),
		})
	}
	return st
}

// Run connects every provider and drives the health-check loop until the
// context is cancelled, then disconnects all providers.
func (f *Failover) Run(ctx context.Context) error {
	f.mu.RLock()
	feeds := f.feeds
	f.mu.RUnlock()

	for _, fd := range feeds {
		if err := fd.Connect(ctx); err != nil {
			// Auth-failed providers stay parked; the rest of the priority
			// list keeps the system alive.
			f.log.Error().Err(err).Str("provider", fd.Name()).Msg("provider connect failed")
		}
	}
	f.evaluate()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			for _, fd := range feeds {
				fd.Disconnect()
			}
			return ctx.Err()
		case <-ticker.C:
			f.evaluate()
		case <-f.kick:
			f.evaluate()
		}
	}
}

// evaluate picks the highest-priority healthy provider. Healthy means
// connected and, once data has flowed, updated within the staleness window.
func (f *Failover) evaluate() {
	now := f.now()

	f.mu.Lock()
	best := -1
	for i, fd := range f.feeds {
		if f.healthy(fd, now) {
			best = i
			break
		}
	}
	if best == f.active {
		f.mu.Unlock()
		return
	}

	var from, to string
	if f.active >= 0 && f.active < len(f.feeds) {
		from = f.feeds[f.active].Name()
	}
	if best >= 0 {
		to = f.feeds[best].Name()
	}
	f.active = best
	f.mu.Unlock()

	metrics.ProviderSwitchesTotal.Inc()
	ev := SwitchEvent{From: from, To: to, Reason: "health check", At: now}
	f.bus.Publish(bus.TopicProviders, ev)
	if to == "" {
		f.log.Error().Str("from", from).Msg("no healthy market data provider, entering no-live-data state")
	} else {
		f.log.Info().Str("from", from).Str("to", to).Msg("active provider switched")
	}
}

func (f *Failover) healthy(fd Feed, now time.Time) bool {
	if !fd.IsConnected() {
		return false
	}
	lu := fd.LastUpdate()
	if lu.IsZero() {
		// Connected but no data yet: grace until the first update arrives.
		return true
	}
	return now.Sub(lu) <= f.staleness
}
