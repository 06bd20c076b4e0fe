package feed

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
)

// StubFeed emits deterministic synthetic quotes, useful for tests and offline
// work. It is always "connected" while running.
type StubFeed struct {
	name     string
	interval time.Duration
	quotes   QuoteSink
	events   EventSink

	mu      sync.Mutex
	symbols []string
	cancel  context.CancelFunc

	state      int32
	lastUpdate int64 // unix nanos
}

// NewStubFeed constructs a stub emitting one quote per symbol per interval.
func NewStubFeed(name string, interval time.Duration, quotes QuoteSink, events EventSink) *StubFeed {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &StubFeed{name: name, interval: interval, quotes: quotes, events: events}
}

func (f *StubFeed) Name() string { return f.name }

func (f *StubFeed) State() State { return State(atomic.LoadInt32(&f.state)) }

func (f *StubFeed) IsConnected() bool { return f.State() == StateConnected }

func (f *StubFeed) LastUpdate() time.Time {
	ns := atomic.LoadInt64(&f.lastUpdate)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Subscribe replaces the tracked symbol list (deduplicated, sorted for
// determinism).
func (f *StubFeed) Subscribe(symbols []string) {
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	out := make([]string, 0, len(unique))
	for sym := range unique {
		out = append(out, sym)
	}
	sort.Strings(out)

	f.mu.Lock()
	f.symbols = out
	f.mu.Unlock()
}

func (f *StubFeed) snapshotSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Connect starts the synthetic tick loop.
func (f *StubFeed) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = cancel
	f.mu.Unlock()

	f.setState(StateConnected, nil)
	go f.run(runCtx)
	return nil
}

// Disconnect stops the tick loop.
func (f *StubFeed) Disconnect() {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	f.setState(StateClosed, nil)
}

func (f *StubFeed) run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	px := 100.0
	for {
		select {
		case <-ctx.Done():
			return
		case ts := <-ticker.C:
			px += 0.1
			for _, sym := range f.snapshotSymbols() {
				atomic.StoreInt64(&f.lastUpdate, ts.UnixNano())
				if f.quotes != nil {
					f.quotes(market.Quote{
						Symbol:    sym,
						LastPrice: px,
						Volume:    1,
						Bid:       px - 0.05,
						Ask:       px + 0.05,
						Timestamp: ts,
						Source:    f.name,
					})
				}
			}
		}
	}
}

func (f *StubFeed) setState(s State, err error) {
	atomic.StoreInt32(&f.state, int32(s))
	if f.events != nil {
		f.events(Event{Provider: f.name, State: s, Err: err, At: time.Now()})
	}
}
