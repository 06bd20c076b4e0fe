package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/bus"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
)

// fakeFeed is a hand-driven provider for failover tests.
type fakeFeed struct {
	mu         sync.Mutex
	name       string
	state      State
	lastUpdate time.Time
}

func (f *fakeFeed) Name() string { return f.name }

func (f *fakeFeed) Connect(ctx context.Context) error { return nil }

func (f *fakeFeed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateConnected
}

func (f *fakeFeed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeFeed) Subscribe(symbols []string) {}

func (f *fakeFeed) Disconnect() {}

func (f *fakeFeed) LastUpdate() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUpdate
}

func (f *fakeFeed) set(state State, lastUpdate time.Time) {
	f.mu.Lock()
	f.state = state
	f.lastUpdate = lastUpdate
	f.mu.Unlock()
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestFailover(t *testing.T, ck *clock) (*Failover, *fakeFeed, *fakeFeed) {
	t.Helper()
	b := bus.New(zerolog.Nop())
	t.Cleanup(b.Close)
	fo := NewFailover(zerolog.Nop(), b, 10*time.Second, time.Minute, WithClock(ck.now))
	primary := &fakeFeed{name: "primary"}
	secondary := &fakeFeed{name: "secondary"}
	fo.SetFeeds([]Feed{primary, secondary})
	return fo, primary, secondary
}

func TestPromotesPrimary(t *testing.T) {
	ck := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	fo, primary, _ := newTestFailover(t, ck)

	primary.set(StateConnected, ck.now())
	fo.evaluate()

	if st := fo.Status(); st.ActiveProvider != "primary" {
		t.Fatalf("expected primary active, got %q", st.ActiveProvider)
	}
}

func TestDemotesStaleActive(t *testing.T) {
	ck := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	fo, primary, secondary := newTestFailover(t, ck)

	primary.set(StateConnected, ck.now())
	secondary.set(StateConnected, ck.now())
	fo.evaluate()

	// Primary stops updating; secondary keeps ticking.
	ck.advance(30 * time.Second)
	secondary.set(StateConnected, ck.now())
	fo.evaluate()

	if st := fo.Status(); st.ActiveProvider != "secondary" {
		t.Fatalf("expected failover to secondary, got %q", st.ActiveProvider)
	}
}

func TestPromotesRecoveredPrimary(t *testing.T) {
	ck := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	fo, primary, secondary := newTestFailover(t, ck)

	primary.set(StateReconnecting, time.Time{})
	secondary.set(StateConnected, ck.now())
	fo.evaluate()
	if st := fo.Status(); st.ActiveProvider != "secondary" {
		t.Fatalf("expected secondary while primary is down, got %q", st.ActiveProvider)
	}

	primary.set(StateConnected, ck.now())
	fo.evaluate()
	if st := fo.Status(); st.ActiveProvider != "primary" {
		t.Fatalf("expected recovered primary to be promoted, got %q", st.ActiveProvider)
	}
}

func TestNoLiveDataState(t *testing.T) {
	ck := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	fo, primary, secondary := newTestFailover(t, ck)

	primary.set(StateConnected, ck.now())
	fo.evaluate()
	fo.OnQuote(market.Quote{Symbol: "NIFTY", LastPrice: 100, Timestamp: ck.now(), Source: "primary"})

	primary.set(StateReconnecting, ck.now())
	secondary.set(StateDisconnected, time.Time{})
	fo.evaluate()

	if st := fo.Status(); st.ActiveProvider != "" {
		t.Fatalf("expected no active provider, got %q", st.ActiveProvider)
	}
	if _, ok := fo.CurrentQuote("NIFTY"); ok {
		t.Fatal("no-live-data state must report quote absence, not the stale value")
	}
}

func TestOnlyActiveProviderQuotesKept(t *testing.T) {
	ck := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	fo, primary, _ := newTestFailover(t, ck)

	primary.set(StateConnected, ck.now())
	fo.evaluate()

	fo.OnQuote(market.Quote{Symbol: "NIFTY", LastPrice: 100, Timestamp: ck.now(), Source: "primary"})
	fo.OnQuote(market.Quote{Symbol: "NIFTY", LastPrice: 999, Timestamp: ck.now(), Source: "secondary"})

	q, ok := fo.CurrentQuote("NIFTY")
	if !ok {
		t.Fatal("expected a quote from the active provider")
	}
	if q.LastPrice != 100 {
		t.Fatalf("non-active provider quote leaked through: %.2f", q.LastPrice)
	}
}

func TestCurrentQuoteStaleness(t *testing.T) {
	ck := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	fo, primary, _ := newTestFailover(t, ck)

	primary.set(StateConnected, ck.now())
	fo.evaluate()
	fo.OnQuote(market.Quote{Symbol: "NIFTY", LastPrice: 100, Timestamp: ck.now(), Source: "primary"})

	if _, ok := fo.CurrentQuote("NIFTY"); !ok {
		t.Fatal("fresh quote must be available")
	}

	ck.advance(time.Minute)
	if _, ok := fo.CurrentQuote("NIFTY"); ok {
		t.Fatal("stale quote must be absent")
	}
	if _, ok := fo.CurrentQuote("BANKNIFTY"); ok {
		t.Fatal("unknown symbol must be absent")
	}
}

func TestConnectedButSilentProviderGetsGrace(t *testing.T) {
	ck := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	fo, primary, _ := newTestFailover(t, ck)

	// Connected with no data yet: still eligible.
	primary.set(StateConnected, time.Time{})
	fo.evaluate()
	if st := fo.Status(); st.ActiveProvider != "primary" {
		t.Fatalf("connected-but-silent provider should hold the active slot, got %q", st.ActiveProvider)
	}
}
