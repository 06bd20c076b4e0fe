package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
)

const defaultPollInterval = 2 * time.Second

// pollTick mirrors the REST snapshot payload.
type pollTick struct {
	Symbol       string  `json:"symbol"`
	LastPrice    float64 `json:"last_price"`
	Volume       float64 `json:"volume"`
	OpenInterest float64 `json:"oi"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Open         float64 `json:"open"`
	TsMs         int64   `json:"ts"`
}

type pollResponse struct {
	Ticks []pollTick `json:"ticks"`
}

// PollFeed fetches quote snapshots over HTTP on a fixed cadence. Slower than
// a push stream, it serves as the fallback provider.
type PollFeed struct {
	name     string
	baseURL  string
	apiKey   string
	interval time.Duration
	client   *http.Client
	log      zerolog.Logger
	quotes   QuoteSink
	events   EventSink

	mu      sync.Mutex
	symbols []string
	cancel  context.CancelFunc

	state      int32
	lastUpdate int64 // unix nanos
}

// NewPollFeed constructs an HTTP polling feed client.
func NewPollFeed(name, baseURL, apiKey string, interval time.Duration, log zerolog.Logger, quotes QuoteSink, events EventSink) *PollFeed {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &PollFeed{
		name:     name,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log.With().Str("provider", name).Logger(),
		quotes:   quotes,
		events:   events,
	}
}

func (f *PollFeed) Name() string { return f.name }

func (f *PollFeed) State() State { return State(atomic.LoadInt32(&f.state)) }

func (f *PollFeed) IsConnected() bool { return f.State() == StateConnected }

func (f *PollFeed) LastUpdate() time.Time {
	ns := atomic.LoadInt64(&f.lastUpdate)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Subscribe replaces the polled symbol set.
func (f *PollFeed) Subscribe(symbols []string) {
	f.mu.Lock()
	f.symbols = append(f.symbols[:0], symbols...)
	f.mu.Unlock()
}

func (f *PollFeed) snapshotSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Connect starts the polling loop. The first successful poll moves the client
// to StateConnected; an auth rejection is terminal.
func (f *PollFeed) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = cancel
	f.mu.Unlock()

	f.setState(StateConnecting, nil)
	go f.run(runCtx)
	return nil
}

// Disconnect stops the polling loop.
func (f *PollFeed) Disconnect() {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	f.setState(StateClosed, nil)
}

func (f *PollFeed) run(ctx context.Context) {
	if err := f.poll(ctx); err != nil {
		f.onPollError(err)
		if f.State() == StateAuthFailed {
			return
		}
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.poll(ctx); err != nil {
				f.onPollError(err)
				if f.State() == StateAuthFailed {
					return
				}
			}
		}
	}
}

func (f *PollFeed) onPollError(err error) {
	if isAuthError(err) {
		f.log.Error().Err(err).Msg("authentication rejected, stopping polls")
		f.setState(StateAuthFailed, err)
		return
	}
	f.log.Warn().Err(err).Msg("poll failed")
	f.setState(StateReconnecting, err)
}

func (f *PollFeed) poll(ctx context.Context) error {
	symbols := f.snapshotSymbols()
	if len(symbols) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("%s/quotes?symbols=%s", f.baseURL, url.QueryEscape(strings.Join(symbols, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrAuthFailed)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	now := time.Now().UTC()
	for _, tick := range payload.Ticks {
		if tick.Symbol == "" || tick.LastPrice <= 0 {
			continue
		}
		ts := now
		if tick.TsMs > 0 {
			ts = time.UnixMilli(tick.TsMs)
		}
		atomic.StoreInt64(&f.lastUpdate, ts.UnixNano())
		if f.quotes != nil {
			f.quotes(market.Quote{
				Symbol:       tick.Symbol,
				LastPrice:    tick.LastPrice,
				Volume:       tick.Volume,
				OpenInterest: tick.OpenInterest,
				Bid:          tick.Bid,
				Ask:          tick.Ask,
				High:         tick.High,
				Low:          tick.Low,
				Open:         tick.Open,
				Timestamp:    ts,
				Source:       f.name,
			})
		}
	}

	f.setState(StateConnected, nil)
	return nil
}

func (f *PollFeed) setState(s State, err error) {
	prev := State(atomic.SwapInt32(&f.state, int32(s)))
	if prev == s {
		return
	}
	if f.events != nil {
		f.events(Event{Provider: f.name, State: s, Err: err, At: time.Now()})
	}
}
