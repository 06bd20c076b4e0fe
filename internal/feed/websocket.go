package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsReadTimeout      = 30 * time.Second
	wsPingInterval     = 15 * time.Second
	wsWriteTimeout     = 5 * time.Second
)

// wsTick is the wire format pushed by the upstream quote stream.
type wsTick struct {
	Symbol       string  `json:"symbol"`
	LastPrice    float64 `json:"ltp"`
	Volume       float64 `json:"volume"`
	OpenInterest float64 `json:"oi"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Open         float64 `json:"open"`
	TsMs         int64   `json:"ts"`
}

type wsSubscribeMsg struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

// WebSocketFeed streams quotes from a push provider. It owns its reconnect
// loop: transient socket errors retry indefinitely with exponential backoff,
// while an authentication rejection parks the client in StateAuthFailed until
// Connect is called again after reconfiguration.
type WebSocketFeed struct {
	name    string
	url     string
	apiKey  string
	backoff Backoff
	log     zerolog.Logger
	quotes  QuoteSink
	events  EventSink

	mu      sync.Mutex
	conn    *websocket.Conn
	symbols []string
	cancel  context.CancelFunc

	state      int32
	lastUpdate int64 // unix nanos
}

// NewWebSocketFeed constructs a push feed client.
func NewWebSocketFeed(name, url, apiKey string, backoff Backoff, log zerolog.Logger, quotes QuoteSink, events EventSink) *WebSocketFeed {
	return &WebSocketFeed{
		name:    name,
		url:     url,
		apiKey:  apiKey,
		backoff: backoff,
		log:     log.With().Str("provider", name).Logger(),
		quotes:  quotes,
		events:  events,
	}
}

func (f *WebSocketFeed) Name() string { return f.name }

func (f *WebSocketFeed) State() State { return State(atomic.LoadInt32(&f.state)) }

func (f *WebSocketFeed) IsConnected() bool { return f.State() == StateConnected }

func (f *WebSocketFeed) LastUpdate() time.Time {
	ns := atomic.LoadInt64(&f.lastUpdate)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Subscribe records the symbol set and pushes a subscription request on the
// live connection if one exists. The set is replayed after every reconnect.
func (f *WebSocketFeed) Subscribe(symbols []string) {
	f.mu.Lock()
	f.symbols = append(f.symbols[:0], symbols...)
	conn := f.conn
	f.mu.Unlock()

	if conn != nil {
		if err := f.sendSubscribe(conn); err != nil {
			f.log.Warn().Err(err).Msg("subscribe request failed")
		}
	}
}

func (f *WebSocketFeed) sendSubscribe(conn *websocket.Conn) error {
	f.mu.Lock()
	symbols := append([]string(nil), f.symbols...)
	f.mu.Unlock()
	if len(symbols) == 0 {
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(wsSubscribeMsg{Action: "subscribe", Symbols: symbols})
}

// Connect dials the provider and starts the read/reconnect loop. An auth
// rejection on the initial dial is returned to the caller; later transitions
// are reported through the event sink only.
func (f *WebSocketFeed) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = cancel
	f.mu.Unlock()

	f.setState(StateConnecting, nil)
	conn, err := f.dial(runCtx)
	if err != nil {
		if isAuthError(err) {
			f.setState(StateAuthFailed, err)
			cancel()
			return fmt.Errorf("%s: %w", f.name, ErrAuthFailed)
		}
		// Transient dial failure: hand over to the reconnect loop.
		f.setState(StateReconnecting, err)
		go f.reconnectLoop(runCtx, 1)
		return nil
	}

	f.adopt(conn)
	go f.readLoop(runCtx, conn)
	return nil
}

// Disconnect tears the connection down and stops reconnecting.
func (f *WebSocketFeed) Disconnect() {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	f.setState(StateClosed, nil)
}

func (f *WebSocketFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	header := http.Header{}
	if f.apiKey != "" {
		header.Set("Authorization", "Bearer "+f.apiKey)
	}
	conn, resp, err := dialer.DialContext(ctx, f.url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("handshake status %d: %w", resp.StatusCode, ErrAuthFailed)
		}
		return nil, err
	}
	return conn, nil
}

func (f *WebSocketFeed) adopt(conn *websocket.Conn) {
	f.mu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.conn = conn
	f.mu.Unlock()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	if err := f.sendSubscribe(conn); err != nil {
		f.log.Warn().Err(err).Msg("resubscribe failed")
	}
	f.setState(StateConnected, nil)
	f.log.Info().Str("url", f.url).Msg("connected market data feed")
}

func (f *WebSocketFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx, conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.Warn().Err(err).Msg("feed disconnected, retrying")
			f.setState(StateReconnecting, err)
			conn.Close()
			f.reconnectLoop(ctx, 1)
			return
		}
		f.handleMessage(message)
	}
}

func (f *WebSocketFeed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.log.Warn().Err(err).Msg("ping failed")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// reconnectLoop retries indefinitely with exponential backoff until the
// context is cancelled or the provider rejects credentials.
func (f *WebSocketFeed) reconnectLoop(ctx context.Context, attempt int) {
	for {
		delay := f.backoff.Next(attempt)
		f.log.Info().Dur("delay", delay).Int("attempt", attempt).Msg("reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		conn, err := f.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if isAuthError(err) {
				f.log.Error().Err(err).Msg("authentication rejected, stopping retries")
				f.setState(StateAuthFailed, err)
				return
			}
			f.log.Warn().Err(err).Msg("reconnect failed")
			f.setState(StateReconnecting, err)
			attempt++
			continue
		}

		f.adopt(conn)
		go f.readLoop(ctx, conn)
		return
	}
}

func (f *WebSocketFeed) handleMessage(message []byte) {
	var tick wsTick
	if err := json.Unmarshal(message, &tick); err != nil {
		f.log.Warn().Err(err).Msg("failed to decode feed message")
		return
	}
	if tick.Symbol == "" || tick.LastPrice <= 0 {
		return
	}
	ts := time.Now().UTC()
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

func (f *WebSocketFeed) setState(s State, err error) {
	prev := State(atomic.SwapInt32(&f.state, int32(s)))
	if prev == s {
		return
	}
	if f.events != nil {
		f.events(Event{Provider: f.name, State: s, Err: err, At: time.Now()})
	}
}

func isAuthError(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}
