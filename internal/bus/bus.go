// Package bus provides the in-process publish/subscribe router that decouples
// quote ingestion, strategy evaluation, order placement, and position updates.
package bus

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/metrics"
)

// Topic names an ordered event stream.
type Topic string

const (
	// TopicQuotes carries market.Quote values from the active provider.
	TopicQuotes Topic = "quotes"
	// TopicSignals carries signal.Signal values emitted by the scheduler.
	TopicSignals Topic = "signals"
	// TopicFills carries execution.Fill values for the ledger.
	TopicFills Topic = "fills"
	// TopicOrders carries execution.Order values on every status change.
	TopicOrders Topic = "orders"
	// TopicProviders carries feed connectivity and failover events.
	TopicProviders Topic = "providers"
)

// Handler consumes one event payload. Handlers on the same topic run on one
// dispatch goroutine and therefore observe events in publish order.
type Handler func(payload any)

const defaultTopicBuffer = 4096

type topicState struct {
	ch       chan any
	mu       sync.RWMutex
	handlers []Handler
}

// Bus is a single-process event router. Publish never blocks the caller: each
// topic owns a buffered channel drained by one dispatcher goroutine, so a slow
// subscriber delays its own topic only, never the producer.
type Bus struct {
	log    zerolog.Logger
	mu     sync.Mutex
	topics map[Topic]*topicState
	buffer int
	wg     sync.WaitGroup
	done   chan struct{}
	closed bool
}

// Option configures Bus construction.
type Option func(*Bus)

// WithBuffer overrides the per-topic channel capacity.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// New creates a bus; dispatcher goroutines start lazily per topic.
func New(log zerolog.Logger, opts ...Option) *Bus {
	b := &Bus{
		log:    log.With().Str("component", "bus").Logger(),
		topics: make(map[Topic]*topicState),
		buffer: defaultTopicBuffer,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) topic(t Topic) *topicState {
	b.mu.Lock()
	defer b.mu.Unlock()
	ts, ok := b.topics[t]
	if !ok {
		ts = &topicState{ch: make(chan any, b.buffer)}
		b.topics[t] = ts
		b.wg.Add(1)
		go b.dispatch(t, ts)
	}
	return ts
}

// Subscribe registers a handler for a topic. Handlers registered after events
// were published only see subsequent events.
func (b *Bus) Subscribe(t Topic, h Handler) {
	ts := b.topic(t)
	ts.mu.Lock()
	ts.handlers = append(ts.handlers, h)
	ts.mu.Unlock()
}

// Publish enqueues a payload for delivery. Fire-and-forget: if the topic
// buffer is full the event is dropped and counted rather than stalling the
// producer (quote ingestion must never wait on strategy evaluation).
func (b *Bus) Publish(t Topic, payload any) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	ts := b.topic(t)
	select {
	case ts.ch <- payload:
	default:
		metrics.BusDroppedTotal.WithLabelValues(string(t)).Inc()
		b.log.Warn().Str("topic", string(t)).Msg("topic buffer full, event dropped")
	}
}

func (b *Bus) dispatch(t Topic, ts *topicState) {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case payload := <-ts.ch:
			ts.mu.RLock()
			handlers := ts.handlers
			ts.mu.RUnlock()
			for _, h := range handlers {
				b.deliver(t, h, payload)
			}
		}
	}
}

// deliver runs one handler, containing panics so a failing subscriber never
// blocks delivery to other subscribers or future events.
func (b *Bus) deliver(t Topic, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("topic", string(t)).Interface("panic", r).Msg("subscriber panicked")
		}
	}()
	h(payload)
}

// Close stops all dispatchers. Events still buffered are discarded; publishes
// after Close are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()
	b.wg.Wait()
}
