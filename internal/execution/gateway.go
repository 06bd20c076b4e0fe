package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/broker"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/bus"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/journal"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/metrics"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/risk"
	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

// Execution modes.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// QuoteSource yields the freshest usable quote for a symbol, or false when
// none is live.
type QuoteSource interface {
	CurrentQuote(symbol string) (market.Quote, bool)
}

// Journaler is the durable store the gateway writes through. Signals are
// journaled before any order action.
type Journaler interface {
	RecordSignal(s sig.Signal) error
	RecordOrder(o journal.OrderRecord) error
	UpdateOrder(orderID, status, brokerOrderID, reasonCode, reason string, terminalAt *time.Time) error
}

// RiskChecker vetoes signals before submission.
type RiskChecker interface {
	Check(s sig.Signal, refPrice float64) *risk.Violation
}

// Config tunes gateway behaviour.
type Config struct {
	Mode         string
	SlippageBps  float64
	RetryMax     int
	RetryBackoff time.Duration
}

// Gateway is the sole entry point for turning signals into orders. It owns
// the idempotency map: at most one order ever exists per signal id.
type Gateway struct {
	log    zerolog.Logger
	cfg    Config
	bus    *bus.Bus
	quotes QuoteSource
	gate   RiskChecker
	jrnl   Journaler
	broker broker.Broker
	now    func() time.Time

	mu       sync.Mutex
	orders   map[string]*Order // order id -> order
	bySignal map[string]*Order // signal id -> order
	byBroker map[string]*Order // broker order id -> order
	terminal map[string]struct{}
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithBroker sets the live venue adapter. Required in live mode.
func WithBroker(b broker.Broker) Option {
	return func(g *Gateway) { g.broker = b }
}

// WithClock substitutes the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// NewGateway builds a gateway. terminalSignals seeds the dedupe set from the
// journal so a restart never re-submits completed work. Live mode without a
// broker adapter is a configuration error.
func NewGateway(cfg Config, b *bus.Bus, quotes QuoteSource, gate RiskChecker, jrnl Journaler, terminalSignals map[string]struct{}, log zerolog.Logger, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		log:      log.With().Str("component", "gateway").Logger(),
		cfg:      cfg,
		bus:      b,
		quotes:   quotes,
		gate:     gate,
		jrnl:     jrnl,
		now:      time.Now,
		orders:   make(map[string]*Order),
		bySignal: make(map[string]*Order),
		byBroker: make(map[string]*Order),
		terminal: make(map[string]struct{}),
	}
	for id := range terminalSignals {
		g.terminal[id] = struct{}{}
	}
	for _, opt := range opts {
		opt(g)
	}
	if cfg.Mode == ModeLive && g.broker == nil {
		return nil, fmt.Errorf("live mode requires a broker adapter")
	}
	return g, nil
}

// Attach subscribes the gateway to the signal topic.
func (g *Gateway) Attach(ctx context.Context, b *bus.Bus) {
	b.Subscribe(bus.TopicSignals, func(payload any) {
		if s, ok := payload.(sig.Signal); ok {
			g.Submit(ctx, s)
		}
	})
}

// Submit processes one signal end to end and returns the resulting order.
// Re-submitting a signal id returns the original order untouched; the
// idempotency check and registration happen under one lock, so concurrent
// duplicates observe the winner's reservation.
func (g *Gateway) Submit(ctx context.Context, s sig.Signal) (*Order, error) {
	g.mu.Lock()
	if o, ok := g.bySignal[s.ID]; ok {
		cp := o.copyLocked()
		g.mu.Unlock()
		return cp, nil
	}
	if _, done := g.terminal[s.ID]; done {
		g.mu.Unlock()
		g.log.Debug().Str("signal", s.ID).Msg("signal already terminal, skipping")
		return nil, nil
	}
	o := &Order{
		ID:        uuid.NewString(),
		SignalID:  s.ID,
		Symbol:    s.Symbol,
		Side:      s.Side,
		Quantity:  s.Quantity,
		OrderType: "MARKET",
		Status:    StatusCreated,
	}
	g.orders[o.ID] = o
	g.bySignal[s.ID] = o
	g.mu.Unlock()

	// Durability before action. A failed write releases the reservation so a
	// redelivery of the same signal can try again.
	if err := g.jrnl.RecordSignal(s); err != nil {
		g.mu.Lock()
		delete(g.orders, o.ID)
		delete(g.bySignal, s.ID)
		g.mu.Unlock()
		g.log.Error().Err(err).Str("signal", s.ID).Msg("journal signal failed")
		return nil, fmt.Errorf("journal signal %s: %w", s.ID, err)
	}

	if err := s.Validate(); err != nil {
		g.rejectNew(o, ReasonInvalidSignal, err.Error())
		return g.snapshot(o.ID), nil
	}

	refPrice, havePrice := g.referencePrice(s)
	if v := g.gate.Check(s, refPrice); v != nil {
		g.rejectNew(o, ReasonRiskViolation, fmt.Sprintf("%s: %s", v.Code, v.Msg))
		return g.snapshot(o.ID), nil
	}

	if g.cfg.Mode == ModePaper && !havePrice {
		g.rejectNew(o, ReasonNoMarketData, "no live quote or price hint for "+s.Symbol)
		return g.snapshot(o.ID), nil
	}

	g.mu.Lock()
	o.RequestedPrice = refPrice
	o.SubmittedAt = g.now()
	o.Status = StatusSubmitted
	row := g.journalRow(o)
	g.mu.Unlock()
	if err := g.jrnl.RecordOrder(row); err != nil {
		g.log.Error().Err(err).Str("order", o.ID).Msg("journal order failed")
	}
	g.publishOrder(o)

	switch g.cfg.Mode {
	case ModeLive:
		g.submitLive(ctx, o)
	default:
		g.fillPaper(o)
	}
	return g.snapshot(o.ID), nil
}

// referencePrice prefers the live quote adjusted for nothing; falls back to
// the signal's hint.
func (g *Gateway) referencePrice(s sig.Signal) (float64, bool) {
	if q, ok := g.quotes.CurrentQuote(s.Symbol); ok && q.LastPrice > 0 {
		return q.LastPrice, true
	}
	if s.PriceHint > 0 {
		return s.PriceHint, true
	}
	return 0, false
}

// fillPaper simulates an immediate fill at the reference price worsened by
// the configured slippage.
func (g *Gateway) fillPaper(o *Order) {
	at := g.now()
	g.mu.Lock()
	price := o.RequestedPrice
	slip := price * g.cfg.SlippageBps / 10000
	if o.Side == sig.Buy {
		price += slip
	} else {
		price -= slip
	}
	if err := o.transition(StatusFilled, at); err != nil {
		g.mu.Unlock()
		g.log.Error().Err(err).Str("order", o.ID).Msg("paper fill transition")
		return
	}
	g.terminal[o.SignalID] = struct{}{}
	g.mu.Unlock()

	g.finishOrder(o, "", "")
	g.bus.Publish(bus.TopicFills, Fill{
		OrderID:  o.ID,
		SignalID: o.SignalID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Quantity: o.Quantity,
		Price:    price,
		At:       at,
	})
	g.log.Info().
		Str("order", o.ID).
		Str("symbol", o.Symbol).
		Str("side", string(o.Side)).
		Float64("qty", o.Quantity).
		Float64("price", price).
		Msg("paper fill")
}

// submitLive places the order with the broker, retrying transient failures a
// bounded number of times. Auth failures are terminal immediately.
func (g *Gateway) submitLive(ctx context.Context, o *Order) {
	req := broker.PlaceOrderRequest{
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Side:      string(o.Side),
		Quantity:  o.Quantity,
		OrderType: o.OrderType,
	}

	var lastErr error
	for attempt := 0; attempt <= g.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				g.reject(o, ReasonBrokerError, "shutdown during submit")
				return
			case <-time.After(g.cfg.RetryBackoff):
			}
		}
		brokerID, err := g.broker.PlaceOrder(ctx, req)
		if err == nil {
			g.mu.Lock()
			if terr := o.transition(StatusSubmittedPendingBrkr, g.now()); terr != nil {
				g.mu.Unlock()
				g.log.Error().Err(terr).Str("order", o.ID).Msg("pending transition")
				return
			}
			o.BrokerOrderID = brokerID
			g.byBroker[brokerID] = o
			g.mu.Unlock()
			if jerr := g.jrnl.UpdateOrder(o.ID, string(StatusSubmittedPendingBrkr), brokerID, "", "", nil); jerr != nil {
				g.log.Error().Err(jerr).Str("order", o.ID).Msg("journal update failed")
			}
			g.publishOrder(o)
			g.log.Info().Str("order", o.ID).Str("broker_order", brokerID).Msg("order placed")
			return
		}
		if broker.IsAuth(err) {
			g.reject(o, ReasonBrokerAuth, err.Error())
			return
		}
		lastErr = err
		if !broker.IsTransient(err) {
			break
		}
		g.log.Warn().Err(err).Str("order", o.ID).Int("attempt", attempt+1).Msg("broker submit retry")
	}
	g.reject(o, ReasonBrokerError, fmt.Sprintf("submit failed: %v", lastErr))
}

// OnBrokerUpdate applies an asynchronous venue confirmation for a pending
// order. Unknown broker order ids are ignored with a warning.
func (g *Gateway) OnBrokerUpdate(brokerOrderID string, status Status, price float64) {
	g.mu.Lock()
	o, ok := g.byBroker[brokerOrderID]
	g.mu.Unlock()
	if !ok {
		g.log.Warn().Str("broker_order", brokerOrderID).Msg("update for unknown order")
		return
	}

	at := g.now()
	switch status {
	case StatusFilled:
		g.mu.Lock()
		if err := o.transition(StatusFilled, at); err != nil {
			g.mu.Unlock()
			g.log.Error().Err(err).Str("order", o.ID).Msg("fill transition")
			return
		}
		g.terminal[o.SignalID] = struct{}{}
		g.mu.Unlock()
		g.finishOrder(o, "", "")
		g.bus.Publish(bus.TopicFills, Fill{
			OrderID:  o.ID,
			SignalID: o.SignalID,
			Symbol:   o.Symbol,
			Side:     o.Side,
			Quantity: o.Quantity,
			Price:    price,
			At:       at,
		})
	case StatusRejected:
		g.reject(o, ReasonBrokerError, "rejected by broker")
	case StatusCancelled:
		g.mu.Lock()
		if err := o.transition(StatusCancelled, at); err != nil {
			g.mu.Unlock()
			g.log.Error().Err(err).Str("order", o.ID).Msg("cancel transition")
			return
		}
		g.terminal[o.SignalID] = struct{}{}
		g.mu.Unlock()
		g.finishOrder(o, "", "")
	default:
		g.log.Warn().Str("order", o.ID).Str("status", string(status)).Msg("unhandled broker status")
	}
}

// Cancel asks the venue to cancel a pending order, then marks it cancelled.
// Paper orders fill instantly so there is nothing to cancel.
func (g *Gateway) Cancel(ctx context.Context, orderID string) error {
	g.mu.Lock()
	o, ok := g.orders[orderID]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if o.IsTerminal() {
		return fmt.Errorf("%w: %s already %s", ErrInvalidTransition, orderID, o.Status)
	}

	if g.cfg.Mode == ModeLive && o.BrokerOrderID != "" {
		if err := g.broker.CancelOrder(ctx, o.BrokerOrderID); err != nil {
			return fmt.Errorf("cancel order %s: %w", orderID, err)
		}
	}

	g.mu.Lock()
	if err := o.transition(StatusCancelled, g.now()); err != nil {
		g.mu.Unlock()
		return err
	}
	g.terminal[o.SignalID] = struct{}{}
	g.mu.Unlock()
	g.finishOrder(o, "", "")
	return nil
}

// Order returns a copy of the tracked order, or ErrUnknownOrder.
func (g *Gateway) Order(orderID string) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	return o.copyLocked(), nil
}

// PendingBrokerOrders lists broker order ids still awaiting venue
// confirmation.
func (g *Gateway) PendingBrokerOrders() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.byBroker))
	for id, o := range g.byBroker {
		if o.Status == StatusSubmittedPendingBrkr {
			out = append(out, id)
		}
	}
	return out
}

// Orders returns copies of every tracked order.
func (g *Gateway) Orders() []*Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Order, 0, len(g.orders))
	for _, o := range g.orders {
		out = append(out, o.copyLocked())
	}
	return out
}

// rejectNew finalizes an order that never left CREATED.
func (g *Gateway) rejectNew(o *Order, code, reason string) {
	at := g.now()
	g.mu.Lock()
	o.Status = StatusRejected
	o.ReasonCode = code
	o.Reason = reason
	o.SubmittedAt = at
	o.TerminalAt = &at
	g.terminal[o.SignalID] = struct{}{}
	row := g.journalRow(o)
	g.mu.Unlock()
	if err := g.jrnl.RecordOrder(row); err != nil {
		g.log.Error().Err(err).Str("order", o.ID).Msg("journal order failed")
	}
	metrics.OrdersTotal.WithLabelValues(o.Symbol, string(o.Side), string(o.Status)).Inc()
	g.publishOrder(o)
	g.log.Warn().
		Str("order", o.ID).
		Str("signal", o.SignalID).
		Str("code", code).
		Msg(reason)
}

// reject moves an in-flight order to REJECTED.
func (g *Gateway) reject(o *Order, code, reason string) {
	g.mu.Lock()
	if err := o.transition(StatusRejected, g.now()); err != nil {
		g.mu.Unlock()
		g.log.Error().Err(err).Str("order", o.ID).Msg("reject transition")
		return
	}
	g.terminal[o.SignalID] = struct{}{}
	g.mu.Unlock()
	g.finishOrder(o, code, reason)
	g.log.Warn().Str("order", o.ID).Str("code", code).Msg(reason)
}

// finishOrder journals, counts, and publishes a terminal transition.
func (g *Gateway) finishOrder(o *Order, code, reason string) {
	g.mu.Lock()
	if code != "" {
		o.ReasonCode = code
		o.Reason = reason
	}
	row := g.journalRow(o)
	g.mu.Unlock()
	if err := g.jrnl.UpdateOrder(row.ID, row.Status, row.BrokerOrderID, row.ReasonCode, row.Reason, row.TerminalAt); err != nil {
		g.log.Error().Err(err).Str("order", row.ID).Msg("journal update failed")
	}
	metrics.OrdersTotal.WithLabelValues(row.Symbol, row.Side, row.Status).Inc()
	g.publishOrder(o)
}

func (g *Gateway) snapshot(orderID string) *Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	if o, ok := g.orders[orderID]; ok {
		return o.copyLocked()
	}
	return nil
}

func (g *Gateway) publishOrder(o *Order) {
	g.mu.Lock()
	cp := o.copyLocked()
	g.mu.Unlock()
	g.bus.Publish(bus.TopicOrders, *cp)
}

func (g *Gateway) journalRow(o *Order) journal.OrderRecord {
	return journal.OrderRecord{
		ID:             o.ID,
		SignalID:       o.SignalID,
		Symbol:         o.Symbol,
		Side:           string(o.Side),
		Quantity:       o.Quantity,
		OrderType:      o.OrderType,
		RequestedPrice: o.RequestedPrice,
		Status:         string(o.Status),
		BrokerOrderID:  o.BrokerOrderID,
		ReasonCode:     o.ReasonCode,
		Reason:         o.Reason,
		SubmittedAt:    o.SubmittedAt,
		TerminalAt:     o.TerminalAt,
	}
}

// copyLocked returns a value copy; callers must hold g.mu when the order is
// shared (freshly built orders are safe to copy unlocked).
func (o *Order) copyLocked() *Order {
	cp := *o
	if o.TerminalAt != nil {
		t := *o.TerminalAt
		cp.TerminalAt = &t
	}
	return &cp
}
