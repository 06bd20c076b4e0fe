package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/broker"
)

const defaultConfirmInterval = 2 * time.Second

// Confirmer resolves orders parked in SUBMITTED_PENDING_BROKER by polling the
// venue for their state and feeding confirmations back into the gateway. Live
// mode only; paper fills are synchronous and never pend.
type Confirmer struct {
	log      zerolog.Logger
	gw       *Gateway
	brk      broker.Broker
	interval time.Duration
}

// NewConfirmer builds a poller over the gateway's pending orders.
func NewConfirmer(gw *Gateway, brk broker.Broker, interval time.Duration, log zerolog.Logger) *Confirmer {
	if interval <= 0 {
		interval = defaultConfirmInterval
	}
	return &Confirmer{
		log:      log.With().Str("component", "confirmer").Logger(),
		gw:       gw,
		brk:      brk,
		interval: interval,
	}
}

// Run polls until the context is cancelled.
func (c *Confirmer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Poll(ctx)
		}
	}
}

// Poll checks every pending order once. Exported so tests can drive the
// confirmer without real time. A poll failure leaves the order pending for
// the next pass; non-terminal venue statuses are ignored.
func (c *Confirmer) Poll(ctx context.Context) {
	for _, id := range c.gw.PendingBrokerOrders() {
		upd, err := c.brk.OrderStatus(ctx, id)
		if err != nil {
			c.log.Warn().Err(err).Str("broker_order", id).Msg("status poll failed")
			continue
		}
		switch Status(upd.Status) {
		case StatusFilled:
			c.gw.OnBrokerUpdate(id, StatusFilled, upd.FilledPrice)
		case StatusRejected:
			c.gw.OnBrokerUpdate(id, StatusRejected, 0)
		case StatusCancelled:
			c.gw.OnBrokerUpdate(id, StatusCancelled, 0)
		}
	}
}
