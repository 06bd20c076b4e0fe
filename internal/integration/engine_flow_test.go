package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/bus"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/execution"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/feed"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/journal"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/ledger"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/risk"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/scheduler"
	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

// buyOnce signals a single BUY and then stays quiet.
type buyOnce struct{ fired bool }

func (s *buyOnce) Name() string { return "buy-once" }

func (s *buyOnce) Evaluate(w *market.Window) *sig.Signal {
	if s.fired || w.Len() < 3 {
		return nil
	}
	s.fired = true
	last, _ := w.Last()
	return &sig.Signal{Side: sig.Buy, Quantity: 50, PriceHint: last.LastPrice}
}

// TestPaperFlowFillsAndBooks drives the full pipeline on synthetic data: stub
// provider -> failover -> scheduler -> gateway (paper) -> ledger.
func TestPaperFlowFillsAndBooks(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := zerolog.Nop()
	b := bus.New(log)
	defer b.Close()

	fo := feed.NewFailover(log, b, 15*time.Second, 100*time.Millisecond)
	stub := feed.NewStubFeed("stub", 20*time.Millisecond, fo.OnQuote, fo.OnEvent)
	fo.SetFeeds([]feed.Feed{stub})
	fo.Subscribe([]string{"NIFTY"})

	jrnl, err := journal.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	defer jrnl.Close()

	led := ledger.New(log)
	led.Attach(b)

	gate := risk.NewGate(risk.Limits{Capital: 1000000, MaxExposurePct: 1, MaxPositions: 5}, led, log)
	gw, err := execution.NewGateway(execution.Config{Mode: execution.ModePaper}, b, fo, gate, jrnl, nil, log)
	if err != nil {
		t.Fatalf("NewGateway returned error: %v", err)
	}
	gw.Attach(ctx, b)

	sched := scheduler.New(log, b, 30*time.Millisecond, market.Hours{}, 64)
	if err := sched.Register("buy-once", "NIFTY", &buyOnce{}, scheduler.Policy{MinWindow: 3}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	go func() { _ = fo.Run(ctx) }()
	go func() { _ = sched.Run(ctx) }()

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if led.OpenPositionCount() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if led.OpenPositionCount() != 1 {
		t.Fatal("timed out waiting for the paper fill to reach the ledger")
	}

	snap := led.Snapshot()
	pos := snap.Positions[0]
	if pos.Symbol != "NIFTY" || pos.NetQuantity != 50 {
		t.Fatalf("unexpected position %+v", pos)
	}
	if pos.AvgEntryPrice <= 0 {
		t.Fatalf("expected a positive entry price, got %.2f", pos.AvgEntryPrice)
	}

	orders := gw.Orders()
	if len(orders) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(orders))
	}
	if orders[0].Status != execution.StatusFilled {
		t.Fatalf("expected FILLED, got %s (%s)", orders[0].Status, orders[0].Reason)
	}

	// The journal must agree the signal is terminal.
	ids, err := jrnl.TerminalSignalIDs()
	if err != nil {
		t.Fatalf("TerminalSignalIDs returned error: %v", err)
	}
	if _, ok := ids[orders[0].SignalID]; !ok {
		t.Fatalf("filled signal missing from the journal: %v", ids)
	}
}
