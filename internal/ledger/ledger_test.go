package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/execution"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

func fill(symbol string, side sig.Side, qty, price float64, at time.Time) execution.Fill {
	return execution.Fill{
		OrderID:  "o-" + symbol,
		SignalID: "s-" + symbol,
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		Price:    price,
		At:       at,
	}
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestRoundTrip(t *testing.T) {
	l := New(zerolog.Nop())
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	l.OnFill(fill("NIFTY", sig.Buy, 50, 100, at))

	snap := l.Snapshot()
	if len(snap.Positions) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(snap.Positions))
	}
	pos := snap.Positions[0]
	if pos.NetQuantity != 50 || pos.AvgEntryPrice != 100 {
		t.Fatalf("unexpected position: net=%.2f avg=%.2f", pos.NetQuantity, pos.AvgEntryPrice)
	}

	l.OnQuote(market.Quote{Symbol: "NIFTY", LastPrice: 105, Timestamp: at})
	snap = l.Snapshot()
	if !almost(snap.Positions[0].UnrealizedPnL, 250) {
		t.Fatalf("expected unrealized 250, got %.2f", snap.Positions[0].UnrealizedPnL)
	}

	l.OnFill(fill("NIFTY", sig.Sell, 50, 105, at.Add(time.Minute)))
	snap = l.Snapshot()
	if len(snap.Positions) != 0 {
		t.Fatalf("expected flat book, got %d positions", len(snap.Positions))
	}
	if len(snap.History) != 1 {
		t.Fatalf("expected 1 closed position, got %d", len(snap.History))
	}
	if !almost(snap.History[0].RealizedPnL, 250) {
		t.Fatalf("expected realized 250, got %.2f", snap.History[0].RealizedPnL)
	}
	if !almost(snap.Totals.TotalPnL, 250) || !almost(snap.Totals.UnrealizedPnL, 0) {
		t.Fatalf("unexpected totals: %+v", snap.Totals)
	}
}

func TestAvgEntryBlending(t *testing.T) {
	l := New(zerolog.Nop())
	at := time.Now()

	l.OnFill(fill("NIFTY", sig.Buy, 50, 100, at))
	l.OnFill(fill("NIFTY", sig.Buy, 50, 110, at))

	snap := l.Snapshot()
	pos := snap.Positions[0]
	if pos.NetQuantity != 100 || !almost(pos.AvgEntryPrice, 105) {
		t.Fatalf("expected net 100 avg 105, got net=%.2f avg=%.2f", pos.NetQuantity, pos.AvgEntryPrice)
	}
}

func TestPartialCloseKeepsAvg(t *testing.T) {
	l := New(zerolog.Nop())
	at := time.Now()

	l.OnFill(fill("NIFTY", sig.Buy, 100, 100, at))
	l.OnFill(fill("NIFTY", sig.Sell, 40, 110, at))

	snap := l.Snapshot()
	pos := snap.Positions[0]
	if pos.NetQuantity != 60 {
		t.Fatalf("expected net 60, got %.2f", pos.NetQuantity)
	}
	if !almost(pos.AvgEntryPrice, 100) {
		t.Fatalf("partial close must not move avg entry, got %.2f", pos.AvgEntryPrice)
	}
	if !almost(pos.RealizedPnL, 400) {
		t.Fatalf("expected realized 400, got %.2f", pos.RealizedPnL)
	}
}

func TestFlipOpensRemainderAtFillPrice(t *testing.T) {
	l := New(zerolog.Nop())
	at := time.Now()

	l.OnFill(fill("NIFTY", sig.Buy, 50, 100, at))
	l.OnFill(fill("NIFTY", sig.Sell, 80, 110, at))

	snap := l.Snapshot()
	if len(snap.History) != 1 {
		t.Fatalf("expected closed long, got %d history rows", len(snap.History))
	}
	if !almost(snap.History[0].RealizedPnL, 500) {
		t.Fatalf("expected realized 500 on the closed long, got %.2f", snap.History[0].RealizedPnL)
	}
	pos := snap.Positions[0]
	if pos.NetQuantity != -30 || !almost(pos.AvgEntryPrice, 110) {
		t.Fatalf("expected short 30 @ 110, got net=%.2f avg=%.2f", pos.NetQuantity, pos.AvgEntryPrice)
	}
}

func TestShortSidePnL(t *testing.T) {
	l := New(zerolog.Nop())
	at := time.Now()

	l.OnFill(fill("BANKNIFTY", sig.Sell, 25, 200, at))
	l.OnQuote(market.Quote{Symbol: "BANKNIFTY", LastPrice: 190, Timestamp: at})

	snap := l.Snapshot()
	if !almost(snap.Positions[0].UnrealizedPnL, 250) {
		t.Fatalf("expected short unrealized 250, got %.2f", snap.Positions[0].UnrealizedPnL)
	}

	l.OnFill(fill("BANKNIFTY", sig.Buy, 25, 190, at))
	snap = l.Snapshot()
	if !almost(snap.Totals.RealizedPnL, 250) {
		t.Fatalf("expected realized 250 covering the short, got %.2f", snap.Totals.RealizedPnL)
	}
}

func TestExposureAndCounts(t *testing.T) {
	l := New(zerolog.Nop())
	at := time.Now()

	l.OnFill(fill("NIFTY", sig.Buy, 10, 100, at))
	l.OnFill(fill("BANKNIFTY", sig.Sell, 5, 200, at))
	l.OnQuote(market.Quote{Symbol: "NIFTY", LastPrice: 120, Timestamp: at})

	if n := l.OpenPositionCount(); n != 2 {
		t.Fatalf("expected 2 open positions, got %d", n)
	}
	if !l.HasOpenPosition("NIFTY") || l.HasOpenPosition("FINNIFTY") {
		t.Fatalf("unexpected HasOpenPosition answers")
	}
	// NIFTY marked at 120, BANKNIFTY falls back to its entry price.
	if exp := l.Exposure(); !almost(exp, 10*120+5*200) {
		t.Fatalf("unexpected exposure %.2f", exp)
	}
}

func TestDailyRealizedResets(t *testing.T) {
	l := New(zerolog.Nop())
	day1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	l.OnFill(fill("NIFTY", sig.Buy, 10, 100, day1))
	l.OnFill(fill("NIFTY", sig.Sell, 10, 90, day1.Add(time.Hour)))
	if pnl := l.DailyRealizedPnL(); !almost(pnl, -100) {
		t.Fatalf("expected daily -100, got %.2f", pnl)
	}

	day2 := day1.Add(24 * time.Hour)
	l.OnFill(fill("NIFTY", sig.Buy, 10, 100, day2))
	if pnl := l.DailyRealizedPnL(); !almost(pnl, 0) {
		t.Fatalf("expected daily counter reset, got %.2f", pnl)
	}
	snap := l.Snapshot()
	if !almost(snap.Totals.RealizedPnL, -100) {
		t.Fatalf("cumulative realized must survive the day roll, got %.2f", snap.Totals.RealizedPnL)
	}
}
