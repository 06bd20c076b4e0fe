// Package journal persists signals and orders to SQLite so a restart can
// detect already-processed work. Signals are recorded before any order
// action is taken.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	sig "github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/signal"
)

// OrderRecord is the persisted view of an order.
type OrderRecord struct {
	ID             string
	SignalID       string
	Symbol         string
	Side           string
	Quantity       float64
	OrderType      string
	RequestedPrice float64
	Status         string
	BrokerOrderID  string
	ReasonCode     string
	Reason         string
	SubmittedAt    time.Time
	TerminalAt     *time.Time
}

// Journal is a SQLite-backed store for signals and order lifecycles.
type Journal struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the journal database at path.
func NewSQLite(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// RecordSignal durably stores a signal. Idempotent on signal id.
func (j *Journal) RecordSignal(s sig.Signal) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO signals
		(id, strategy, symbol, side, quantity, price_hint, stop_loss, take_profit, quality_score, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Strategy, s.Symbol, string(s.Side), s.Quantity,
		s.PriceHint, s.StopLoss, s.TakeProfit, s.QualityScore, s.GeneratedAt,
	)
	return err
}

// RecordOrder stores a freshly created order row.
func (j *Journal) RecordOrder(o OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO orders
		(id, signal_id, symbol, side, quantity, order_type, requested_price, status, broker_order_id, reason_code, reason, submitted_at, terminal_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.SignalID, o.Symbol, o.Side, o.Quantity, o.OrderType,
		o.RequestedPrice, o.Status, o.BrokerOrderID, o.ReasonCode, o.Reason,
		o.SubmittedAt, o.TerminalAt,
	)
	return err
}

// UpdateOrder records a status transition for an existing order.
func (j *Journal) UpdateOrder(orderID, status, brokerOrderID, reasonCode, reason string, terminalAt *time.Time) error {
	_, err := j.db.Exec(`
		UPDATE orders
		SET status = ?, broker_order_id = ?, reason_code = ?, reason = ?, terminal_at = ?
		WHERE id = ?`,
		status, brokerOrderID, reasonCode, reason, terminalAt, orderID,
	)
	return err
}

// TerminalSignalIDs returns the ids of signals whose order already reached a
// terminal status, so a restarted gateway never re-submits them.
func (j *Journal) TerminalSignalIDs() (map[string]struct{}, error) {
	rows, err := j.db.Query(`
		SELECT signal_id FROM orders
		WHERE status IN ('FILLED', 'REJECTED', 'CANCELLED')`)
	if err != nil {
		return nil, fmt.Errorf("query terminal signals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan signal id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
