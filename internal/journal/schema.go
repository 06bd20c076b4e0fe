package journal

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	price_hint REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	quality_score REAL NOT NULL,
	generated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	signal_id TEXT NOT NULL UNIQUE,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	order_type TEXT NOT NULL,
	requested_price REAL NOT NULL,
	status TEXT NOT NULL,
	broker_order_id TEXT,
	reason_code TEXT,
	reason TEXT,
	submitted_at DATETIME NOT NULL,
	terminal_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
`
