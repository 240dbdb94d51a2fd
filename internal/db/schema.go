package db

// SchemaSQL is the schema for fresh local installs.
//
// This is the single source of truth for the hot tables. All tests use
// it via GetSchemaSQL() so test schemas cannot drift from the one the
// engine runs against. Cold tables are not declared here: the archival
// engine provisions them from the hot table's shape at run time.
//
// PostgreSQL deployments manage the equivalent schema through their own
// migrations; this DDL targets the SQLite dialect.
const SchemaSQL = `
-- Bookings (optimistically locked via the version column)
CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	version INTEGER NOT NULL DEFAULT 1,
	status TEXT NOT NULL DEFAULT 'PENDING' CHECK(status IN ('PENDING', 'CONFIRMED', 'CANCELLED')),
	customer_name TEXT NOT NULL,
	total_price REAL NOT NULL DEFAULT 0,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_bookings_end_date ON bookings(end_date);

CREATE TABLE IF NOT EXISTS booking_flights (
	id TEXT PRIMARY KEY,
	booking_id TEXT NOT NULL,
	flight_no TEXT NOT NULL,
	departs_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (booking_id) REFERENCES bookings(id)
);

CREATE TABLE IF NOT EXISTS booking_hotels (
	id TEXT PRIMARY KEY,
	booking_id TEXT NOT NULL,
	hotel_name TEXT NOT NULL,
	check_in DATETIME,
	check_out DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (booking_id) REFERENCES bookings(id)
);

CREATE TABLE IF NOT EXISTS booking_vehicles (
	id TEXT PRIMARY KEY,
	booking_id TEXT NOT NULL,
	vehicle_class TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (booking_id) REFERENCES bookings(id)
);

CREATE TABLE IF NOT EXISTS settlements (
	id TEXT PRIMARY KEY,
	booking_id TEXT NOT NULL,
	amount REAL NOT NULL DEFAULT 0,
	settled_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (booking_id) REFERENCES bookings(id)
);

-- Messaging
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	sender TEXT NOT NULL,
	body TEXT,
	is_deleted BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS message_reads (
	id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	reader TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Operational logs
CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	entity TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS external_call_logs (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	status_code INTEGER,
	occurred_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Idempotency and outbox
CREATE TABLE IF NOT EXISTS idempotency_keys (
	key TEXT PRIMARY KEY,
	response TEXT,
	ttl DATETIME NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS outbox (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	payload TEXT,
	delivered_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- TTL caches
CREATE TABLE IF NOT EXISTS fx_rate_cache (
	id TEXT PRIMARY KEY,
	base_currency TEXT NOT NULL,
	quote_currency TEXT NOT NULL,
	rate REAL NOT NULL,
	fetched_at DATETIME NOT NULL,
	ttl_sec INTEGER NOT NULL DEFAULT 3600
);

CREATE TABLE IF NOT EXISTS flight_status_cache (
	id TEXT PRIMARY KEY,
	flight_no TEXT NOT NULL,
	status TEXT,
	fetched_at DATETIME NOT NULL,
	ttl_sec INTEGER NOT NULL DEFAULT 300
);
`

// GetSchemaSQL returns the schema DDL.
func GetSchemaSQL() string {
	return SchemaSQL
}
