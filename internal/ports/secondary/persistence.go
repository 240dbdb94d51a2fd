// Package secondary defines the outbound ports of the archon engine:
// the statement-execution capability the engine needs from a relational
// store, and the dialect surface that keeps the engine SQL-neutral.
package secondary

import (
	"context"
	"database/sql"
	"time"
)

// Querier is the minimal execution capability the engine requires from a
// store handle. Both *sql.DB and *sql.Tx satisfy it, which lets the same
// statement code run inside and outside a coordinated transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect builds the small set of parameterized statements the lifecycle
// engine needs and classifies driver errors into the engine's taxonomy.
// Engine logic never embeds dialect-specific SQL directly.
type Dialect interface {
	// Name identifies the dialect ("postgres", "sqlite").
	Name() string

	// Placeholder returns the bind-parameter marker for 1-based
	// position i ("?" or "$i").
	Placeholder(i int) string

	// EnsureColdTable idempotently creates the cold counterpart of a hot
	// table, including the archived_at and archive_reason metadata
	// columns and a unique index on keyCol so insert-if-absent copies
	// have something to collide on.
	EnsureColdTable(ctx context.Context, q Querier, hot, cold, keyCol string) error

	// SelectAgedIDs returns a statement selecting up to a limit of ids
	// whose aging column is older than a cutoff, optionally restricted
	// to stateCount states and an extra predicate. Args, in order:
	// cutoff, states..., limit. Selection is ordered ascending by id.
	SelectAgedIDs(table, idCol, agingCol string, stateCol string, stateCount int, extraWhere string) string

	// InsertMissing returns a statement copying rows whose keyCol is in
	// an id list from hot into cold, stamping the archive metadata and
	// skipping rows already present. Args: ids.
	InsertMissing(hot, cold, keyCol string, idCount int) string

	// DeleteByColumn returns a statement deleting rows whose column
	// value is in an id list. Args: ids.
	DeleteByColumn(table, col string, idCount int) string

	// DeleteOlderThan returns a statement deleting rows whose column is
	// older than a cutoff. Args: cutoff.
	DeleteOlderThan(table, col string) string

	// MoveAged moves every row older than cutoff from hot to cold in a
	// single round trip where the dialect supports it, returning the
	// moved and deleted row counts. Caller supplies a transactional q.
	MoveAged(ctx context.Context, q Querier, hot, cold, agingCol string, cutoff time.Time) (moved, deleted int64, err error)

	// CreatePartitionDDL returns the statements provisioning a
	// time-bounded child table of parent covering [start, end) plus an
	// index on agingCol. Dialects without native partitioning return an
	// error.
	CreatePartitionDDL(parent, name string, start, end time.Time, agingCol string) ([]string, error)

	// ExpireCacheRows returns a statement deleting cache rows whose
	// per-row TTL has elapsed (fetched_at + ttl_sec before now). No args.
	ExpireCacheRows(table string) string

	// TableExists reports whether a table is present in the store.
	TableExists(ctx context.Context, q Querier, table string) (bool, error)

	// ConnectionCount reports the store's current connection count.
	// Dialects without server-side visibility return ok = false.
	ConnectionCount(ctx context.Context, q Querier) (count int, ok bool, err error)

	// IsSerializationFailure reports a store-detected write conflict.
	IsSerializationFailure(err error) bool
	// IsDeadlock reports a store-detected circular lock wait.
	IsDeadlock(err error) bool
	// IsLockTimeout reports a statement or lock acquisition timeout.
	IsLockTimeout(err error) bool
}
