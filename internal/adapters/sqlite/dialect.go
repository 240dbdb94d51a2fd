// Package sqlite implements the store dialect for SQLite. It backs the
// default local store and the integration-test harness.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/example/archon/internal/ports/secondary"
)

// Dialect builds SQLite statements and classifies go-sqlite3 errors.
type Dialect struct{}

// New returns the SQLite dialect.
func New() *Dialect { return &Dialect{} }

func (*Dialect) Name() string { return "sqlite" }

func (*Dialect) Placeholder(int) string { return "?" }

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// EnsureColdTable creates the cold table from the hot table's shape
// with the archive metadata columns appended, plus a unique index on
// keyCol so INSERT OR IGNORE can skip already-copied rows. SQLite's
// CREATE TABLE AS drops constraints, which is why the index is created
// explicitly.
func (d *Dialect) EnsureColdTable(ctx context.Context, q secondary.Querier, hot, cold, keyCol string) error {
	exists, err := d.TableExists(ctx, q, cold)
	if err != nil {
		return err
	}
	if !exists {
		stmt := fmt.Sprintf(
			"CREATE TABLE %s AS SELECT h.*, CURRENT_TIMESTAMP AS archived_at, 'age_based' AS archive_reason FROM %s h WHERE 0",
			cold, hot)
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create cold table %s: %w", cold, err)
		}
	}
	idx := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", cold, keyCol, cold, keyCol)
	if _, err := q.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("failed to index cold table %s: %w", cold, err)
	}
	return nil
}

func (*Dialect) SelectAgedIDs(table, idCol, agingCol, stateCol string, stateCount int, extraWhere string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s < ?", idCol, table, agingCol)
	if stateCount > 0 {
		fmt.Fprintf(&b, " AND %s IN (%s)", stateCol, placeholders(stateCount))
	}
	if extraWhere != "" {
		fmt.Fprintf(&b, " AND (%s)", extraWhere)
	}
	fmt.Fprintf(&b, " ORDER BY %s LIMIT ?", idCol)
	return b.String()
}

func (*Dialect) InsertMissing(hot, cold, keyCol string, idCount int) string {
	return fmt.Sprintf(
		"INSERT OR IGNORE INTO %s SELECT h.*, CURRENT_TIMESTAMP, 'age_based' FROM %s h WHERE h.%s IN (%s)",
		cold, hot, keyCol, placeholders(idCount))
}

func (*Dialect) DeleteByColumn(table, col string, idCount int) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", table, col, placeholders(idCount))
}

func (*Dialect) DeleteOlderThan(table, col string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s < ?", table, col)
}

// MoveAged has no single-statement form in SQLite; the copy and delete
// run as two statements inside the caller's transaction.
func (d *Dialect) MoveAged(ctx context.Context, q secondary.Querier, hot, cold, agingCol string, cutoff time.Time) (int64, int64, error) {
	res, err := q.ExecContext(ctx, fmt.Sprintf(
		"INSERT OR IGNORE INTO %s SELECT h.*, CURRENT_TIMESTAMP, 'age_based' FROM %s h WHERE h.%s < ?",
		cold, hot, agingCol), cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to move aged rows from %s: %w", hot, err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}

	res, err = q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s < ?", hot, agingCol), cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete moved rows from %s: %w", hot, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	return moved, deleted, nil
}

func (*Dialect) CreatePartitionDDL(parent, name string, start, end time.Time, agingCol string) ([]string, error) {
	return nil, errors.New("sqlite does not support partitioned tables")
}

func (*Dialect) ExpireCacheRows(table string) string {
	return fmt.Sprintf(
		"DELETE FROM %s WHERE datetime(fetched_at, '+' || ttl_sec || ' seconds') < datetime('now')", table)
}

func (*Dialect) TableExists(ctx context.Context, q secondary.Querier, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return n > 0, nil
}

// ConnectionCount is unavailable without a server; callers fall back to
// pool statistics.
func (*Dialect) ConnectionCount(context.Context, secondary.Querier) (int, bool, error) {
	return 0, false, nil
}

// IsSerializationFailure matches SQLITE_BUSY_SNAPSHOT: a deferred
// transaction that cannot be upgraded because another writer committed
// first.
func (*Dialect) IsSerializationFailure(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrBusySnapshot
}

// IsDeadlock is always false; SQLite's single-writer model aborts with
// BUSY/LOCKED instead of detecting lock cycles.
func (*Dialect) IsDeadlock(error) bool { return false }

func (*Dialect) IsLockTimeout(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return (se.Code == sqlite3.ErrBusy && se.ExtendedCode != sqlite3.ErrBusySnapshot) ||
		se.Code == sqlite3.ErrLocked
}
