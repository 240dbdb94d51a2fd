// Package postgres implements the store dialect for PostgreSQL through
// the pgx stdlib driver.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/archon/internal/ports/secondary"
)

// SQLSTATE codes the classifier maps onto the engine taxonomy.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// Dialect builds PostgreSQL statements and classifies pgconn errors.
type Dialect struct{}

// New returns the PostgreSQL dialect.
func New() *Dialect { return &Dialect{} }

func (*Dialect) Name() string { return "postgres" }

func (*Dialect) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }

// placeholders renders $from .. $from+n-1.
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

// EnsureColdTable clones the hot table's shape including indexes and
// constraints, then appends the archive metadata columns. Every
// statement is individually idempotent.
func (*Dialect) EnsureColdTable(ctx context.Context, q secondary.Querier, hot, cold, keyCol string) error {
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (LIKE %s INCLUDING ALL)", cold, hot),
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS archived_at TIMESTAMPTZ DEFAULT NOW()", cold),
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS archive_reason VARCHAR(50) DEFAULT 'age_based'", cold),
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", cold, keyCol, cold, keyCol),
	}
	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure cold table %s: %w", cold, err)
		}
	}
	return nil
}

func (*Dialect) SelectAgedIDs(table, idCol, agingCol, stateCol string, stateCount int, extraWhere string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s < $1", idCol, table, agingCol)
	if stateCount > 0 {
		fmt.Fprintf(&b, " AND %s IN (%s)", stateCol, placeholders(2, stateCount))
	}
	if extraWhere != "" {
		fmt.Fprintf(&b, " AND (%s)", extraWhere)
	}
	fmt.Fprintf(&b, " ORDER BY %s LIMIT $%d", idCol, stateCount+2)
	return b.String()
}

func (*Dialect) InsertMissing(hot, cold, keyCol string, idCount int) string {
	return fmt.Sprintf(
		"INSERT INTO %s SELECT h.*, NOW(), 'age_based' FROM %s h WHERE h.%s IN (%s) ON CONFLICT DO NOTHING",
		cold, hot, keyCol, placeholders(1, idCount))
}

func (*Dialect) DeleteByColumn(table, col string, idCount int) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", table, col, placeholders(1, idCount))
}

func (*Dialect) DeleteOlderThan(table, col string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s < $1", table, col)
}

// MoveAged copies and deletes every aged row in one round trip; the
// moved and deleted counts are scanned from the statement result.
func (*Dialect) MoveAged(ctx context.Context, q secondary.Querier, hot, cold, agingCol string, cutoff time.Time) (int64, int64, error) {
	stmt := fmt.Sprintf(`WITH moved AS (
    INSERT INTO %s SELECT h.*, NOW(), 'age_based' FROM %s h WHERE h.%s < $1
    ON CONFLICT DO NOTHING
    RETURNING 1
), deleted AS (
    DELETE FROM %s WHERE %s < $1
    RETURNING 1
)
SELECT (SELECT COUNT(*) FROM moved), (SELECT COUNT(*) FROM deleted)`,
		cold, hot, agingCol, hot, agingCol)

	var moved, deleted int64
	if err := q.QueryRowContext(ctx, stmt, cutoff).Scan(&moved, &deleted); err != nil {
		return 0, 0, fmt.Errorf("failed to move aged rows from %s: %w", hot, err)
	}
	return moved, deleted, nil
}

func (*Dialect) CreatePartitionDDL(parent, name string, start, end time.Time, agingCol string) ([]string, error) {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM ('%s') TO ('%s')",
			name, parent, start.Format("2006-01-02"), end.Format("2006-01-02")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", name, agingCol, name, agingCol),
	}, nil
}

func (*Dialect) ExpireCacheRows(table string) string {
	return fmt.Sprintf(
		"DELETE FROM %s WHERE fetched_at < NOW() - make_interval(secs => ttl_sec)", table)
}

func (*Dialect) TableExists(ctx context.Context, q secondary.Querier, table string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return exists, nil
}

func (*Dialect) ConnectionCount(ctx context.Context, q secondary.Querier) (int, bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pg_stat_activity WHERE datname = current_database()").Scan(&n)
	if err != nil {
		return 0, true, fmt.Errorf("failed to count connections: %w", err)
	}
	return n, true, nil
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (*Dialect) IsSerializationFailure(err error) bool {
	return sqlState(err) == codeSerializationFailure
}

func (*Dialect) IsDeadlock(err error) bool {
	return sqlState(err) == codeDeadlockDetected
}

func (*Dialect) IsLockTimeout(err error) bool {
	code := sqlState(err)
	return code == codeLockNotAvailable || code == codeQueryCanceled
}
