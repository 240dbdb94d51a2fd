package retention_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	sqlitedialect "github.com/example/archon/internal/adapters/sqlite"
	"github.com/example/archon/internal/core/retention"
	"github.com/example/archon/internal/core/txn"
	"github.com/example/archon/internal/db"
)

func setupCoordinator(t *testing.T) (*txn.Coordinator, *sql.DB) {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	testDB.SetMaxOpenConns(1)
	_, err = testDB.Exec(db.GetSchemaSQL())
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })

	return txn.NewCoordinator(testDB, sqlitedialect.New()), testDB
}

func seedAuditLogs(t *testing.T, testDB *sql.DB, prefix string, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := testDB.Exec(
			"INSERT INTO audit_logs (id, actor, action, created_at) VALUES (?, 'svc', 'write', ?)",
			fmt.Sprintf("%s-%03d", prefix, i), at)
		require.NoError(t, err)
	}
}

func countRows(t *testing.T, testDB *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSweepDeletesOnlyAgedRows(t *testing.T) {
	coord, testDB := setupCoordinator(t)
	now := time.Now().UTC()
	seedAuditLogs(t, testDB, "OLD", 3, now.AddDate(0, 0, -120))
	seedAuditLogs(t, testDB, "NEW", 2, now.AddDate(0, 0, -10))

	counts, err := retention.Sweep(context.Background(), coord, retention.Policies{
		"auditLog": {Table: "audit_logs", AgeColumn: "created_at", MaxAge: 90 * 24 * time.Hour},
	}, now)
	require.NoError(t, err)
	require.Equal(t, int64(3), counts["auditLog"])
	require.Equal(t, 2, countRows(t, testDB, "audit_logs"))
}

func TestSweepReportsPerPolicyCounts(t *testing.T) {
	coord, testDB := setupCoordinator(t)
	now := time.Now().UTC()
	seedAuditLogs(t, testDB, "OLD", 4, now.AddDate(0, 0, -120))

	old := now.AddDate(0, 0, -45)
	for i := 0; i < 2; i++ {
		_, err := testDB.Exec(
			"INSERT INTO external_call_logs (id, provider, status_code, occurred_at) VALUES (?, 'fx', 200, ?)",
			fmt.Sprintf("XC-%03d", i), old)
		require.NoError(t, err)
	}

	counts, err := retention.Sweep(context.Background(), coord, retention.Policies{
		"auditLog":        {Table: "audit_logs", AgeColumn: "created_at", MaxAge: 90 * 24 * time.Hour},
		"externalCallLog": {Table: "external_call_logs", AgeColumn: "occurred_at", MaxAge: 30 * 24 * time.Hour},
	}, now)
	require.NoError(t, err)
	require.Equal(t, int64(4), counts["auditLog"])
	require.Equal(t, int64(2), counts["externalCallLog"])
}

func TestSweepTTLColumnComparesAgainstNow(t *testing.T) {
	coord, testDB := setupCoordinator(t)
	now := time.Now().UTC()

	_, err := testDB.Exec(
		"INSERT INTO idempotency_keys (key, response, ttl) VALUES ('expired', '{}', ?), ('live', '{}', ?)",
		now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	// MaxAge zero: the column holds the expiry instant itself.
	counts, err := retention.Sweep(context.Background(), coord, retention.Policies{
		"idempotencyKey": {Table: "idempotency_keys", AgeColumn: "ttl"},
	}, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts["idempotencyKey"])

	var key string
	require.NoError(t, testDB.QueryRow("SELECT key FROM idempotency_keys").Scan(&key))
	require.Equal(t, "live", key)
}

func TestSweepIsAllOrNothing(t *testing.T) {
	coord, testDB := setupCoordinator(t)
	now := time.Now().UTC()
	seedAuditLogs(t, testDB, "OLD", 3, now.AddDate(0, 0, -120))

	// "auditLog" sorts before "zBroken": its delete executes first
	// inside the shared transaction, then the broken policy forces a
	// rollback of the whole sweep.
	_, err := retention.Sweep(context.Background(), coord, retention.Policies{
		"auditLog": {Table: "audit_logs", AgeColumn: "created_at", MaxAge: 90 * 24 * time.Hour},
		"zBroken":  {Table: "no_such_table", AgeColumn: "created_at", MaxAge: time.Hour},
	}, now)
	require.Error(t, err)
	require.Equal(t, 3, countRows(t, testDB, "audit_logs"))
}

func TestSweepEmptyPolicies(t *testing.T) {
	coord, _ := setupCoordinator(t)

	counts, err := retention.Sweep(context.Background(), coord, nil, time.Now().UTC())
	require.NoError(t, err)
	require.Empty(t, counts)
}
