package batch_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	sqlitedialect "github.com/example/archon/internal/adapters/sqlite"
	"github.com/example/archon/internal/core/batch"
	"github.com/example/archon/internal/core/txn"
	"github.com/example/archon/internal/db"
	"github.com/example/archon/internal/ports/secondary"
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

func insertAuditLog(ctx context.Context, q secondary.Querier, n int) (int, error) {
	_, err := q.ExecContext(ctx,
		"INSERT INTO audit_logs (id, actor, action, created_at) VALUES (?, 'tester', 'write', ?)",
		fmt.Sprintf("AL-%03d", n), time.Now())
	return n, err
}

func countAuditLogs(t *testing.T, testDB *sql.DB) int {
	t.Helper()
	var count int
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM audit_logs").Scan(&count))
	return count
}

func TestProcessRunsAllItems(t *testing.T) {
	coord, testDB := setupCoordinator(t)
	items := []int{1, 2, 3, 4, 5}

	results, err := batch.Process(context.Background(), coord, items, 2, txn.DefaultOptions(), insertAuditLog)
	require.NoError(t, err)
	require.Equal(t, items, results)
	require.Equal(t, 5, countAuditLogs(t, testDB))
}

func TestProcessPreservesItemOrder(t *testing.T) {
	coord, _ := setupCoordinator(t)
	items := []int{10, 20, 30, 40, 50, 60, 70}

	results, err := batch.Process(context.Background(), coord, items, 3, txn.DefaultOptions(),
		func(ctx context.Context, q secondary.Querier, item int) (int, error) {
			return item * 2, nil
		})
	require.NoError(t, err)
	require.Equal(t, []int{20, 40, 60, 80, 100, 120, 140}, results)
}

func TestProcessEmptyItems(t *testing.T) {
	coord, _ := setupCoordinator(t)

	results, err := batch.Process(context.Background(), coord, nil, 10, txn.DefaultOptions(), insertAuditLog)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestProcessFailedChunkRollsBackOnlyItself(t *testing.T) {
	coord, testDB := setupCoordinator(t)
	boom := errors.New("item rejected")
	items := []int{1, 2, 3, 4, 5, 6}

	// Chunk one (items 1-3) commits; item 5 fails chunk two.
	_, err := batch.Process(context.Background(), coord, items, 3, txn.DefaultOptions(),
		func(ctx context.Context, q secondary.Querier, item int) (int, error) {
			if item == 5 {
				return 0, boom
			}
			return insertAuditLog(ctx, q, item)
		})
	require.ErrorIs(t, err, boom)

	// Prior committed chunks survive; the failed chunk leaves nothing.
	require.Equal(t, 3, countAuditLogs(t, testDB))
	var count int
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM audit_logs WHERE id IN ('AL-004', 'AL-005', 'AL-006')").Scan(&count))
	require.Equal(t, 0, count)
}

func TestProcessDefaultsBatchSize(t *testing.T) {
	coord, testDB := setupCoordinator(t)
	items := make([]int, 7)
	for i := range items {
		items[i] = i + 1
	}

	results, err := batch.Process(context.Background(), coord, items, 0, txn.DefaultOptions(), insertAuditLog)
	require.NoError(t, err)
	require.Len(t, results, 7)
	require.Equal(t, 7, countAuditLogs(t, testDB))
}
