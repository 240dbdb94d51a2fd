package app_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	sqlitedialect "github.com/example/archon/internal/adapters/sqlite"
	"github.com/example/archon/internal/app"
	"github.com/example/archon/internal/config"
	"github.com/example/archon/internal/core/archive"
	"github.com/example/archon/internal/core/partition"
	"github.com/example/archon/internal/core/txn"
	"github.com/example/archon/internal/db"
	"github.com/example/archon/internal/logger"
)

type testApp struct {
	db          *sql.DB
	coord       *txn.Coordinator
	archive     *app.ArchiveServiceImpl
	maintenance *app.MaintenanceServiceImpl
}

// newTestApp wires the services over an in-memory store the way
// internal/wire does for real runs.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// One connection keeps the in-memory database visible to every
	// statement; each new connection would see an empty database.
	testDB.SetMaxOpenConns(1)
	_, err = testDB.Exec(db.GetSchemaSQL())
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })

	dialect := sqlitedialect.New()
	coord := txn.NewCoordinator(testDB, dialect)
	engine := archive.NewEngine(coord, logger.Nop())
	prov := partition.NewProvisioner(testDB, dialect, logger.Nop())

	return &testApp{
		db:          testDB,
		coord:       coord,
		archive:     app.NewArchiveService(engine, config.Default().Archive),
		maintenance: app.NewMaintenanceService(coord, prov, logger.Nop()),
	}
}

func (a *testApp) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, a.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
