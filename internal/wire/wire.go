// Package wire constructs the application graph. Everything is built
// explicitly from configuration: the store handle is created once here
// and closed once through App.Close, with no package-level singletons.
package wire

import (
	"database/sql"
	"fmt"

	"github.com/example/archon/internal/app"
	"github.com/example/archon/internal/config"
	"github.com/example/archon/internal/core/archive"
	"github.com/example/archon/internal/core/partition"
	"github.com/example/archon/internal/core/txn"
	"github.com/example/archon/internal/db"
	"github.com/example/archon/internal/logger"
	"github.com/example/archon/internal/ports/primary"
)

// App bundles the constructed services and owns the store handle.
type App struct {
	DB          *sql.DB
	Log         logger.Logger
	Archive     primary.ArchiveService
	Maintenance primary.MaintenanceService
}

// New builds the full application from configuration.
func New(cfg *config.Config) (*App, error) {
	lifetime, err := cfg.Store.ConnMaxLifetimeDuration()
	if err != nil {
		return nil, err
	}

	handle, dialect, err := db.Open(db.Options{
		Driver:          cfg.Store.Driver,
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: lifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)

	coord := txn.NewCoordinator(handle, dialect)
	engine := archive.NewEngine(coord, log)
	prov := partition.NewProvisioner(handle, dialect, log)

	return &App{
		DB:          handle,
		Log:         log,
		Archive:     app.NewArchiveService(engine, cfg.Archive),
		Maintenance: app.NewMaintenanceService(coord, prov, log),
	}, nil
}

// Close releases the store handle.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
