// Package archive implements the batch archival engine: aged rows in
// terminal states are copied, with their dependent child rows, into
// parallel cold tables using insert-if-absent semantics, then deleted
// from the hot tables, batch by batch until the source is exhausted.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/archon/internal/core/txn"
	"github.com/example/archon/internal/logger"
	"github.com/example/archon/internal/ports/secondary"
)

const (
	// DefaultBatchSize bounds how many parent rows one transaction
	// migrates.
	DefaultBatchSize = 1000
	// DefaultColdSuffix names cold tables after their hot source.
	DefaultColdSuffix = "_archive"
)

// Config controls one archival invocation.
type Config struct {
	// RetentionPeriod keeps rows younger than now - RetentionPeriod in
	// the hot table.
	RetentionPeriod time.Duration
	// BatchSize must be positive; a batch selecting fewer rows signals
	// exhaustion.
	BatchSize int
	// ColdTableSuffix is appended to hot table names to form their
	// cold counterparts.
	ColdTableSuffix string
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ColdTableSuffix == "" {
		c.ColdTableSuffix = DefaultColdSuffix
	}
	return c
}

// Child describes a dependent table migrated and deleted alongside its
// parent rows.
type Child struct {
	Table string
	// ParentKey is the child column referencing the parent id.
	ParentKey string
	// IDColumn is the child's own primary key, "id" when empty.
	IDColumn string
}

func (c Child) idColumn() string {
	if c.IDColumn == "" {
		return "id"
	}
	return c.IDColumn
}

// Spec describes one archivable entity.
type Spec struct {
	// Entity is the logical name reported in results.
	Entity string
	Table  string
	// IDColumn is the parent primary key column.
	IDColumn string
	// AgingColumn carries the timestamp the cutoff predicate tests.
	AgingColumn string
	// StateColumn and TerminalStates restrict archival to finished
	// records; active rows are never migrated. Optional.
	StateColumn    string
	TerminalStates []string
	// ExtraWhere is an additional predicate fragment without bind
	// parameters, e.g. soft-delete gating. Optional.
	ExtraWhere string
	Children   []Child
}

// Result accumulates counts across all batches of one invocation.
// On failure Err is populated and the counts up to the last committed
// batch are preserved: archival is resumable, so a re-invocation picks
// up the remaining aged rows.
type Result struct {
	Entity        string        `json:"entityName"`
	RunID         string        `json:"runId"`
	MigratedCount int64         `json:"migratedCount"`
	DeletedCount  int64         `json:"deletedCount"`
	Duration      time.Duration `json:"durationMs"`
	Err           string        `json:"error,omitempty"`
}

// Engine drives archival through a transaction coordinator. It is
// stateless between invocations; the store is the sole system of
// record, which is what makes every run safely re-invocable after a
// crash.
type Engine struct {
	coord *txn.Coordinator
	log   logger.Logger
	opts  txn.Options
	now   func() time.Time
}

// NewEngine creates an archival engine using default transaction
// options for its per-batch transactions.
func NewEngine(coord *txn.Coordinator, log logger.Logger) *Engine {
	return &Engine{
		coord: coord,
		log:   log,
		opts:  txn.DefaultOptions(),
		now:   time.Now,
	}
}

type batchOutcome struct {
	selected int
	migrated int64
	deleted  int64
}

// Run archives every row of spec matching the cutoff predicate, one
// batch-sized transaction at a time, and returns the accumulated
// result. Errors stop the loop and are surfaced as data on the result,
// never as a raised error, so callers always get the partial progress.
func (e *Engine) Run(ctx context.Context, spec Spec, cfg Config) Result {
	cfg = cfg.withDefaults()
	start := e.now()
	cutoff := start.Add(-cfg.RetentionPeriod)

	res := Result{Entity: spec.Entity, RunID: uuid.NewString()}
	log := e.log.With(logger.String("entity", spec.Entity), logger.String("run_id", res.RunID))

	if err := e.ensureColdTables(ctx, spec, cfg); err != nil {
		res.Err = err.Error()
		res.Duration = e.now().Sub(start)
		return res
	}

	for {
		out, err := txn.Run(ctx, e.coord, e.opts, func(ctx context.Context, q secondary.Querier) (batchOutcome, error) {
			return e.archiveBatch(ctx, q, spec, cfg, cutoff)
		})
		if err != nil {
			log.Error("archival batch failed", logger.Err(err))
			res.Err = err.Error()
			break
		}
		if out.selected == 0 {
			break
		}

		res.MigratedCount += out.migrated
		res.DeletedCount += out.deleted
		log.Debug("archival batch committed",
			logger.Int("selected", out.selected),
			logger.Int64("migrated", out.migrated),
			logger.Int64("deleted", out.deleted))

		if out.selected < cfg.BatchSize {
			break
		}
	}

	res.Duration = e.now().Sub(start)
	log.Info("archival finished",
		logger.Int64("migrated", res.MigratedCount),
		logger.Int64("deleted", res.DeletedCount),
		logger.Duration("duration", res.Duration))
	return res
}

// RunMove archives every aged row of spec into the given cold table in
// one transactional move statement, for entities whose migration is a
// single unconditional sweep rather than a batched copy (audit logs).
// The moved and deleted counts come from the statement result.
func (e *Engine) RunMove(ctx context.Context, spec Spec, cold string, cfg Config) Result {
	cfg = cfg.withDefaults()
	start := e.now()
	cutoff := start.Add(-cfg.RetentionPeriod)
	d := e.coord.Dialect()

	res := Result{Entity: spec.Entity, RunID: uuid.NewString()}

	if err := d.EnsureColdTable(ctx, e.coord.DB(), spec.Table, cold, spec.IDColumn); err != nil {
		res.Err = fmt.Errorf("failed to ensure cold table %s: %w", cold, err).Error()
		res.Duration = e.now().Sub(start)
		return res
	}

	err := e.coord.Run(ctx, e.opts, func(ctx context.Context, q secondary.Querier) error {
		moved, deleted, err := d.MoveAged(ctx, q, spec.Table, cold, spec.AgingColumn, cutoff)
		if err != nil {
			return err
		}
		res.MigratedCount = moved
		res.DeletedCount = deleted
		return nil
	})
	if err != nil {
		e.log.Error("move archival failed", logger.String("entity", spec.Entity), logger.Err(err))
		res.MigratedCount = 0
		res.DeletedCount = 0
		res.Err = err.Error()
	}
	res.Duration = e.now().Sub(start)
	return res
}

func (e *Engine) ensureColdTables(ctx context.Context, spec Spec, cfg Config) error {
	d := e.coord.Dialect()
	db := e.coord.DB()

	if err := d.EnsureColdTable(ctx, db, spec.Table, spec.Table+cfg.ColdTableSuffix, spec.IDColumn); err != nil {
		return fmt.Errorf("failed to ensure cold table for %s: %w", spec.Table, err)
	}
	for _, child := range spec.Children {
		if err := d.EnsureColdTable(ctx, db, child.Table, child.Table+cfg.ColdTableSuffix, child.idColumn()); err != nil {
			return fmt.Errorf("failed to ensure cold table for %s: %w", child.Table, err)
		}
	}
	return nil
}

// archiveBatch runs one select-copy-delete cycle inside an open
// transaction. Copies use insert-if-absent so a crash between copy and
// delete makes the next attempt a no-op for rows already in cold
// storage.
func (e *Engine) archiveBatch(ctx context.Context, q secondary.Querier, spec Spec, cfg Config, cutoff time.Time) (batchOutcome, error) {
	d := e.coord.Dialect()
	var out batchOutcome

	ids, err := e.selectBatch(ctx, q, spec, cfg, cutoff)
	if err != nil {
		return out, err
	}
	out.selected = len(ids)
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := q.ExecContext(ctx, d.InsertMissing(spec.Table, spec.Table+cfg.ColdTableSuffix, spec.IDColumn, len(ids)), args...)
	if err != nil {
		return out, fmt.Errorf("failed to copy %s rows: %w", spec.Table, err)
	}
	out.migrated, err = res.RowsAffected()
	if err != nil {
		return out, fmt.Errorf("failed to read copied count: %w", err)
	}

	for _, child := range spec.Children {
		if _, err := q.ExecContext(ctx, d.InsertMissing(child.Table, child.Table+cfg.ColdTableSuffix, child.ParentKey, len(ids)), args...); err != nil {
			return out, fmt.Errorf("failed to copy %s rows: %w", child.Table, err)
		}
	}

	// Children first, then parents, restricted to exactly the copied ids.
	for _, child := range spec.Children {
		if _, err := q.ExecContext(ctx, d.DeleteByColumn(child.Table, child.ParentKey, len(ids)), args...); err != nil {
			return out, fmt.Errorf("failed to delete %s rows: %w", child.Table, err)
		}
	}
	res, err = q.ExecContext(ctx, d.DeleteByColumn(spec.Table, spec.IDColumn, len(ids)), args...)
	if err != nil {
		return out, fmt.Errorf("failed to delete %s rows: %w", spec.Table, err)
	}
	out.deleted, err = res.RowsAffected()
	if err != nil {
		return out, fmt.Errorf("failed to read deleted count: %w", err)
	}
	return out, nil
}

func (e *Engine) selectBatch(ctx context.Context, q secondary.Querier, spec Spec, cfg Config, cutoff time.Time) ([]string, error) {
	d := e.coord.Dialect()
	query := d.SelectAgedIDs(spec.Table, spec.IDColumn, spec.AgingColumn, spec.StateColumn, len(spec.TerminalStates), spec.ExtraWhere)

	args := make([]any, 0, len(spec.TerminalStates)+2)
	args = append(args, cutoff)
	for _, s := range spec.TerminalStates {
		args = append(args, s)
	}
	args = append(args, cfg.BatchSize)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select aged %s rows: %w", spec.Table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ids: %w", err)
	}
	return ids, nil
}
