// Package txn implements the transaction coordinator and the optimistic
// lock manager: units of work run under a selectable isolation level
// with store errors classified into a small taxonomy at the boundary.
package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/archon/internal/ports/secondary"
)

// IsolationLevel selects the store isolation for a coordinated call.
type IsolationLevel string

const (
	ReadCommitted  IsolationLevel = "ReadCommitted"
	RepeatableRead IsolationLevel = "RepeatableRead"
	Serializable   IsolationLevel = "Serializable"
)

// Options controls a single coordinated transaction.
type Options struct {
	Isolation IsolationLevel
	// MaxWait bounds acquisition of a connection from the pool. It does
	// not limit the transaction itself; that is Timeout's job.
	MaxWait time.Duration
	// Timeout bounds the work closure; exceeding it aborts the
	// transaction and surfaces ErrTxTimeout.
	Timeout time.Duration
}

// DefaultOptions returns the engine defaults: ReadCommitted, 5s max
// wait, 30s timeout.
func DefaultOptions() Options {
	return Options{
		Isolation: ReadCommitted,
		MaxWait:   5 * time.Second,
		Timeout:   30 * time.Second,
	}
}

func (o Options) sqlIsolation() sql.IsolationLevel {
	switch o.Isolation {
	case RepeatableRead:
		return sql.LevelRepeatableRead
	case Serializable:
		return sql.LevelSerializable
	default:
		return sql.LevelReadCommitted
	}
}

// Coordinator wraps units of work in store transactions and classifies
// store errors. It holds no state beyond its injected dependencies and
// is safe for concurrent use.
type Coordinator struct {
	db      *sql.DB
	dialect secondary.Dialect
}

// NewCoordinator creates a coordinator over an explicitly constructed
// store handle.
func NewCoordinator(db *sql.DB, dialect secondary.Dialect) *Coordinator {
	return &Coordinator{db: db, dialect: dialect}
}

// Dialect exposes the coordinator's dialect to collaborating engines.
func (c *Coordinator) Dialect() secondary.Dialect { return c.dialect }

// DB exposes the root store handle for non-transactional statements.
func (c *Coordinator) DB() *sql.DB { return c.db }

// Run executes work inside one store transaction. On success the
// transaction commits atomically; on any error it rolls back and the
// error propagates, classified into the taxonomy where the dialect
// recognizes it and unchanged otherwise.
func (c *Coordinator) Run(ctx context.Context, opts Options, work func(ctx context.Context, q secondary.Querier) error) error {
	if opts == (Options{}) {
		opts = DefaultOptions()
	}

	// MaxWait applies to checkout only. The transaction must not be
	// begun on the MaxWait context: database/sql keeps the BeginTx
	// context armed until commit or rollback, which would abort any
	// work outliving MaxWait regardless of Timeout.
	acquireCtx := ctx
	if opts.MaxWait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, opts.MaxWait)
		defer cancel()
	}
	conn, err := c.db.Conn(acquireCtx)
	if err != nil {
		return c.classify(fmt.Errorf("failed to acquire connection: %w", err))
	}
	defer conn.Close()

	workCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		workCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	tx, err := conn.BeginTx(workCtx, &sql.TxOptions{Isolation: opts.sqlIsolation()})
	if err != nil {
		return c.classify(fmt.Errorf("failed to begin transaction: %w", err))
	}

	if err := work(workCtx, tx); err != nil {
		_ = tx.Rollback()
		return c.classify(err)
	}

	if err := tx.Commit(); err != nil {
		return c.classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Run executes work inside one coordinated transaction and returns its
// typed result. The zero value of T is returned on failure.
func Run[T any](ctx context.Context, c *Coordinator, opts Options, work func(ctx context.Context, q secondary.Querier) (T, error)) (T, error) {
	var out T
	err := c.Run(ctx, opts, func(ctx context.Context, q secondary.Querier) error {
		var err error
		out, err = work(ctx, q)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// classify maps store errors onto the taxonomy. Errors already carrying
// a taxonomy mark pass through untouched so nested classification never
// double-wraps.
func (c *Coordinator) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTxConflict) || errors.Is(err, ErrTxTimeout) ||
		errors.Is(err, ErrDeadlock) || errors.Is(err, ErrVersionConflict) {
		return err
	}
	switch {
	case c.dialect.IsSerializationFailure(err):
		return fmt.Errorf("%w: %w", ErrTxConflict, err)
	case c.dialect.IsDeadlock(err):
		return fmt.Errorf("%w: %w", ErrDeadlock, err)
	case c.dialect.IsLockTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTxTimeout, err)
	default:
		return err
	}
}
