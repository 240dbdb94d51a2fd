// Package partition provisions time-bounded child tables for
// month-partitioned parents.
package partition

import (
	"context"
	"fmt"
	"time"

	"github.com/example/archon/internal/logger"
	"github.com/example/archon/internal/ports/secondary"
)

// Descriptor identifies one monthly partition. Name and Bounds are pure
// functions of the descriptor, which is what makes provisioning
// idempotent under create-if-not-exists semantics.
type Descriptor struct {
	Parent string
	Year   int
	Month  time.Month
}

// Name returns the deterministic child-table name, parent_YYYY_MM.
func (d Descriptor) Name() string {
	return fmt.Sprintf("%s_%04d_%02d", d.Parent, d.Year, int(d.Month))
}

// Bounds returns the partition's [start, end) date range in UTC.
func (d Descriptor) Bounds() (start, end time.Time) {
	start = time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Provisioner creates partitions and their supporting indexes.
type Provisioner struct {
	db      secondary.Querier
	dialect secondary.Dialect
	log     logger.Logger
}

// NewProvisioner creates a provisioner over the root store handle.
func NewProvisioner(db secondary.Querier, dialect secondary.Dialect, log logger.Logger) *Provisioner {
	return &Provisioner{db: db, dialect: dialect, log: log}
}

// Ensure idempotently creates the partition described by d and an index
// on agingCol. Both statements are individually idempotent; a second
// call with identical inputs is a no-op. Failure (for example a parent
// that is not itself partitioned, or a dialect without native
// partitioning) is reported as false with the cause logged, never as an
// error to the caller.
func (p *Provisioner) Ensure(ctx context.Context, d Descriptor, agingCol string) bool {
	start, end := d.Bounds()
	stmts, err := p.dialect.CreatePartitionDDL(d.Parent, d.Name(), start, end, agingCol)
	if err != nil {
		p.log.Warn("partition provisioning unavailable",
			logger.String("partition", d.Name()), logger.Err(err))
		return false
	}

	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			p.log.Warn("failed to create partition",
				logger.String("partition", d.Name()), logger.Err(err))
			return false
		}
	}

	p.log.Info("partition ensured",
		logger.String("partition", d.Name()),
		logger.Time("start", start), logger.Time("end", end))
	return true
}
