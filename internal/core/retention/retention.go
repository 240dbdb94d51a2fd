// Package retention implements the policy-keyed deletion sweep: every
// policy deletes rows older than its own age threshold, and all deletes
// share one transaction. Unlike archival, the sweep is deliberately
// all-or-nothing; its deletes are independent and cheap, not
// incremental migrations.
package retention

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/archon/internal/core/txn"
	"github.com/example/archon/internal/ports/secondary"
)

// Policy binds one logical dataset to a table, the column its age is
// measured on, and the age threshold. A zero MaxAge means the column
// itself stores an expiry instant compared against now (TTL columns).
type Policy struct {
	Table     string        `yaml:"table"`
	AgeColumn string        `yaml:"column"`
	MaxAge    time.Duration `yaml:"max_age"`
}

// Policies maps logical dataset names to their retention policies.
// Each entry is applied independently inside the shared transaction.
type Policies map[string]Policy

// Sweep deletes aged rows for every policy inside a single coordinated
// transaction and returns the affected-row count per policy key. Either
// every policy's delete commits or none does.
func Sweep(ctx context.Context, c *txn.Coordinator, policies Policies, now time.Time) (map[string]int64, error) {
	d := c.Dialect()

	// Deterministic statement order keeps lock acquisition stable
	// across concurrent sweeps.
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)

	return txn.Run(ctx, c, txn.DefaultOptions(), func(ctx context.Context, q secondary.Querier) (map[string]int64, error) {
		counts := make(map[string]int64, len(policies))
		for _, name := range names {
			p := policies[name]
			res, err := q.ExecContext(ctx, d.DeleteOlderThan(p.Table, p.AgeColumn), now.Add(-p.MaxAge))
			if err != nil {
				return nil, fmt.Errorf("failed to sweep %s: %w", name, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return nil, fmt.Errorf("failed to read %s sweep count: %w", name, err)
			}
			counts[name] = n
		}
		return counts, nil
	})
}
