package txn

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/example/archon/internal/ports/secondary"
)

// Assignments maps column names to the values a conditional update sets.
// The version column is managed by the update itself and must not appear
// here.
type Assignments map[string]any

// ConditionalUpdate performs a version-stamped write: one UPDATE
// predicated on id and the expected version, advancing the version by
// one alongside the caller's assignments. Zero affected rows means a
// concurrent writer already advanced the version; ErrVersionConflict is
// returned immediately and retry is left to the caller's policy. On
// success the new version is returned.
//
// Must run inside a coordinated transaction when the caller reads the
// row afterwards.
func ConditionalUpdate(ctx context.Context, q secondary.Querier, d secondary.Dialect, table, idCol, id string, expectedVersion int64, set Assignments) (int64, error) {
	cols := make([]string, 0, len(set))
	for col := range set {
		if col == "version" {
			return 0, fmt.Errorf("assignment must not set the version column")
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var b strings.Builder
	args := make([]any, 0, len(cols)+3)
	fmt.Fprintf(&b, "UPDATE %s SET version = version + 1", table)
	n := 0
	for _, col := range cols {
		n++
		fmt.Fprintf(&b, ", %s = %s", col, d.Placeholder(n))
		args = append(args, set[col])
	}
	fmt.Fprintf(&b, " WHERE %s = %s AND version = %s", idCol, d.Placeholder(n+1), d.Placeholder(n+2))
	args = append(args, id, expectedVersion)

	res, err := q.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to apply conditional update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("%w: %s %s expected version %d", ErrVersionConflict, table, id, expectedVersion)
	}
	return expectedVersion + 1, nil
}

// ConditionalUpdateFetch applies a conditional update and re-fetches the
// current row through the caller's typed fetch function.
func ConditionalUpdateFetch[T any](ctx context.Context, q secondary.Querier, d secondary.Dialect, table, idCol, id string, expectedVersion int64, set Assignments, fetch func(ctx context.Context, q secondary.Querier, id string) (T, error)) (T, error) {
	var zero T
	if _, err := ConditionalUpdate(ctx, q, d, table, idCol, id, expectedVersion, set); err != nil {
		return zero, err
	}
	out, err := fetch(ctx, q, id)
	if err != nil {
		return zero, fmt.Errorf("failed to fetch updated row: %w", err)
	}
	return out, nil
}
