// Package batch implements chunked transactional processing: an
// arbitrary work list is split into fixed-size chunks, each chunk runs
// as one coordinated transaction with per-item fan-out, and chunks run
// strictly sequentially.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/example/archon/internal/core/txn"
	"github.com/example/archon/internal/ports/secondary"
)

// DefaultSize is the chunk size used when the caller passes zero.
const DefaultSize = 100

// Process splits items into consecutive chunks of batchSize and runs
// work for every item of a chunk concurrently inside a single
// coordinated transaction. Chunk N+1 does not start until chunk N has
// committed. A failure inside a chunk rolls that chunk back and fails
// the whole call; rows persisted by earlier, already-committed chunks
// are not undone. Results are returned in item order.
func Process[T, R any](ctx context.Context, c *txn.Coordinator, items []T, batchSize int, opts txn.Options, work func(ctx context.Context, q secondary.Querier, item T) (R, error)) ([]R, error) {
	if batchSize <= 0 {
		batchSize = DefaultSize
	}

	results := make([]R, 0, len(items))
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		chunk := items[start:end]

		chunkResults, err := txn.Run(ctx, c, opts, func(ctx context.Context, q secondary.Querier) ([]R, error) {
			out := make([]R, len(chunk))
			g, gctx := errgroup.WithContext(ctx)
			for i, item := range chunk {
				g.Go(func() error {
					r, err := work(gctx, q, item)
					if err != nil {
						return err
					}
					out[i] = r
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
			return out, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to process batch starting at %d: %w", start, err)
		}
		results = append(results, chunkResults...)
	}
	return results, nil
}
