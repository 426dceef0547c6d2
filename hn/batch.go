package hn

import (
	"context"
	"log/slog"
	"sync"
)

// FetchBatch fetches ids in consecutive groups of at most batchSize. Within a
// group all fetches run concurrently; the next group starts only once the
// whole group has completed, so batchSize caps in-flight requests. Individual
// failures are counted and logged per group but never abort the batch, and
// nil results (items the source doesn't have) are dropped silently. Order is
// preserved within each group.
func FetchBatch[ID comparable, T any](ctx context.Context, ids []ID, batchSize int, fetch func(context.Context, ID) (*T, error)) ([]*T, int) {
	if batchSize <= 0 {
		batchSize = 1
	}

	var results []*T
	var failed int

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		group := ids[start:end]

		fetched := make([]*T, len(group))
		errs := make([]error, len(group))

		var wg sync.WaitGroup
		for i, id := range group {
			wg.Add(1)
			go func(idx int, id ID) {
				defer wg.Done()
				fetched[idx], errs[idx] = fetch(ctx, id)
			}(i, id)
		}
		wg.Wait()

		groupFailed := 0
		for i := range group {
			if errs[i] != nil {
				groupFailed++
				continue
			}
			if fetched[i] != nil {
				results = append(results, fetched[i])
			}
		}
		if groupFailed > 0 {
			slog.Warn("batch fetch failures", "failed", groupFailed, "group_size", len(group))
			failed += groupFailed
		}

		if ctx.Err() != nil {
			break
		}
	}

	return results, failed
}
