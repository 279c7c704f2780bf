// Package parallel provides the bounded worker pool that executes
// cross-validation tasks. Tasks are addressed by index and return values;
// callers reduce the returned slice in index order, so results do not depend
// on scheduling.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Workers resolves a configured worker count: values <= 0 mean one worker per
// CPU core, and there is never more than one worker per item.
func Workers(configured, items int) int {
	n := configured
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Map runs fn for every index in [0, n) on at most workers goroutines and
// returns the results in index order.
//
// The first task error cancels the context passed to the remaining tasks and
// is returned; tasks that have not started yet are skipped. A panicking task
// is reported as an *errors.PanicError instead of crashing the process.
func Map[T any](ctx context.Context, n, workers int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers(workers, n))

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return errors.SafeExecute(fmt.Sprintf("task %d", i), func() error {
				r, err := fn(gctx, i)
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParallelizeWithThreshold divides items into one contiguous range per CPU
// core and runs fn(start, end) for each range concurrently. At or below the
// threshold the whole range runs on the calling goroutine.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}

	numWorkers := Workers(0, items)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
