// Package worker provides the concurrency primitives of the resolution
// pipeline: a deadline-bounded gather combinator, a per-source rate
// limiter, and a batch processor for resolving many queries at once.
package worker

import (
	"context"
	"sync"
	"time"
)

// Task is a unit of concurrent work producing a value or an error
type Task[T any] func(ctx context.Context) (T, error)

// GatherWithTimeout runs every task concurrently, each bounded by its own
// deadline, and returns the results of the tasks that succeeded in time.
// Failures and timeouts are local: they drop that task's result without
// affecting siblings. Once a task's deadline fires its eventual result is
// discarded, so nothing leaks past the aggregate's return.
func GatherWithTimeout[T any](ctx context.Context, timeout time.Duration, tasks []Task[T]) []T {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]*T, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t Task[T]) {
			defer wg.Done()

			tctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type outcome struct {
				val T
				err error
			}
			// Buffered so a late task can still complete and exit
			done := make(chan outcome, 1)
			go func() {
				v, err := t(tctx)
				done <- outcome{val: v, err: err}
			}()

			select {
			case <-tctx.Done():
				// Deadline fired; the in-flight result is discarded
			case out := <-done:
				if out.err == nil {
					results[idx] = &out.val
				}
			}
		}(i, task)
	}

	wg.Wait()

	collected := make([]T, 0, len(tasks))
	for _, r := range results {
		if r != nil {
			collected = append(collected, *r)
		}
	}
	return collected
}
