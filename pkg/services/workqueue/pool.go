// Package workqueue runs independent work items on a bounded set of workers.
package workqueue

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Pool bounds how many items run at once.
type Pool struct {
	workers int
	logger  *zap.Logger
}

// NewPool creates a pool with the given number of workers. Values below 1
// select runtime.NumCPU().
func NewPool(workers int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		workers: workers,
		logger:  logger.Named("workqueue"),
	}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Result is the outcome of one item.
type Result[R any] struct {
	Value R
	Err   error
}

// Process runs fn over items and returns results in input order, so
// results[i] belongs to items[i]. A failing or panicking item does not stop
// the others. Items not started before ctx is done get ctx.Err().
// onProgress, if set, is called serially after each item finishes.
func Process[T, R any](
	ctx context.Context,
	pool *Pool,
	items []T,
	fn func(ctx context.Context, item T) (R, error),
	onProgress func(completed, total int),
) []Result[R] {
	if len(items) == 0 {
		return nil
	}

	results := make([]Result[R], len(items))
	indexes := make(chan int)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	finish := func() {
		if onProgress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		completed++
		onProgress(completed, len(items))
	}

	workers := min(pool.workers, len(items))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					results[i] = Result[R]{Err: err}
				} else {
					results[i] = runItem(ctx, pool.logger, i, items[i], fn)
				}
				finish()
			}
		}()
	}

	next := 0
feed:
	for ; next < len(items) && ctx.Err() == nil; next++ {
		select {
		case indexes <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	for i := next; i < len(items); i++ {
		results[i] = Result[R]{Err: ctx.Err()}
		finish()
	}
	if next < len(items) {
		pool.logger.Warn("Work cancelled before completion",
			zap.Int("started", next),
			zap.Int("total", len(items)),
			zap.Error(ctx.Err()))
	}
	return results
}

func runItem[T, R any](ctx context.Context, logger *zap.Logger, index int, item T, fn func(context.Context, T) (R, error)) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Work item panicked",
				zap.Int("index", index),
				zap.Any("panic", r))
			res = Result[R]{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	value, err := fn(ctx, item)
	return Result[R]{Value: value, Err: err}
}
