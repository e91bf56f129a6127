package engine

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Task is one independent unit of work submitted to Parallel/RunAll.
type Task func(ctx context.Context) error

// Parallel runs tasks concurrently, bounded by the Engine's configured
// worker count, and cancels outstanding tasks as soon as one returns an
// error (first-error-wins), per §5's cooperative-cancellation model.
func (e *Engine) Parallel(ctx context.Context, tasks ...Task) error {
	group, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.workers)

	for _, t := range tasks {
		t := t
		group.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()
			return t(gctx)
		})
	}
	return group.Wait()
}

// RunAll runs every task to completion regardless of earlier failures,
// bounded by the Engine's worker count, and aggregates every error instead
// of stopping at the first one. Intended for CLI batch use where a user
// wants to see every failing target in one pass rather than just the first.
func (e *Engine) RunAll(ctx context.Context, tasks ...Task) error {
	sem := make(chan struct{}, e.workers)
	errs := make(chan error, len(tasks))

	for _, t := range tasks {
		t := t
		sem <- struct{}{} // blocks the launch loop itself once e.workers are in flight
		go func() {
			defer func() { <-sem }()
			errs <- t(ctx)
		}()
	}

	var result *multierror.Error
	for i := 0; i < len(tasks); i++ {
		if err := <-errs; err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
