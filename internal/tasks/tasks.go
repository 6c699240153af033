package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner executes fire-and-forget work detached from the request that
// spawned it, such as storing a prompt memory after the response has
// already been sent. Errors are logged and dropped; a panic in one task
// never takes the process down.
type Runner struct {
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRunner(logger *slog.Logger, timeout time.Duration) *Runner {
	return &Runner{logger: logger, timeout: timeout}
}

// Go runs fn on its own goroutine with a fresh context. The task gets the
// runner's timeout rather than the request deadline, so it survives the
// caller's response cycle.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("task panicked", "task", name, "panic", rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.logger.Warn("task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until all in-flight tasks finish. Called during shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}
