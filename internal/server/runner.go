// Package server supervises the daemon's long-running background
// workers: the availability sweeper and the event subscribers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Worker is a named long-running job. Run blocks until the context is
// canceled; a non-nil error from any worker stops all of them.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

type funcWorker struct {
	name string
	run  func(context.Context) error
}

func (w funcWorker) Name() string { return w.name }

func (w funcWorker) Run(ctx context.Context) error { return w.run(ctx) }

// WorkerFunc wraps fn as a named Worker.
func WorkerFunc(name string, fn func(context.Context) error) Worker {
	return funcWorker{name: name, run: fn}
}

// Runner manages the daemon's background workers.
type Runner struct {
	workers []Worker
	log     *slog.Logger
}

// NewRunner creates a runner for the given workers.
func NewRunner(log *slog.Logger, workers ...Worker) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		workers: workers,
		log:     log.With("component", "runner"),
	}
}

// Add registers another worker. Must be called before Run.
func (r *Runner) Add(w Worker) {
	r.workers = append(r.workers, w)
}

// Run starts every worker and blocks until the context is canceled or a
// worker fails. Cancellation is a clean stop, not an error.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, w := range r.workers {
		g.Go(func() error {
			r.log.Info("worker started", "worker", w.Name())
			err := w.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error("worker failed", "worker", w.Name(), "error", err)
				return fmt.Errorf("%s: %w", w.Name(), err)
			}
			r.log.Info("worker stopped", "worker", w.Name())
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
