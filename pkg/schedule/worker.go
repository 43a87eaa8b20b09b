// Package schedule runs background jobs on a fixed interval once the bot is ready.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/schedule/monitoring"
	"github.com/jonboulle/clockwork"
)

// Job is one pass of a worker.
type Job func(ctx context.Context) error

// Worker runs a Job every interval. The first pass waits for the ready signal and then the grace
// period, so a freshly connected bot has its guild cache before anything is swept.
type Worker struct {
	l     *slog.Logger
	clock clockwork.Clock

	name     string
	interval time.Duration
	grace    time.Duration
	job      Job
}

// Option configures a Worker.
type Option func(w *Worker)

// WithClock sets the clock the worker waits on.
func WithClock(c clockwork.Clock) Option {
	return func(w *Worker) {
		w.clock = c
	}
}

// WithGracePeriod delays the first pass after the ready signal.
func WithGracePeriod(d time.Duration) Option {
	return func(w *Worker) {
		w.grace = d
	}
}

// NewWorker creates a new worker. The interval must be positive.
func NewWorker(l *slog.Logger, name string, interval time.Duration, job Job, opts ...Option) (*Worker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("worker %s: interval must be positive, got %s", name, interval)
	}

	w := &Worker{
		l:        l.With(slog.String(logging.KeyWorker, name)),
		clock:    clockwork.NewRealClock(),
		name:     name,
		interval: interval,
		job:      job,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Name returns the worker's name.
func (w *Worker) Name() string {
	return w.name
}

// Run blocks until ctx is cancelled. Passes never overlap: a pass that overruns the interval
// swallows the ticks it missed.
func (w *Worker) Run(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
	case <-ctx.Done():
		return nil
	}

	if w.grace > 0 {
		w.l.Debug("Waiting for grace period", slog.Duration("grace", w.grace))
		select {
		case <-w.clock.After(w.grace):
		case <-ctx.Done():
			return nil
		}
	}

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.l.Info("Worker started", slog.Duration("interval", w.interval))
	for {
		w.runOnce(ctx)

		select {
		case <-ticker.Chan():
		case <-ctx.Done():
			w.l.Info("Worker stopped")
			return nil
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.WorkerRuns.WithLabelValues(w.name, monitoring.ResultPanic).Inc()
			w.l.Error("Panic in worker",
				slog.String(logging.KeyError, fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := w.job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		monitoring.WorkerRuns.WithLabelValues(w.name, monitoring.ResultError).Inc()
		w.l.Error("Error running worker", slog.String(logging.KeyError, err.Error()))
		return
	}
	monitoring.WorkerRuns.WithLabelValues(w.name, monitoring.ResultSuccess).Inc()
}
