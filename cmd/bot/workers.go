package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/schedule"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const (
	workerAutoClose  = tickets.WorkerAutoClose
	workerEscalation = tickets.WorkerEscalation
)

// registerWorkers builds the auto-close and escalation sweeps.
func (a *App) registerWorkers() error {
	autoClose, err := schedule.NewWorker(a.Logger, workerAutoClose, a.cfg.AutoCloseInterval, a.tickets.AutoCloseSweep,
		schedule.WithGracePeriod(a.cfg.WorkerGracePeriod),
	)
	if err != nil {
		return fmt.Errorf("error creating %s worker: %w", workerAutoClose, err)
	}

	escalation, err := schedule.NewWorker(a.Logger, workerEscalation, a.cfg.EscalationInterval, a.tickets.EscalationSweep,
		schedule.WithGracePeriod(a.cfg.WorkerGracePeriod),
	)
	if err != nil {
		return fmt.Errorf("error creating %s worker: %w", workerEscalation, err)
	}

	a.workers = []*schedule.Worker{autoClose, escalation}
	return nil
}

// startWorkers runs every worker until ctx is cancelled. Workers wait for the gateway to be ready.
func (a *App) startWorkers(ctx context.Context) {
	for _, w := range a.workers {
		a.wg.Add(1)
		go func(w *schedule.Worker) {
			defer a.wg.Done()
			if err := w.Run(ctx, a.ready); err != nil {
				a.Error("Worker stopped", slog.String(logging.KeyWorker, w.Name()), slog.String(logging.KeyError, err.Error()))
			}
		}(w)
	}
}
