package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

// Worker names, used in logs and metrics.
const (
	WorkerAutoClose  = "auto_close"
	WorkerEscalation = "escalation"
)

// AutoCloseSweep runs one auto-close pass over every guild.
func (m *Manager) AutoCloseSweep(ctx context.Context) error {
	return m.sweep(ctx, WorkerAutoClose, m.autoCloseGuild)
}

// EscalationSweep runs one escalation pass over every guild.
func (m *Manager) EscalationSweep(ctx context.Context) error {
	return m.sweep(ctx, WorkerEscalation, m.escalateGuild)
}

// sweep runs fn for each guild in turn. A failing or panicking guild is logged and the pass
// moves on.
func (m *Manager) sweep(ctx context.Context, worker string, fn func(ctx context.Context, guildID string) error) error {
	t := prometheus.NewTimer(monitoring.SweepDuration.WithLabelValues(worker))
	defer t.ObserveDuration()

	ids, err := m.guilds.GuildIDs(ctx)
	if err != nil {
		return fmt.Errorf("error listing guilds: %w", err)
	}

	l := m.l.With(slog.String(logging.KeyWorker, worker))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.runGuild(ctx, id, fn); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			monitoring.SweepFailures.WithLabelValues(worker).Inc()
			l.Error("Error processing guild",
				slog.String(logging.KeyGuild, id),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
	l.Debug("Sweep complete", slog.Int("guilds", len(ids)))
	return nil
}

func (m *Manager) runGuild(ctx context.Context, guildID string, fn func(ctx context.Context, guildID string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx, guildID)
}

func (m *Manager) logTicketError(guildID, containerID, worker string, err error) {
	m.l.Error("Error processing ticket",
		slog.String(logging.KeyWorker, worker),
		slog.String(logging.KeyGuild, guildID),
		slog.String(logging.KeyChannel, containerID),
		slog.String(logging.KeyError, err.Error()),
	)
}
