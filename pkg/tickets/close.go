package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets/monitoring"
	"github.com/jonboulle/clockwork"
)

// ErrReasonRequired is wrapped by the error returned when the panel requires a close reason and
// none was given. The command layer asks for one and retries.
var ErrReasonRequired = errors.New("close reason required")

// Close causes, used as metric labels.
const (
	causeManual    = "manual"
	causeAutomatic = "automatic"
	causeDeleted   = "deleted"
)

// CloseRequest asks for a ticket to be closed.
type CloseRequest struct {
	GuildID     string
	GuildName   string
	ContainerID string

	// Actor is nil for closes made by the bot itself.
	Actor *Member

	Reason  string
	Summary string

	// Policy is set by the auto-close sweep. The close only goes ahead if the ticket is still due
	// to close under that policy when the guild is locked.
	Policy string
}

// Close finalizes a ticket: the record leaves the active set, the transcript is saved, the owner
// is told and the container is deleted or archived.
func (m *Manager) Close(ctx context.Context, req *CloseRequest) error {
	closer := m.BotID()
	cause := causeAutomatic
	if req.Actor != nil {
		closer = req.Actor.ID
		cause = causeManual
	}

	var (
		closed      *entities.ClosedTicket
		transcripts bool
		detailed    bool
		archive     bool
		dmAlerts    bool
	)
	err := m.mutate(ctx, req.GuildID, func(g *entities.Guild, tx *txn) error {
		t, err := ticketIn(g, req.ContainerID)
		if err != nil {
			return err
		}
		if req.Policy != "" {
			if d := EvaluateAutoClose(tx.now, g, t); d.Action != AutoCloseClose || d.Policy != req.Policy {
				return errNoChange
			}
		}
		if req.Actor != nil {
			if err := Can(req.Actor, ActionClose, g, t); err != nil {
				return err
			}
			if p := g.Panels[t.Panel]; p != nil && p.RequireCloseReason && strings.TrimSpace(req.Reason) == "" {
				return &Error{Kind: KindInvalid, Message: "A reason is required to close this ticket.", Err: ErrReasonRequired}
			}
		}

		g.RemoveTicket(req.ContainerID)
		t.Status = entities.StatusClosed
		if req.Summary != "" {
			t.Summary = req.Summary
		}
		closed = &entities.ClosedTicket{Ticket: t, ClosedAt: tx.now, ClosedBy: closer, Reason: req.Reason}
		if g.ReopenWindow > 0 {
			g.Closed[req.ContainerID] = closed
		}

		g.Stats.Closed++
		g.Stats.Panel(t.Panel).Closed++
		g.Stats.ClosesTimed++
		g.Stats.CloseSeconds += tx.now.Sub(t.CreatedAt).Seconds()
		if req.Actor != nil && req.Actor.ID != t.Owner {
			g.Stats.Staff(req.Actor.ID).Closes++
		}

		tx.record(g, entities.AuditLogEntry{
			Action:      entities.AuditClose,
			Actor:       closer,
			Target:      t.Owner,
			ContainerID: req.ContainerID,
			Panel:       t.Panel,
			Detail:      req.Reason,
		})

		transcripts = g.Transcripts
		detailed = g.DetailedTranscripts
		archive = t.Thread && g.ThreadCloseArchive
		dmAlerts = g.DMAlerts
		return nil
	})
	if err != nil || closed == nil {
		return err
	}

	m.cancelScheduledClose(ctx, req.ContainerID, false)
	monitoring.TicketsClosed.WithLabelValues(closed.Ticket.Panel, cause).Inc()

	l := m.l.With(slog.String(logging.KeyGuild, req.GuildID), slog.String(logging.KeyChannel, req.ContainerID))

	notice := fmt.Sprintf(messages.TicketClosing, closer)
	if req.Reason != "" {
		notice += "\n" + fmt.Sprintf(messages.TicketClosingReason, req.Reason)
	}
	msg := &Message{Content: notice}
	if archive && closed != nil {
		msg.Controls = reopenControls(req.ContainerID)
	}
	if _, err := m.adapter.SendMessage(ctx, req.ContainerID, msg); err != nil && !errors.Is(err, ErrContainerGone) {
		l.Warn("Error sending closing notice", slog.String(logging.KeyError, err.Error()))
	}

	if transcripts {
		if err := m.adapter.SaveTranscript(ctx, req.GuildID, req.ContainerID, detailed); err != nil {
			l.Error("Error saving transcript", slog.String(logging.KeyError, err.Error()))
		}
	}

	if err := m.archive.ArchiveTicket(ctx, req.GuildID, closed); err != nil {
		l.Error("Error archiving ticket", slog.String(logging.KeyError, err.Error()))
	}

	if archive {
		err = m.adapter.SetArchived(ctx, req.ContainerID, true)
	} else {
		err = m.adapter.DeleteContainer(ctx, req.ContainerID)
	}
	if err != nil && !errors.Is(err, ErrContainerGone) {
		l.Error("Error removing ticket container", slog.String(logging.KeyError, err.Error()))
	}

	if dmAlerts {
		name := fmt.Sprintf("#%d %s", closed.Ticket.Number, closed.Ticket.Panel)
		m.direct(ctx, closed.Ticket.Owner, fmt.Sprintf(messages.DMTicketClosed, name, req.GuildName))
	}

	l.Info("Ticket closed", slog.String("closed_by", closer), slog.String("cause", cause))
	return nil
}

// ScheduleClose closes the ticket once delay has elapsed. Any message in the ticket before then
// cancels the close. Scheduling again replaces the pending close.
func (m *Manager) ScheduleClose(ctx context.Context, req *CloseRequest, delay time.Duration) error {
	if delay <= 0 {
		return m.Close(ctx, req)
	}

	// Check now so the actor hears about a refusal immediately.
	g, err := m.guilds.GetGuildByID(ctx, req.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	t, err := ticketIn(g, req.ContainerID)
	if err != nil {
		return err
	}
	if req.Actor != nil {
		if err := Can(req.Actor, ActionClose, g, t); err != nil {
			return err
		}
		if p := g.Panels[t.Panel]; p != nil && p.RequireCloseReason && strings.TrimSpace(req.Reason) == "" {
			return &Error{Kind: KindInvalid, Message: "A reason is required to close this ticket.", Err: ErrReasonRequired}
		}
	}

	pc := new(pendingClose)
	if old := m.closes.arm(req.ContainerID, pc); old != nil {
		old.cancel()
	}
	pc.setTimer(m.clock.AfterFunc(delay, func() {
		if !pc.state.CompareAndSwap(closeArmed, closeFired) {
			return
		}
		m.closes.remove(req.ContainerID, pc)

		if err := m.Close(context.Background(), req); err != nil && KindOf(err) != KindNotFound {
			m.l.Error("Error running scheduled close",
				slog.String(logging.KeyGuild, req.GuildID),
				slog.String(logging.KeyChannel, req.ContainerID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}))

	m.say(ctx, req.ContainerID, fmt.Sprintf(messages.TicketCloseScheduled, custom.Duration(delay)))
	return nil
}

// CancelScheduledClose cancels a pending delayed close on request.
func (m *Manager) CancelScheduledClose(ctx context.Context, guildID, containerID string, actor *Member) error {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	t, err := ticketIn(g, containerID)
	if err != nil {
		return err
	}
	if err := Can(actor, ActionClose, g, t); err != nil {
		return err
	}
	if !m.cancelScheduledClose(ctx, containerID, true) {
		return invalid("This ticket has no scheduled close.")
	}
	return nil
}

// ScheduledClose reports whether a delayed close is pending for the container.
func (m *Manager) ScheduledClose(containerID string) bool {
	return m.closes.get(containerID) != nil
}

// cancelScheduledClose cancels a pending close. It returns false when nothing was pending or the
// close already fired, in which case no notice is sent.
func (m *Manager) cancelScheduledClose(ctx context.Context, containerID string, notify bool) bool {
	pc := m.closes.take(containerID)
	if pc == nil || !pc.cancel() {
		return false
	}
	if notify {
		m.say(ctx, containerID, messages.TicketCloseCancelled)
	}
	return true
}

const (
	closeArmed int32 = iota
	closeFired
	closeCancelled
)

// pendingClose is one armed delayed close. Its state moves from armed to exactly one of fired or
// cancelled.
type pendingClose struct {
	state atomic.Int32

	mu    sync.Mutex
	timer clockwork.Timer
}

func (p *pendingClose) setTimer(t clockwork.Timer) {
	p.mu.Lock()
	p.timer = t
	p.mu.Unlock()
}

// cancel moves an armed close to cancelled and stops its timer.
func (p *pendingClose) cancel() bool {
	if !p.state.CompareAndSwap(closeArmed, closeCancelled) {
		return false
	}
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	return true
}

type pendingCloses struct {
	mu     sync.Mutex
	closes map[string]*pendingClose
}

func newPendingCloses() *pendingCloses {
	return &pendingCloses{closes: make(map[string]*pendingClose)}
}

// arm registers pc and returns the close it replaced.
func (p *pendingCloses) arm(containerID string, pc *pendingClose) *pendingClose {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.closes[containerID]
	p.closes[containerID] = pc
	return old
}

func (p *pendingCloses) get(containerID string) *pendingClose {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes[containerID]
}

func (p *pendingCloses) take(containerID string) *pendingClose {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc := p.closes[containerID]
	delete(p.closes, containerID)
	return pc
}

// remove deletes pc if it is still the registered close.
func (p *pendingCloses) remove(containerID string, pc *pendingClose) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closes[containerID] == pc {
		delete(p.closes, containerID)
	}
}

// MessageEvent is a message posted by a member in a guild channel.
type MessageEvent struct {
	GuildID   string
	ChannelID string
	Author    *Member
}

// OnMessage records ticket activity. A message cancels a pending delayed close. The owner's
// messages reset inactivity warnings; on a claimed ticket they move it to awaiting staff, and
// staff messages move it to awaiting user.
func (m *Manager) OnMessage(ctx context.Context, ev *MessageEvent) error {
	if ev.Author == nil || ev.Author.Bot {
		return nil
	}
	m.cancelScheduledClose(ctx, ev.ChannelID, true)

	g, err := m.guilds.GetGuildByID(ctx, ev.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	if _, ok := g.TicketByContainer(ev.ChannelID); !ok {
		return nil
	}

	return m.mutate(ctx, ev.GuildID, func(g *entities.Guild, tx *txn) error {
		t, ok := g.TicketByContainer(ev.ChannelID)
		if !ok {
			return errNoChange
		}

		switch {
		case ev.Author.ID == t.Owner:
			t.LastUserMessage = timePtr(tx.now)
			t.AutoCloseWarnings = 0
			if t.Status.Claimable() {
				t.Status = entities.StatusAwaitingStaff
			}
		case IsStaff(ev.Author, g, g.Panels[t.Panel]):
			t.LastStaffMessage = timePtr(tx.now)
			if t.Status.Claimable() {
				t.Status = entities.StatusAwaitingUser
			}
		default:
			return errNoChange
		}
		return nil
	})
}

// OnMemberLeave closes the tickets of a member who left, unless the guild keeps them.
func (m *Manager) OnMemberLeave(ctx context.Context, guildID, guildName, userID string) error {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	if g.KeepOnLeave {
		return nil
	}

	var errs []error
	for _, t := range g.UserTickets(userID) {
		err := m.Close(ctx, &CloseRequest{
			GuildID:     guildID,
			GuildName:   guildName,
			ContainerID: t.ContainerID,
			Reason:      "The ticket owner left the server.",
		})
		if err != nil && KindOf(err) != KindNotFound {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnContainerDelete prunes the record of a ticket whose container was deleted.
func (m *Manager) OnContainerDelete(ctx context.Context, guildID, containerID string) error {
	m.cancelScheduledClose(ctx, containerID, false)

	var closed *entities.ClosedTicket
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		_, wasClosed := g.Closed[containerID]
		delete(g.Closed, containerID)

		t, ok := g.RemoveTicket(containerID)
		if !ok {
			if wasClosed {
				return nil
			}
			return errNoChange
		}

		t.Status = entities.StatusClosed
		closed = &entities.ClosedTicket{Ticket: t, ClosedAt: tx.now, ClosedBy: m.BotID(), Reason: "Container deleted"}
		g.Stats.Closed++
		g.Stats.Panel(t.Panel).Closed++
		tx.record(g, entities.AuditLogEntry{
			Action:      entities.AuditClose,
			Actor:       m.BotID(),
			Target:      t.Owner,
			ContainerID: containerID,
			Panel:       t.Panel,
			Detail:      "container deleted",
		})
		return nil
	})
	if err != nil || closed == nil {
		return err
	}

	monitoring.TicketsClosed.WithLabelValues(closed.Ticket.Panel, causeDeleted).Inc()
	if err := m.archive.ArchiveTicket(ctx, guildID, closed); err != nil {
		m.l.Error("Error archiving ticket", slog.String(logging.KeyError, err.Error()))
	}
	return nil
}
