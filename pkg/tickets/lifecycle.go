package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets/monitoring"
)

const maxNoteLength = 1000

// OpenRequest asks for a new ticket.
type OpenRequest struct {
	GuildID   string
	GuildName string
	Panel     string
	Member    *Member

	// Answers are the questionnaire answers, see CollectAnswers.
	Answers []entities.Answer
}

// Precheck runs the eligibility checks without changing anything and returns the panel, so the
// caller can ask the panel's questions before calling Create.
func (m *Manager) Precheck(ctx context.Context, guildID, panelName string, member *Member) (*entities.Panel, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	p, ok := g.Panels[panelName]
	if !ok {
		return nil, notFound("Panel %q does not exist.", panelName)
	}
	if d := CanOpen(m.clock.Now(), member, p, g); d != nil {
		monitoring.EligibilityDenials.WithLabelValues(string(d.Reason)).Inc()
		return nil, d
	}
	return p, nil
}

// Create opens a ticket. Eligibility and the sequence number are decided under the guild lock,
// the container is created outside of it, and the record is written under the lock again once
// capacity, cooldowns and rate limits have been re-checked. A container whose record cannot be written is deleted.
func (m *Manager) Create(ctx context.Context, req *OpenRequest) (*entities.Ticket, error) {
	l := m.l.With(
		slog.String(logging.KeyGuild, req.GuildID),
		slog.String(logging.KeyPanel, req.Panel),
		slog.String(logging.KeyUser, req.Member.ID),
	)

	var (
		panel    entities.Panel
		num      int
		roles    []string
		dmAlerts bool
		autoAdd  bool
	)
	err := m.guilds.Atomic(ctx, req.GuildID, func(g *entities.Guild) error {
		p, ok := g.Panels[req.Panel]
		if !ok {
			return notFound("Panel %q does not exist.", req.Panel)
		}
		if d := CanOpen(m.clock.Now(), req.Member, p, g); d != nil {
			return d
		}

		num = p.TicketNum
		p.TicketNum++

		panel = *p
		roles = append(append([]string{}, g.SupportRoles...), p.SupportRoles...)
		dmAlerts = g.DMAlerts
		autoAdd = g.ThreadAutoAddRoles
		return nil
	})
	if err != nil {
		var d *Denial
		if errors.As(err, &d) {
			monitoring.EligibilityDenials.WithLabelValues(string(d.Reason)).Inc()
		}
		return nil, err
	}

	v := Vars{
		User:     req.Member.Mention(),
		Username: req.Member.Name,
		Panel:    panel.Name,
		Num:      num,
		Server:   req.GuildName,
	}

	spec := &ContainerSpec{
		GuildID:            req.GuildID,
		Name:               ContainerName(panel.TicketName, v),
		CategoryID:         panel.CategoryID,
		FallbackCategoryID: panel.AltCategoryID,
		ParentChannelID:    panel.ChannelID,
		Thread:             panel.Threads,
		Users:              []string{req.Member.ID},
		Roles:              roles,
		AddRoleMembers:     autoAdd,
		Topic:              fmt.Sprintf("Ticket #%d opened by %s on %s", num, req.Member.Name, panel.Name),
	}

	// Create the container.
	rejected := ""
	containerID, err := m.adapter.CreateContainer(ctx, spec)
	if errors.Is(err, ErrNameRejected) {
		rejected = spec.Name
		spec.Name = fallbackName(num)
		containerID, err = m.adapter.CreateContainer(ctx, spec)
	}
	if err != nil {
		l.Error("Error creating ticket container", slog.String(logging.KeyError, err.Error()))
		return nil, wrapError(KindAdapter, err, messages.ErrAdapterPermissions)
	}

	if err := m.sendIntake(ctx, containerID, &panel, v, roles, req.Answers, rejected); err != nil {
		l.Error("Error sending ticket intake", slog.String(logging.KeyError, err.Error()))
		m.discardContainer(ctx, containerID)
		return nil, wrapError(KindAdapter, err, messages.ErrAdapterPermissions)
	}

	// Write the record.
	var ticket *entities.Ticket
	err = m.mutate(ctx, req.GuildID, func(g *entities.Guild, tx *txn) error {
		p, ok := g.Panels[req.Panel]
		if !ok {
			return notFound("Panel %q was removed while the ticket was being created.", req.Panel)
		}
		if open := g.UserTickets(req.Member.ID); len(open) >= g.MaxTickets {
			return deny(DenyTicketLimit, "You already have the maximum of %d open ticket(s): %s", g.MaxTickets, mentionContainers(open))
		}
		if p.MaxOpen > 0 && g.PanelTickets(p.Name) >= p.MaxOpen {
			return deny(DenyPanelFull, "This panel has reached its limit of %d open tickets. Please try again later.", p.MaxOpen)
		}
		if d := throttled(tx.now, req.Member, p, g); d != nil {
			return d
		}

		now := tx.now
		ticket = &entities.Ticket{
			Owner:       req.Member.ID,
			Panel:       p.Name,
			Number:      num,
			ContainerID: containerID,
			Thread:      panel.Threads,
			CreatedAt:   now,
			Answers:     req.Answers,
			Status:      entities.StatusOpen,
		}
		g.AddTicket(ticket)

		g.RecentOpens = append(pruneBefore(g.RecentOpens, now.Add(-rateWindow)), now)
		p.RecentOpens = append(pruneBefore(p.RecentOpens, now.Add(-rateWindow)), now)
		g.LastOpened[req.Member.ID] = now
		p.LastOpened[req.Member.ID] = now

		g.Stats.Opened++
		g.Stats.Panel(p.Name).Opened++

		tx.record(g, entities.AuditLogEntry{
			Action:      entities.AuditOpen,
			Actor:       req.Member.ID,
			ContainerID: containerID,
			Panel:       p.Name,
			Detail:      fmt.Sprintf("Ticket #%d", num),
		})
		return nil
	})
	if err != nil {
		l.Warn("Error recording ticket, discarding container", slog.String(logging.KeyError, err.Error()))
		m.discardContainer(ctx, containerID)
		return nil, err
	}
	monitoring.TicketsOpened.WithLabelValues(panel.Name).Inc()

	if panel.LogChannelID != "" {
		id, err := m.postLog(ctx, &panel, ticket)
		if err != nil {
			l.Warn("Error posting ticket log", slog.String(logging.KeyError, err.Error()))
		} else {
			ticket.LogMessageID = id
			m.setLogMessage(ctx, req.GuildID, containerID, id)
		}
	}

	if dmAlerts {
		m.direct(ctx, req.Member.ID, fmt.Sprintf(messages.DMTicketOpened, spec.Name, req.GuildName))
	}

	l.Info("Ticket created", slog.String(logging.KeyChannel, containerID), slog.Int("number", num))
	return ticket, nil
}

func (m *Manager) setLogMessage(ctx context.Context, guildID, containerID, messageID string) {
	err := m.mutate(ctx, guildID, func(g *entities.Guild, _ *txn) error {
		t, ok := g.TicketByContainer(containerID)
		if !ok {
			return errNoChange
		}
		t.LogMessageID = messageID
		return nil
	})
	if err != nil {
		m.l.Warn("Error saving log message", slog.String(logging.KeyError, err.Error()))
	}
}

// discardContainer deletes a container whose ticket could not be created.
func (m *Manager) discardContainer(ctx context.Context, containerID string) {
	if err := m.adapter.DeleteContainer(ctx, containerID); err != nil && !errors.Is(err, ErrContainerGone) {
		m.l.Error("Error deleting orphaned container",
			slog.String(logging.KeyChannel, containerID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// Claim claims an unclaimed ticket for the actor. Claiming a ticket the actor already holds
// unclaims it. A ticket held by someone else is refused.
func (m *Manager) Claim(ctx context.Context, guildID, containerID string, actor *Member) (*entities.Ticket, error) {
	var (
		out       *entities.Ticket
		unclaimed bool
	)
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		t, err := ticketIn(g, containerID)
		if err != nil {
			return err
		}
		if err := Can(actor, ActionClaim, g, t); err != nil {
			return err
		}

		switch t.ClaimedBy {
		case actor.ID:
			unclaim(t)
			unclaimed = true
			tx.record(g, entities.AuditLogEntry{Action: entities.AuditUnclaim, Actor: actor.ID, ContainerID: containerID, Panel: t.Panel})
		case "":
			claim(g, t, actor.ID, tx)
			tx.record(g, entities.AuditLogEntry{Action: entities.AuditClaim, Actor: actor.ID, ContainerID: containerID, Panel: t.Panel})
		default:
			return invalid("This ticket is already claimed by <@%s>.", t.ClaimedBy)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if unclaimed {
		m.say(ctx, containerID, fmt.Sprintf(messages.TicketUnclaimed, actor.ID))
	} else {
		m.say(ctx, containerID, fmt.Sprintf(messages.TicketClaimed, actor.ID))
	}
	return out, nil
}

// Unclaim releases a claimed ticket.
func (m *Manager) Unclaim(ctx context.Context, guildID, containerID string, actor *Member) (*entities.Ticket, error) {
	var (
		out      *entities.Ticket
		previous string
	)
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		t, err := ticketIn(g, containerID)
		if err != nil {
			return err
		}
		if err := Can(actor, ActionUnclaim, g, t); err != nil {
			return err
		}
		if t.ClaimedBy == "" {
			return invalid("This ticket is not claimed.")
		}
		if t.ClaimedBy != actor.ID && !actor.Admin && !actor.Owner {
			return denied("Only <@%s> or an administrator can unclaim this ticket.", t.ClaimedBy)
		}

		previous = t.ClaimedBy
		unclaim(t)
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditUnclaim, Actor: actor.ID, Target: previous, ContainerID: containerID, Panel: t.Panel})
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.say(ctx, containerID, fmt.Sprintf(messages.TicketUnclaimed, previous))
	return out, nil
}

// Transfer hands a ticket to another staff member.
func (m *Manager) Transfer(ctx context.Context, guildID, containerID string, actor, target *Member) (*entities.Ticket, error) {
	var (
		out  *entities.Ticket
		from string
	)
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		t, err := ticketIn(g, containerID)
		if err != nil {
			return err
		}
		if err := Can(actor, ActionTransfer, g, t); err != nil {
			return err
		}
		if target == nil || target.Bot || !IsStaff(target, g, g.Panels[t.Panel]) {
			return invalid("Tickets can only be transferred to support staff.")
		}
		if t.ClaimedBy == target.ID {
			return invalid("This ticket is already claimed by <@%s>.", target.ID)
		}

		from = t.ClaimedBy
		if from == "" {
			from = actor.ID
		}
		t.TransferredFrom = from
		claim(g, t, target.ID, tx)

		tx.record(g, entities.AuditLogEntry{
			Action:      entities.AuditTransfer,
			Actor:       actor.ID,
			Target:      target.ID,
			ContainerID: containerID,
			Panel:       t.Panel,
			Detail:      fmt.Sprintf("From <@%s>", from),
		})
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.say(ctx, containerID, fmt.Sprintf(messages.TicketTransferred, from, target.ID))
	return out, nil
}

// claim assigns the ticket and resets its escalation.
func claim(g *entities.Guild, t *entities.Ticket, staffID string, tx *txn) {
	t.ClaimedBy = staffID
	t.ClaimedAt = timePtr(tx.now)
	t.Status = entities.StatusClaimed
	t.Escalated = false
	t.EscalationLevel = 0

	if t.FirstClaimedAt == nil {
		t.FirstClaimedAt = timePtr(tx.now)
		g.Stats.Claims++
		g.Stats.ClaimSeconds += tx.now.Sub(t.CreatedAt).Seconds()
	}
	g.Stats.Staff(staffID).Claims++
}

func unclaim(t *entities.Ticket) {
	t.ClaimedBy = ""
	t.ClaimedAt = nil
	t.Status = entities.StatusOpen
}

// Join adds a staff member to a ticket from the log control. At most the panel's max claims may
// join.
func (m *Manager) Join(ctx context.Context, guildID, containerID string, actor *Member) error {
	var (
		full       bool
		logMessage string
		logChannel string
	)
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		t, err := ticketIn(g, containerID)
		if err != nil {
			return err
		}
		if err := Can(actor, ActionJoin, g, t); err != nil {
			return err
		}
		if t.HasJoined(actor.ID) {
			return invalid("You have already joined this ticket.")
		}
		p := g.Panels[t.Panel]
		if p != nil && p.MaxClaims > 0 && len(t.Joined) >= p.MaxClaims {
			return invalid("This ticket already has the maximum of %d staff.", p.MaxClaims)
		}

		t.Joined = append(t.Joined, actor.ID)
		if p != nil {
			full = p.MaxClaims > 0 && len(t.Joined) >= p.MaxClaims
			logChannel = p.LogChannelID
		}
		logMessage = t.LogMessageID

		tx.record(g, entities.AuditLogEntry{Action: entities.AuditAddUser, Actor: actor.ID, Target: actor.ID, ContainerID: containerID, Panel: t.Panel, Detail: "Joined from the log"})
		return nil
	})
	if err != nil {
		return err
	}

	if err := m.adapter.SetMemberAccess(ctx, containerID, actor.ID, true); err != nil {
		return wrapError(KindAdapter, err, messages.ErrAdapterPermissions)
	}
	m.say(ctx, containerID, fmt.Sprintf("%s has joined the ticket.", actor.Mention()))

	if full && logChannel != "" && logMessage != "" {
		if err := m.adapter.AttachControls(ctx, logChannel, logMessage, joinControls(containerID, true)); err != nil {
			m.l.Warn("Error disabling join control", slog.String(logging.KeyError, err.Error()))
		}
	}
	return nil
}

// AddNote appends an internal staff note.
func (m *Manager) AddNote(ctx context.Context, guildID, containerID string, actor *Member, text string) (*entities.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("A note cannot be empty.")
	}
	if utf8.RuneCountInString(text) > maxNoteLength {
		return nil, invalid("A note can be at most %d characters.", maxNoteLength)
	}

	var note *entities.Note
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		t, err := ticketIn(g, containerID)
		if err != nil {
			return err
		}
		if err := Can(actor, ActionNote, g, t); err != nil {
			return err
		}

		t.Notes = append(t.Notes, entities.Note{Author: actor.ID, Text: text, CreatedAt: tx.now})
		note = &t.Notes[len(t.Notes)-1]
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditNoteAdd, Actor: actor.ID, ContainerID: containerID, Panel: t.Panel})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Notes lists a ticket's notes oldest first.
func (m *Manager) Notes(ctx context.Context, guildID, containerID string, actor *Member) ([]entities.Note, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	t, err := ticketIn(g, containerID)
	if err != nil {
		return nil, err
	}
	if err := Can(actor, ActionNote, g, t); err != nil {
		return nil, err
	}
	return t.Notes, nil
}

// Info returns a ticket for its owner or staff.
func (m *Manager) Info(ctx context.Context, guildID, containerID string, actor *Member) (*entities.Ticket, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	t, err := ticketIn(g, containerID)
	if err != nil {
		return nil, err
	}
	if err := Can(actor, ActionInfo, g, t); err != nil {
		return nil, err
	}
	if !IsStaff(actor, g, g.Panels[t.Panel]) {
		t.Notes = nil
	}
	return t, nil
}

// History lists a user's archived tickets, newest first.
func (m *Manager) History(ctx context.Context, guildID string, actor *Member, userID string, limit int) ([]*entities.ClosedTicket, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	if actor.ID != userID && !IsStaff(actor, g, nil) {
		return nil, denied("Only support staff can view other users' tickets.")
	}
	return m.archive.ClosedTickets(ctx, guildID, userID, limit)
}

// Rename renames a ticket's container.
func (m *Manager) Rename(ctx context.Context, guildID, containerID string, actor *Member, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxContainerName {
		return invalid("A ticket name must be between 1 and %d characters.", maxContainerName)
	}

	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	t, err := ticketIn(g, containerID)
	if err != nil {
		return err
	}
	if err := Can(actor, ActionRename, g, t); err != nil {
		return err
	}

	if err := m.adapter.RenameContainer(ctx, containerID, name); errors.Is(err, ErrNameRejected) {
		return invalid("Discord rejected the name %q.", name)
	} else if err != nil {
		return wrapError(KindAdapter, err, messages.ErrAdapterPermissions)
	}

	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		t, ok := g.TicketByContainer(containerID)
		if !ok {
			return errNoChange
		}
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditRename, Actor: actor.ID, ContainerID: containerID, Panel: t.Panel, Detail: name})
		return nil
	})
}

// AddUser gives another user access to a ticket.
func (m *Manager) AddUser(ctx context.Context, guildID, containerID string, actor *Member, userID string) error {
	return m.setAccess(ctx, guildID, containerID, actor, userID, true)
}

// RemoveUser takes a user's access to a ticket away. The owner cannot be removed.
func (m *Manager) RemoveUser(ctx context.Context, guildID, containerID string, actor *Member, userID string) error {
	return m.setAccess(ctx, guildID, containerID, actor, userID, false)
}

func (m *Manager) setAccess(ctx context.Context, guildID, containerID string, actor *Member, userID string, allow bool) error {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	t, err := ticketIn(g, containerID)
	if err != nil {
		return err
	}
	if err := Can(actor, ActionManageUsers, g, t); err != nil {
		return err
	}
	if !allow && userID == t.Owner {
		return invalid("The ticket owner cannot be removed.")
	}

	if err := m.adapter.SetMemberAccess(ctx, containerID, userID, allow); err != nil {
		return wrapError(KindAdapter, err, messages.ErrAdapterPermissions)
	}

	action, verb := entities.AuditAddUser, "added to"
	if !allow {
		action, verb = entities.AuditRemoveUser, "removed from"
	}
	m.say(ctx, containerID, fmt.Sprintf("<@%s> has been %s the ticket.", userID, verb))

	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		t, ok := g.TicketByContainer(containerID)
		if !ok {
			return errNoChange
		}
		tx.record(g, entities.AuditLogEntry{Action: action, Actor: actor.ID, Target: userID, ContainerID: containerID, Panel: t.Panel})
		return nil
	})
}

// Reopen restores a recently closed ticket whose container still exists.
func (m *Manager) Reopen(ctx context.Context, guildID, containerID string, actor *Member) (*entities.Ticket, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	closed, ok := g.Closed[containerID]
	if !ok || g.ReopenWindow <= 0 {
		return nil, notFound("This ticket cannot be reopened.")
	}
	if err := Can(actor, ActionReopen, g, closed.Ticket); err != nil {
		return nil, err
	}

	exists, err := m.adapter.ContainerExists(ctx, containerID)
	if err != nil {
		return nil, wrapError(KindAdapter, err, messages.ErrAdapterPermissions)
	} else if !exists {
		return nil, notFound("The ticket channel no longer exists.")
	}

	var out *entities.Ticket
	err = m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		closed, ok := g.Closed[containerID]
		if !ok {
			return notFound("This ticket cannot be reopened.")
		}
		if tx.now.Sub(closed.ClosedAt) > g.ReopenWindow.Std() {
			return invalid("This ticket was closed more than %s ago and can no longer be reopened.", g.ReopenWindow)
		}

		t := closed.Ticket
		t.Status = entities.StatusOpen
		t.ClaimedBy = ""
		t.ClaimedAt = nil
		t.AutoCloseWarnings = 0
		t.LegacyWarnedAt = nil
		t.Escalated = false
		t.EscalationLevel = 0
		t.LastUserMessage = nil
		t.LastStaffMessage = nil
		t.CreatedAt = tx.now

		delete(g.Closed, containerID)
		g.AddTicket(t)
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditReopen, Actor: actor.ID, Target: t.Owner, ContainerID: containerID, Panel: t.Panel})
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Thread {
		if err := m.adapter.SetArchived(ctx, containerID, false); err != nil {
			m.l.Warn("Error unarchiving thread", slog.String(logging.KeyError, err.Error()))
		}
	}
	if err := m.adapter.SetMemberAccess(ctx, containerID, out.Owner, true); err != nil {
		m.l.Warn("Error restoring owner access", slog.String(logging.KeyError, err.Error()))
	}
	m.say(ctx, containerID, fmt.Sprintf(messages.TicketReopened, actor.ID))
	return out, nil
}
