package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets/monitoring"
)

// DueForEscalation reports whether an unclaimed ticket has waited longer than the guild's
// escalation threshold and has not been escalated yet.
func DueForEscalation(now time.Time, g *entities.Guild, t *entities.Ticket) bool {
	esc := g.Escalation
	if !esc.Enabled || esc.Minutes <= 0 {
		return false
	}
	if t.ClaimedBy != "" || t.Escalated {
		return false
	}
	if t.Status != entities.StatusOpen && t.Status != entities.StatusAwaitingStaff {
		return false
	}
	return now.Sub(t.WaitingSince()) > time.Duration(esc.Minutes)*time.Minute
}

// escalateGuild runs one escalation pass over a guild.
func (m *Manager) escalateGuild(ctx context.Context, guildID string) error {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	if !g.Escalation.Enabled {
		return nil
	}

	now := m.clock.Now()
	for _, t := range g.Tickets() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !DueForEscalation(now, g, t) {
			continue
		}
		if err := m.escalate(ctx, guildID, t.ContainerID); err != nil {
			m.logTicketError(guildID, t.ContainerID, "escalation", err)
		}
	}
	return nil
}

// escalate marks the ticket escalated and then sends the alert, so a failed send is never
// retried into a duplicate alert.
func (m *Manager) escalate(ctx context.Context, guildID, containerID string) error {
	var (
		owner  string
		waited time.Duration
		cfg    entities.EscalationConfig
		marked bool
	)
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		t, ok := g.TicketByContainer(containerID)
		if !ok || !DueForEscalation(tx.now, g, t) {
			return errNoChange
		}

		t.Escalated = true
		t.EscalationLevel++
		owner = t.Owner
		waited = tx.now.Sub(t.WaitingSince())
		cfg = g.Escalation
		marked = true

		tx.record(g, entities.AuditLogEntry{
			Action:      entities.AuditEscalate,
			Actor:       m.BotID(),
			Target:      owner,
			ContainerID: containerID,
			Panel:       t.Panel,
			Detail:      fmt.Sprintf("Unclaimed for %d minutes", int(waited.Minutes())),
		})
		return nil
	})
	if err != nil || !marked {
		return err
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	monitoring.EscalationsFired.Inc()

	content := fmt.Sprintf(messages.EscalationAlert, containerID, owner, int(waited.Minutes()))
	msg := &Message{Content: content}
	if cfg.RoleID != "" {
		msg.Content = "<@&" + cfg.RoleID + "> " + content
		msg.MentionRoles = []string{cfg.RoleID}
	}

	channel := cfg.ChannelID
	if channel == "" {
		channel = containerID
	}
	if _, err := m.adapter.SendMessage(ctx, channel, msg); err != nil {
		return fmt.Errorf("error sending escalation alert: %w", err)
	}
	return nil
}
