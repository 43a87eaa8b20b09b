package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
)

const maxQuickReplyLength = 4000

var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// ValidateName checks a panel or quick reply name.
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return invalid("Names must be 1-32 lower case letters, digits, dashes or underscores.")
	}
	return nil
}

// ValidateQuickReply checks a quick reply before it is saved.
func ValidateQuickReply(q *entities.QuickReply) error {
	if err := ValidateName(q.Name); err != nil {
		return err
	}
	if strings.TrimSpace(q.Content) == "" {
		return invalid("A quick reply needs content.")
	}
	if len(q.Content) > maxQuickReplyLength {
		return invalid("Quick reply content can be at most %d characters.", maxQuickReplyLength)
	}
	if q.Delay < 0 {
		return invalid("The close delay cannot be negative.")
	}
	if q.Delay > 0 && !q.CloseAfter {
		return invalid("A close delay needs close after to be enabled.")
	}
	return nil
}

// AddQuickReply adds or replaces a quick reply.
func (m *Manager) AddQuickReply(ctx context.Context, guildID string, actor *Member, q *entities.QuickReply) error {
	q.Name = strings.ToLower(strings.TrimSpace(q.Name))
	if err := ValidateQuickReply(q); err != nil {
		return err
	}

	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		verb := "Added"
		if _, ok := g.QuickReplies[q.Name]; ok {
			verb = "Updated"
		}
		g.QuickReplies[q.Name] = q
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Detail: fmt.Sprintf("%s quick reply %q", verb, q.Name)})
		return nil
	})
}

// RemoveQuickReply deletes a quick reply.
func (m *Manager) RemoveQuickReply(ctx context.Context, guildID string, actor *Member, name string) error {
	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		if _, ok := g.QuickReplies[name]; !ok {
			return notFound("Quick reply %q does not exist.", name)
		}
		delete(g.QuickReplies, name)
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Detail: fmt.Sprintf("Removed quick reply %q", name)})
		return nil
	})
}

// ListQuickReplies lists quick replies by name.
func (m *Manager) ListQuickReplies(ctx context.Context, guildID string) ([]*entities.QuickReply, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	out := make([]*entities.QuickReply, 0, len(g.QuickReplies))
	for _, q := range g.QuickReplies {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetQuickReply gets a quick reply by name.
func (m *Manager) GetQuickReply(ctx context.Context, guildID, name string) (*entities.QuickReply, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	q, ok := g.QuickReplies[name]
	if !ok {
		return nil, notFound("Quick reply %q does not exist.", name)
	}
	return q, nil
}

// SendQuickReply posts a quick reply into a ticket and, when the reply closes tickets, closes it
// after the reply's delay.
func (m *Manager) SendQuickReply(ctx context.Context, guildID, guildName, containerID string, actor *Member, name string) error {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	t, err := ticketIn(g, containerID)
	if err != nil {
		return err
	}
	if err := Can(actor, ActionQuickReply, g, t); err != nil {
		return err
	}
	q, ok := g.QuickReplies[name]
	if !ok {
		return notFound("Quick reply %q does not exist.", name)
	}

	v := Vars{
		User:     "<@" + t.Owner + ">",
		Username: t.Owner,
		Panel:    t.Panel,
		Num:      t.Number,
		Server:   guildName,
	}
	if owner, err := m.adapter.Member(ctx, guildID, t.Owner); err == nil {
		v.Username = owner.Name
	}
	if t.ClaimedBy != "" {
		v.Claimer = "<@" + t.ClaimedBy + ">"
	}

	msg := &Message{MentionUsers: []string{t.Owner}}
	if q.Title != "" {
		colour := 0
		if p := g.Panels[t.Panel]; p != nil {
			colour = int(p.EmbedColour)
		}
		msg.Embed = &Embed{Title: Render(q.Title, v), Description: Render(q.Content, v), Colour: colour}
	} else {
		msg.Content = Render(q.Content, v)
	}
	if _, err := m.adapter.SendMessage(ctx, containerID, msg); err != nil {
		m.l.Error("Error sending quick reply",
			slog.String(logging.KeyChannel, containerID),
			slog.String(logging.KeyError, err.Error()),
		)
		return wrapError(KindAdapter, err, messages.ErrAdapterPermissions)
	}

	if !q.CloseAfter {
		return nil
	}
	return m.ScheduleClose(ctx, &CloseRequest{
		GuildID:     guildID,
		GuildName:   guildName,
		ContainerID: containerID,
		Actor:       actor,
		Reason:      fmt.Sprintf("Quick reply: %s", q.Name),
	}, q.Delay.Std())
}
