package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/google/uuid"
)

const auditColour = 0x95A5A6

// record appends an audit entry to the guild document as part of the current mutation.
func (tx *txn) record(g *entities.Guild, e entities.AuditLogEntry) {
	e.ID = uuid.NewString()
	e.Timestamp = tx.now
	g.AuditLog = append(g.AuditLog, &e)
	tx.audit = append(tx.audit, &e)
}

// mirrorAudit posts committed audit entries to the guild's audit channel.
func (m *Manager) mirrorAudit(ctx context.Context, guildID string, tx *txn) {
	if tx == nil || tx.auditChannel == "" {
		return
	}
	for _, e := range tx.audit {
		if _, err := m.adapter.SendMessage(ctx, tx.auditChannel, &Message{Embed: auditEmbed(e)}); err != nil {
			m.l.Warn("Error mirroring audit entry",
				slog.String(logging.KeyGuild, guildID),
				slog.String(logging.KeyChannel, tx.auditChannel),
				slog.String(logging.KeyError, err.Error()),
			)
			return
		}
	}
}

func auditEmbed(e *entities.AuditLogEntry) *Embed {
	fields := []EmbedField{{Name: "Actor", Value: "<@" + e.Actor + ">", Inline: true}}
	if e.Target != "" {
		fields = append(fields, EmbedField{Name: "Target", Value: "<@" + e.Target + ">", Inline: true})
	}
	if e.ContainerID != "" {
		fields = append(fields, EmbedField{Name: "Ticket", Value: "<#" + e.ContainerID + ">", Inline: true})
	}
	if e.Panel != "" {
		fields = append(fields, EmbedField{Name: "Panel", Value: e.Panel, Inline: true})
	}
	return &Embed{
		Title:       auditTitle(e.Action),
		Description: e.Detail,
		Colour:      auditColour,
		Fields:      fields,
		Footer:      e.ID,
		Timestamp:   e.Timestamp,
	}
}

func auditTitle(a entities.AuditAction) string {
	s := strings.ReplaceAll(string(a), "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

// AuditFilter narrows an audit log listing. Zero values match everything.
type AuditFilter struct {
	Action entities.AuditAction
	Actor  string
	Since  time.Time
	Limit  int
}

// AuditLog lists audit entries newest first.
func (m *Manager) AuditLog(ctx context.Context, guildID string, actor *Member, f AuditFilter) ([]*entities.AuditLogEntry, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	if err := Can(actor, ActionAdmin, g, nil); err != nil {
		return nil, err
	}
	if f.Action != "" && !f.Action.Valid() {
		return nil, invalid("Unknown audit action %q.", f.Action)
	}

	var out []*entities.AuditLogEntry
	for i := len(g.AuditLog) - 1; i >= 0; i-- {
		e := g.AuditLog[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Actor != "" && e.Actor != f.Actor {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// pruneAudit drops entries older than the guild's retention and returns how many were dropped.
func pruneAudit(g *entities.Guild, now time.Time) int {
	if g.AuditRetention <= 0 {
		return 0
	}
	cutoff := now.Add(-g.AuditRetention.Std())
	kept := g.AuditLog[:0]
	for _, e := range g.AuditLog {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	dropped := len(g.AuditLog) - len(kept)
	g.AuditLog = kept
	return dropped
}
