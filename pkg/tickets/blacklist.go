package tickets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
)

// ActiveBlacklistEntry returns the entry banning the member or any of their roles, or nil.
// Expired entries are ignored but kept until pruned.
func ActiveBlacklistEntry(now time.Time, g *entities.Guild, m *Member) *entities.BlacklistEntry {
	subjects := append([]string{m.ID}, m.Roles...)
	for _, s := range subjects {
		if e, ok := g.BlacklistAdvanced[s]; ok && e.Active(now) {
			return e
		}
		for _, id := range g.Blacklist {
			if id == s {
				return &entities.BlacklistEntry{Subject: id}
			}
		}
	}
	return nil
}

// IsBlacklisted reports whether a subject has an active blacklist entry.
func (m *Manager) IsBlacklisted(ctx context.Context, guildID, subject string) (bool, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("error getting guild: %w", err)
	}
	e, ok := g.BlacklistAdvanced[subject]
	return ok && e.Active(m.clock.Now()), nil
}

// AddBlacklist bans a user or role from opening tickets. A nil expiry bans permanently. Adding a
// subject again replaces its entry.
func (m *Manager) AddBlacklist(ctx context.Context, guildID string, actor *Member, subject, reason string, expires *time.Time) (*entities.BlacklistEntry, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, invalid("A user or role is required.")
	}

	var entry *entities.BlacklistEntry
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		if expires != nil && !expires.After(tx.now) {
			return invalid("The expiry must be in the future.")
		}

		entry = &entities.BlacklistEntry{
			Subject:  subject,
			Reason:   reason,
			IssuedBy: actor.ID,
			IssuedAt: tx.now,
			Expires:  expires,
		}
		g.BlacklistAdvanced[subject] = entry

		detail := reason
		if expires != nil {
			detail = fmt.Sprintf("%s (until %s)", reason, expires.UTC().Format(time.RFC3339))
		}
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditBlacklistAdd, Actor: actor.ID, Target: subject, Detail: strings.TrimSpace(detail)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveBlacklist lifts a ban.
func (m *Manager) RemoveBlacklist(ctx context.Context, guildID string, actor *Member, subject string) error {
	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}

		_, ok := g.BlacklistAdvanced[subject]
		delete(g.BlacklistAdvanced, subject)
		for i, id := range g.Blacklist {
			if id == subject {
				g.Blacklist = append(g.Blacklist[:i], g.Blacklist[i+1:]...)
				ok = true
				break
			}
		}
		if !ok {
			return notFound("<@%s> is not blacklisted.", subject)
		}

		tx.record(g, entities.AuditLogEntry{Action: entities.AuditBlacklistRemove, Actor: actor.ID, Target: subject})
		return nil
	})
}

// ListBlacklist lists every entry, expired ones included, oldest first.
func (m *Manager) ListBlacklist(ctx context.Context, guildID string) ([]*entities.BlacklistEntry, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}

	out := make([]*entities.BlacklistEntry, 0, len(g.BlacklistAdvanced))
	for _, e := range g.BlacklistAdvanced {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.Before(out[j].IssuedAt)
		}
		return out[i].Subject < out[j].Subject
	})
	return out, nil
}

// PruneBlacklist deletes expired entries and returns how many were removed.
func (m *Manager) PruneBlacklist(ctx context.Context, guildID string, actor *Member) (int, error) {
	pruned := 0
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		for subject, e := range g.BlacklistAdvanced {
			if !e.Active(tx.now) {
				delete(g.BlacklistAdvanced, subject)
				pruned++
			}
		}
		if pruned == 0 {
			return errNoChange
		}
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditBlacklistRemove, Actor: actor.ID, Detail: fmt.Sprintf("Pruned %d expired entries", pruned)})
		return nil
	})
	return pruned, err
}
