package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets/monitoring"
)

// legacyWarningLead is how long before a legacy inactivity close the warning is sent, and the
// least time between the warning and the close.
const legacyWarningLead = 20 * time.Minute

// AutoCloseAction is what an auto-close pass should do with a ticket.
type AutoCloseAction int

const (
	AutoCloseNone AutoCloseAction = iota
	AutoCloseWarn
	AutoCloseClose
)

// Auto-close policies.
const (
	PolicySmartUser  = "smart_user"
	PolicySmartStaff = "smart_staff"
	PolicyLegacy     = "legacy"
)

// AutoCloseDecision is the outcome of EvaluateAutoClose.
type AutoCloseDecision struct {
	Action AutoCloseAction
	Policy string

	// Reason is the close reason, or the time left for a warning.
	Reason    string
	Remaining time.Duration
}

// EvaluateAutoClose decides whether a ticket should be warned or closed for inactivity. Smart
// thresholds are checked first and legacy inactivity only when smart yields nothing.
//
// Smart mode looks at who spoke last: when staff spoke last the owner has UserHours to answer,
// with one warning WarningHours before the close; when the owner spoke last staff have StaffHours
// to answer. Legacy mode closes a ticket whose owner never wrote Inactive hours after it was
// opened, warning 20 minutes before.
func EvaluateAutoClose(now time.Time, g *entities.Guild, t *entities.Ticket) AutoCloseDecision {
	if d := evaluateSmart(now, g.AutoClose, t); d.Action != AutoCloseNone {
		return d
	}
	return evaluateLegacy(now, g.Inactive, t)
}

func evaluateSmart(now time.Time, ac entities.AutoCloseConfig, t *entities.Ticket) AutoCloseDecision {
	switch {
	case ac.UserHours > 0 && t.StaffSpokeLast():
		limit := time.Duration(ac.UserHours) * time.Hour
		idle := now.Sub(*t.LastStaffMessage)
		if idle >= limit {
			return AutoCloseDecision{
				Action: AutoCloseClose,
				Policy: PolicySmartUser,
				Reason: fmt.Sprintf("Automatically closed after %d hours without a reply from the ticket owner.", ac.UserHours),
			}
		}
		warnAt := limit - time.Duration(ac.WarningHours)*time.Hour
		if ac.WarningHours > 0 && ac.WarningHours < ac.UserHours && t.AutoCloseWarnings == 0 && idle >= warnAt {
			return AutoCloseDecision{Action: AutoCloseWarn, Policy: PolicySmartUser, Remaining: limit - idle}
		}
	case ac.StaffHours > 0 && t.OwnerSpokeLast():
		limit := time.Duration(ac.StaffHours) * time.Hour
		if now.Sub(*t.LastUserMessage) >= limit {
			return AutoCloseDecision{
				Action: AutoCloseClose,
				Policy: PolicySmartStaff,
				Reason: fmt.Sprintf("Automatically closed after %d hours without a staff response.", ac.StaffHours),
			}
		}
	}
	return AutoCloseDecision{}
}

func evaluateLegacy(now time.Time, hours int, t *entities.Ticket) AutoCloseDecision {
	if hours <= 0 || t.LastUserMessage != nil {
		return AutoCloseDecision{}
	}

	deadline := t.CreatedAt.Add(time.Duration(hours) * time.Hour)
	if t.LegacyWarnedAt == nil {
		if !now.Before(deadline.Add(-legacyWarningLead)) {
			remaining := deadline.Sub(now)
			if remaining < legacyWarningLead {
				remaining = legacyWarningLead
			}
			return AutoCloseDecision{Action: AutoCloseWarn, Policy: PolicyLegacy, Remaining: remaining}
		}
		return AutoCloseDecision{}
	}

	if !now.Before(deadline) && now.Sub(*t.LegacyWarnedAt) >= legacyWarningLead {
		return AutoCloseDecision{
			Action: AutoCloseClose,
			Policy: PolicyLegacy,
			Reason: fmt.Sprintf("Automatically closed after %d hours of inactivity.", hours),
		}
	}
	return AutoCloseDecision{}
}

// autoCloseGuild runs one auto-close pass over a guild: warnings and closes for idle tickets,
// then retention pruning of the audit log and reopen records.
func (m *Manager) autoCloseGuild(ctx context.Context, guildID string) error {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}

	now := m.clock.Now()
	for _, t := range g.Tickets() {
		if err := ctx.Err(); err != nil {
			return err
		}

		d := EvaluateAutoClose(now, g, t)
		switch d.Action {
		case AutoCloseWarn:
			if err := m.warnInactive(ctx, guildID, t.ContainerID, d.Policy); err != nil {
				m.logTicketError(guildID, t.ContainerID, "auto_close", err)
			}
		case AutoCloseClose:
			if err := m.limiter.Wait(ctx); err != nil {
				return err
			}
			err := m.Close(ctx, &CloseRequest{
				GuildID:     guildID,
				ContainerID: t.ContainerID,
				Reason:      d.Reason,
				Policy:      d.Policy,
			})
			if err != nil && KindOf(err) != KindNotFound {
				m.logTicketError(guildID, t.ContainerID, "auto_close", err)
			}
		}
	}

	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		changed := pruneAudit(g, tx.now) > 0
		for id, c := range g.Closed {
			if g.ReopenWindow <= 0 || tx.now.Sub(c.ClosedAt) > g.ReopenWindow.Std() {
				delete(g.Closed, id)
				changed = true
			}
		}
		if !changed {
			return errNoChange
		}
		return nil
	})
}

// warnInactive records and sends an inactivity warning. The decision is re-evaluated under the
// lock so a reply that arrived since the pass started suppresses the warning.
func (m *Manager) warnInactive(ctx context.Context, guildID, containerID, policy string) error {
	var (
		owner     string
		remaining time.Duration
		send      bool
	)
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		t, ok := g.TicketByContainer(containerID)
		if !ok {
			return errNoChange
		}
		d := EvaluateAutoClose(tx.now, g, t)
		if d.Action != AutoCloseWarn || d.Policy != policy {
			return errNoChange
		}

		if policy == PolicyLegacy {
			t.LegacyWarnedAt = timePtr(tx.now)
		} else {
			t.AutoCloseWarnings++
		}
		owner = t.Owner
		remaining = d.Remaining
		send = true
		return nil
	})
	if err != nil || !send {
		return err
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	monitoring.AutoCloseWarnings.WithLabelValues(policy).Inc()
	m.say(ctx, containerID, fmt.Sprintf(messages.AutoCloseWarning, owner, roundUp(remaining)))
	return nil
}
