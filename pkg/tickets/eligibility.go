package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
)

// DenyReason identifies the eligibility check that refused a ticket.
type DenyReason string

const (
	DenyPanelDisabled   DenyReason = "panel_disabled"
	DenySuspended       DenyReason = "suspended"
	DenyBlacklisted     DenyReason = "blacklisted"
	DenyMissingRole     DenyReason = "missing_role"
	DenyTicketLimit     DenyReason = "ticket_limit"
	DenyPanelFull       DenyReason = "panel_full"
	DenyOutsideSchedule DenyReason = "outside_schedule"
	DenyCooldown        DenyReason = "cooldown"
	DenyRateLimited     DenyReason = "rate_limited"
	DenyAccountAge      DenyReason = "account_age"
	DenyServerAge       DenyReason = "server_age"
)

// rateWindow is the trailing window of the hourly rate limits.
const rateWindow = time.Hour

// Denial is a refused eligibility check.
type Denial struct {
	Reason  DenyReason
	Message string

	// Remaining is how long until the check would pass, when known.
	Remaining time.Duration

	// Existing are the containers of the requester's open tickets for DenyTicketLimit.
	Existing []string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("ticket denied (%s): %s", d.Reason, d.Message)
}

func deny(reason DenyReason, format string, args ...any) *Denial {
	return &Denial{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// CanOpen runs the eligibility checks in order and returns the first denial, or nil when the
// member may open a ticket on the panel.
func CanOpen(now time.Time, m *Member, p *entities.Panel, g *entities.Guild) *Denial {
	if p.Disabled {
		return deny(DenyPanelDisabled, "This panel is currently disabled.")
	}

	// 1. Suspension.
	if g.SuspendedMessage != "" {
		return deny(DenySuspended, "%s", g.SuspendedMessage)
	}

	// 2. Blacklist.
	if e := ActiveBlacklistEntry(now, g, m); e != nil {
		reason := e.Reason
		if reason == "" {
			reason = "No reason given"
		}
		return deny(DenyBlacklisted, "You are blacklisted from opening tickets: %s", reason)
	}

	// 3. Required roles.
	if len(p.RequiredRoles) > 0 && !hasAnyRole(p.RequiredRoles, m.Roles) {
		return deny(DenyMissingRole, "You do not have a role required to open a ticket on this panel.")
	}

	// 4. Guild-wide open ticket cap.
	if open := g.UserTickets(m.ID); len(open) >= g.MaxTickets {
		d := deny(DenyTicketLimit, "You already have the maximum of %d open ticket(s): %s", g.MaxTickets, mentionContainers(open))
		for _, t := range open {
			d.Existing = append(d.Existing, t.ContainerID)
		}
		return d
	}

	// 5. Panel open ticket cap.
	if p.MaxOpen > 0 && g.PanelTickets(p.Name) >= p.MaxOpen {
		return deny(DenyPanelFull, "This panel has reached its limit of %d open tickets. Please try again later.", p.MaxOpen)
	}

	// 6. Open hours.
	if p.Schedule != nil && !ScheduleOpen(p.Schedule, now) {
		msg := p.Schedule.ClosedMessage
		if msg == "" {
			msg = "Tickets on this panel cannot be opened right now. Please try again during opening hours."
		}
		return deny(DenyOutsideSchedule, "%s", msg)
	}

	// 7 and 8. Cooldown and hourly rate limits.
	if d := throttled(now, m, p, g); d != nil {
		return d
	}

	// 9. Account and membership age.
	if minAge := g.MinAccountAge.Std(); minAge > 0 && !m.AccountCreated.IsZero() && now.Sub(m.AccountCreated) < minAge {
		d := deny(DenyAccountAge, "Your account must be at least %s old to open a ticket.", g.MinAccountAge)
		d.Remaining = minAge - now.Sub(m.AccountCreated)
		return d
	}
	if minAge := g.MinServerAge.Std(); minAge > 0 && !m.JoinedAt.IsZero() && now.Sub(m.JoinedAt) < minAge {
		d := deny(DenyServerAge, "You must have been a member of this server for at least %s to open a ticket.", g.MinServerAge)
		d.Remaining = minAge - now.Sub(m.JoinedAt)
		return d
	}

	return nil
}

// throttled applies the cooldowns and hourly rate limits. Create checks them again when it writes
// the record, since opens that raced past eligibility are only visible then.
func throttled(now time.Time, m *Member, p *entities.Panel, g *entities.Guild) *Denial {
	// The stricter of the guild and panel cooldowns wins.
	remaining := cooldownRemaining(now, g.Cooldown, g.LastOpened[m.ID])
	if r := cooldownRemaining(now, p.Cooldown, p.LastOpened[m.ID]); r > remaining {
		remaining = r
	}
	if remaining > 0 {
		d := deny(DenyCooldown, "You must wait %s before opening another ticket.", roundUp(remaining))
		d.Remaining = remaining
		return d
	}

	if g.RateLimitPerHour > 0 && countSince(g.RecentOpens, now.Add(-rateWindow)) >= g.RateLimitPerHour {
		return deny(DenyRateLimited, "Too many tickets have been opened recently. Please try again later.")
	}
	if p.RateLimitPerHour > 0 && countSince(p.RecentOpens, now.Add(-rateWindow)) >= p.RateLimitPerHour {
		return deny(DenyRateLimited, "Too many tickets have been opened on this panel recently. Please try again later.")
	}
	return nil
}

// ScheduleOpen reports whether now falls inside the schedule's weekly window. An unknown timezone
// is treated as UTC. An End before Start spans midnight and belongs to the day it started on.
func ScheduleOpen(s *entities.Schedule, now time.Time) bool {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || s.Timezone == "" {
		loc = time.UTC
	}
	local := now.In(loc)

	start, err := parseClock(s.Start)
	if err != nil {
		return true
	}
	end, err := parseClock(s.End)
	if err != nil {
		return true
	}

	minute := local.Hour()*60 + local.Minute()
	today := local.Weekday()
	yesterday := (today + 6) % 7

	switch {
	case start == end:
		return dayAllowed(s.Days, today)
	case start < end:
		return dayAllowed(s.Days, today) && minute >= start && minute < end
	default:
		if minute >= start {
			return dayAllowed(s.Days, today)
		}
		return minute < end && dayAllowed(s.Days, yesterday)
	}
}

// ValidateSchedule checks a schedule before it is saved.
func ValidateSchedule(s *entities.Schedule) error {
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return invalid("Unknown timezone %q.", s.Timezone)
		}
	}
	if _, err := parseClock(s.Start); err != nil {
		return invalid("Invalid start time %q, expected HH:MM.", s.Start)
	}
	if _, err := parseClock(s.End); err != nil {
		return invalid("Invalid end time %q, expected HH:MM.", s.End)
	}
	for _, d := range s.Days {
		if d < time.Sunday || d > time.Saturday {
			return invalid("Invalid weekday %d.", d)
		}
	}
	return nil
}

// parseClock parses "HH:MM" into minutes after midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func dayAllowed(days []time.Weekday, d time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, v := range days {
		if v == d {
			return true
		}
	}
	return false
}

func cooldownRemaining(now time.Time, cooldown custom.Duration, last time.Time) time.Duration {
	if cooldown <= 0 || last.IsZero() {
		return 0
	}
	if r := last.Add(cooldown.Std()).Sub(now); r > 0 {
		return r
	}
	return 0
}

func countSince(times []time.Time, since time.Time) int {
	n := 0
	for _, t := range times {
		if t.After(since) {
			n++
		}
	}
	return n
}

// pruneBefore drops times at or before the cutoff.
func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	out := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

func roundUp(d time.Duration) custom.Duration {
	if r := d % time.Minute; r != 0 {
		d += time.Minute - r
	}
	return custom.Duration(d)
}

func hasAnyRole(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

func mentionContainers(tickets []*entities.Ticket) string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, "<#"+t.ContainerID+">")
	}
	return strings.Join(out, ", ")
}
