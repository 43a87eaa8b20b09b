package entities

import (
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
)

// Guild is the ticket configuration and state document for one guild. Everything the ticket
// engine knows about a guild lives here and is mutated atomically as a whole.
type Guild struct {
	// ID is the ID of the guild.
	ID string `json:"id" bson:"id" yaml:"id"`

	// SchemaVersion gates forward migrations of the document.
	SchemaVersion int `json:"schema_version" bson:"schema_version" yaml:"schema_version"`

	// SupportRoles are the guild-wide roles that handle tickets.
	SupportRoles []string `json:"support_roles" bson:"support_roles" yaml:"support_roles"`

	// Blacklist holds subject IDs that are banned permanently. Kept for documents written before
	// BlacklistAdvanced existed.
	Blacklist []string `json:"blacklist" bson:"blacklist" yaml:"blacklist"`

	// BlacklistAdvanced holds blacklist entries keyed by subject ID.
	BlacklistAdvanced map[string]*BlacklistEntry `json:"blacklist_advanced" bson:"blacklist_advanced" yaml:"blacklist_advanced"`

	// MaxTickets is how many tickets a user may have open at once across all panels.
	MaxTickets int `json:"max_tickets" bson:"max_tickets" yaml:"max_tickets"`

	// Inactive is the legacy auto-close threshold in hours. Zero disables it.
	Inactive int `json:"inactive" bson:"inactive" yaml:"inactive"`

	// SuspendedMessage suspends ticket creation when set and is shown to anyone trying to open one.
	SuspendedMessage string `json:"suspended_message" bson:"suspended_message" yaml:"suspended_message"`

	// DMAlerts sends the ticket owner a direct message on lifecycle events.
	DMAlerts bool `json:"dm_alerts" bson:"dm_alerts" yaml:"dm_alerts"`

	UserCanRename bool `json:"user_can_rename" bson:"user_can_rename" yaml:"user_can_rename"`
	UserCanClose  bool `json:"user_can_close" bson:"user_can_close" yaml:"user_can_close"`
	UserCanManage bool `json:"user_can_manage" bson:"user_can_manage" yaml:"user_can_manage"`

	// Transcripts saves a transcript when a ticket closes.
	Transcripts bool `json:"transcripts" bson:"transcripts" yaml:"transcripts"`

	// DetailedTranscripts includes attachments and embeds in transcripts.
	DetailedTranscripts bool `json:"detailed_transcripts" bson:"detailed_transcripts" yaml:"detailed_transcripts"`

	// ThreadAutoAddRoles adds the support roles' members to thread tickets.
	ThreadAutoAddRoles bool `json:"thread_auto_add_roles" bson:"thread_auto_add_roles" yaml:"thread_auto_add_roles"`

	// ThreadCloseArchive archives and locks thread tickets on close instead of deleting them.
	ThreadCloseArchive bool `json:"thread_close_archive" bson:"thread_close_archive" yaml:"thread_close_archive"`

	// KeepOnLeave keeps a member's tickets open after they leave the guild.
	KeepOnLeave bool `json:"keep_on_leave" bson:"keep_on_leave" yaml:"keep_on_leave"`

	// ReopenWindow is how long after closing a ticket may be reopened. Zero disables reopening.
	ReopenWindow custom.Duration `json:"reopen_window" bson:"reopen_window" yaml:"reopen_window"`

	// Cooldown is the minimum time between two tickets from the same user.
	Cooldown custom.Duration `json:"cooldown" bson:"cooldown" yaml:"cooldown"`

	// RateLimitPerHour caps how many tickets the whole guild opens in a trailing hour.
	RateLimitPerHour int `json:"rate_limit_per_hour" bson:"rate_limit_per_hour" yaml:"rate_limit_per_hour"`

	// MinAccountAge is the minimum age of a user's account to open a ticket.
	MinAccountAge custom.Duration `json:"min_account_age" bson:"min_account_age" yaml:"min_account_age"`

	// MinServerAge is the minimum time a user must have been a member to open a ticket.
	MinServerAge custom.Duration `json:"min_server_age" bson:"min_server_age" yaml:"min_server_age"`

	// AuditLogChannel mirrors audit entries to a channel when set.
	AuditLogChannel string `json:"audit_log_channel" bson:"audit_log_channel" yaml:"audit_log_channel"`

	// AuditRetention prunes audit entries older than this. Zero keeps everything.
	AuditRetention custom.Duration `json:"audit_retention" bson:"audit_retention" yaml:"audit_retention"`

	AutoClose  AutoCloseConfig  `json:"auto_close" bson:"auto_close" yaml:"auto_close"`
	Escalation EscalationConfig `json:"escalation" bson:"escalation" yaml:"escalation"`

	// Panels are the intake panels keyed by name.
	Panels map[string]*Panel `json:"panels" bson:"panels" yaml:"panels"`

	// Opened holds the active tickets keyed by owner ID then container ID. Change it through
	// AddTicket and RemoveTicket, or call ApplyDefaults afterwards.
	Opened map[string]map[string]*Ticket `json:"opened,omitempty" bson:"opened" yaml:"-"`

	// owners maps container ID to owner ID for the tickets in Opened. It is not stored.
	owners map[string]string

	// Closed holds recently closed tickets keyed by container ID, for reopening.
	Closed map[string]*ClosedTicket `json:"closed,omitempty" bson:"closed" yaml:"-"`

	// QuickReplies are the response templates keyed by name.
	QuickReplies map[string]*QuickReply `json:"quick_replies" bson:"quick_replies" yaml:"quick_replies"`

	// AuditLog is the append-only audit trail.
	AuditLog []*AuditLogEntry `json:"audit_log,omitempty" bson:"audit_log" yaml:"-"`

	Stats Stats `json:"-" bson:"stats" yaml:"-"`

	// RecentOpens are the open times of tickets in the trailing hour, for the guild rate limit.
	RecentOpens []time.Time `json:"recent_opens,omitempty" bson:"recent_opens" yaml:"-"`

	// LastOpened is when each user last opened a ticket, for the guild cooldown.
	LastOpened map[string]time.Time `json:"last_opened,omitempty" bson:"last_opened" yaml:"-"`
}

// AutoCloseConfig is the status-aware ("smart") auto-close configuration.
type AutoCloseConfig struct {
	// UserHours closes a ticket when the owner has not answered staff for this many hours.
	UserHours int `json:"user_hours" bson:"user_hours" yaml:"user_hours"`

	// WarningHours sends one warning this many hours before the UserHours close.
	WarningHours int `json:"warning_hours" bson:"warning_hours" yaml:"warning_hours"`

	// StaffHours closes a ticket when staff have not answered the owner for this many hours.
	StaffHours int `json:"staff_hours" bson:"staff_hours" yaml:"staff_hours"`
}

// Enabled reports whether any smart threshold is set.
func (c AutoCloseConfig) Enabled() bool {
	return c.UserHours > 0 || c.StaffHours > 0
}

// EscalationConfig configures alerts for unclaimed tickets.
type EscalationConfig struct {
	Enabled bool `json:"enabled" bson:"enabled" yaml:"enabled"`

	// Minutes is how long a ticket may wait unclaimed before it is escalated.
	Minutes int `json:"minutes" bson:"minutes" yaml:"minutes"`

	// ChannelID receives the escalation alert.
	ChannelID string `json:"channel_id" bson:"channel_id" yaml:"channel_id"`

	// RoleID is mentioned in the escalation alert.
	RoleID string `json:"role_id" bson:"role_id" yaml:"role_id"`
}

// NewGuild creates an empty guild document with defaults applied.
func NewGuild(id string) *Guild {
	g := &Guild{
		ID:            id,
		SchemaVersion: CurrentSchemaVersion,
	}
	g.ApplyDefaults()
	return g
}

// ApplyDefaults fills in zero values so callers never have to check for missing keys.
func (g *Guild) ApplyDefaults() {
	if g.MaxTickets <= 0 {
		g.MaxTickets = 1
	}
	if g.BlacklistAdvanced == nil {
		g.BlacklistAdvanced = make(map[string]*BlacklistEntry)
	}
	if g.Panels == nil {
		g.Panels = make(map[string]*Panel)
	}
	if g.Opened == nil {
		g.Opened = make(map[string]map[string]*Ticket)
	}
	if g.Closed == nil {
		g.Closed = make(map[string]*ClosedTicket)
	}
	if g.QuickReplies == nil {
		g.QuickReplies = make(map[string]*QuickReply)
	}
	if g.LastOpened == nil {
		g.LastOpened = make(map[string]time.Time)
	}
	g.Stats.applyDefaults()

	for name, p := range g.Panels {
		if p == nil {
			delete(g.Panels, name)
			continue
		}
		p.Name = name
		p.ApplyDefaults()
	}
	for owner, tickets := range g.Opened {
		if len(tickets) == 0 {
			delete(g.Opened, owner)
		}
	}
	g.reindex()
}

func (g *Guild) reindex() {
	g.owners = make(map[string]string)
	for owner, tickets := range g.Opened {
		for id := range tickets {
			g.owners[id] = owner
		}
	}
}

// Tickets returns every active ticket in the guild.
func (g *Guild) Tickets() []*Ticket {
	var out []*Ticket
	for _, tickets := range g.Opened {
		for _, t := range tickets {
			out = append(out, t)
		}
	}
	return out
}

// TicketByContainer finds the active ticket for a container.
func (g *Guild) TicketByContainer(containerID string) (*Ticket, bool) {
	if g.owners == nil {
		g.reindex()
	}
	owner, ok := g.owners[containerID]
	if !ok {
		return nil, false
	}
	t, ok := g.Opened[owner][containerID]
	return t, ok
}

// UserTickets returns the active tickets owned by a user.
func (g *Guild) UserTickets(userID string) []*Ticket {
	out := make([]*Ticket, 0, len(g.Opened[userID]))
	for _, t := range g.Opened[userID] {
		out = append(out, t)
	}
	return out
}

// PanelTickets counts the active tickets opened on a panel.
func (g *Guild) PanelTickets(panel string) int {
	n := 0
	for _, t := range g.Tickets() {
		if t.Panel == panel {
			n++
		}
	}
	return n
}

// AddTicket stores an active ticket under its owner and container.
func (g *Guild) AddTicket(t *Ticket) {
	if g.owners == nil {
		g.reindex()
	}
	if g.Opened == nil {
		g.Opened = make(map[string]map[string]*Ticket)
	}
	if g.Opened[t.Owner] == nil {
		g.Opened[t.Owner] = make(map[string]*Ticket)
	}
	g.Opened[t.Owner][t.ContainerID] = t
	g.owners[t.ContainerID] = t.Owner
}

// RemoveTicket removes an active ticket and returns it.
func (g *Guild) RemoveTicket(containerID string) (*Ticket, bool) {
	t, ok := g.TicketByContainer(containerID)
	if !ok {
		return nil, false
	}
	owner := g.owners[containerID]
	delete(g.owners, containerID)
	tickets := g.Opened[owner]
	delete(tickets, containerID)
	if len(tickets) == 0 {
		delete(g.Opened, owner)
	}
	return t, true
}

// IsSupport reports whether any of the roles is a guild support role.
func (g *Guild) IsSupport(roles []string) bool {
	return hasAny(g.SupportRoles, roles)
}

func hasAny(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}
