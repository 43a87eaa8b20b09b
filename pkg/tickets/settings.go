package tickets

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
)

const (
	maxTicketsLimit = 25
	maxHours        = 24 * 30
)

var snowflakeRegex = regexp.MustCompile(`^\d{15,21}$`)

// ParseID accepts a raw snowflake or a user, role or channel mention.
func ParseID(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"<@&", "<@!", "<@", "<#"} {
		if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, ">") {
			s = s[len(prefix) : len(s)-1]
			break
		}
	}
	if !snowflakeRegex.MatchString(s) {
		return "", invalid("%q is not a valid ID or mention.", s)
	}
	return s, nil
}

func parseOptionalID(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return "", nil
	}
	return ParseID(s)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "enable", "enabled", "1":
		return true, nil
	case "false", "no", "off", "disable", "disabled", "0":
		return false, nil
	}
	return false, invalid("%q is not on or off.", s)
}

func parseRange(s string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < lo || v > hi {
		return 0, invalid("%q must be a whole number between %d and %d.", s, lo, hi)
	}
	return v, nil
}

func parseDuration(s string) (custom.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return 0, nil
	}
	d, err := custom.ParseDuration(s)
	if err != nil {
		return 0, invalid("%q is not a valid duration, try something like 90m, 12h or 2d.", s)
	}
	return d, nil
}

func parseIDList(s string) ([]string, error) {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		id, err := ParseID(f)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

type guildSetter func(g *entities.Guild, value string) error

var guildSettings = map[string]guildSetter{
	"max_tickets": func(g *entities.Guild, v string) (err error) {
		g.MaxTickets, err = parseRange(v, 1, maxTicketsLimit)
		return
	},
	"inactive": func(g *entities.Guild, v string) (err error) {
		g.Inactive, err = parseRange(v, 0, maxHours)
		return
	},
	"suspended_message": func(g *entities.Guild, v string) error {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "off") || strings.EqualFold(v, "none") {
			v = ""
		}
		g.SuspendedMessage = v
		return nil
	},
	"dm_alerts": func(g *entities.Guild, v string) (err error) {
		g.DMAlerts, err = parseBool(v)
		return
	},
	"user_can_rename": func(g *entities.Guild, v string) (err error) {
		g.UserCanRename, err = parseBool(v)
		return
	},
	"user_can_close": func(g *entities.Guild, v string) (err error) {
		g.UserCanClose, err = parseBool(v)
		return
	},
	"user_can_manage": func(g *entities.Guild, v string) (err error) {
		g.UserCanManage, err = parseBool(v)
		return
	},
	"transcripts": func(g *entities.Guild, v string) (err error) {
		g.Transcripts, err = parseBool(v)
		return
	},
	"detailed_transcripts": func(g *entities.Guild, v string) (err error) {
		g.DetailedTranscripts, err = parseBool(v)
		return
	},
	"thread_auto_add_roles": func(g *entities.Guild, v string) (err error) {
		g.ThreadAutoAddRoles, err = parseBool(v)
		return
	},
	"thread_close_archive": func(g *entities.Guild, v string) (err error) {
		g.ThreadCloseArchive, err = parseBool(v)
		return
	},
	"keep_on_leave": func(g *entities.Guild, v string) (err error) {
		g.KeepOnLeave, err = parseBool(v)
		return
	},
	"reopen_window": func(g *entities.Guild, v string) (err error) {
		g.ReopenWindow, err = parseDuration(v)
		return
	},
	"cooldown": func(g *entities.Guild, v string) (err error) {
		g.Cooldown, err = parseDuration(v)
		return
	},
	"rate_limit_per_hour": func(g *entities.Guild, v string) (err error) {
		g.RateLimitPerHour, err = parseRange(v, 0, 1000)
		return
	},
	"min_account_age": func(g *entities.Guild, v string) (err error) {
		g.MinAccountAge, err = parseDuration(v)
		return
	},
	"min_server_age": func(g *entities.Guild, v string) (err error) {
		g.MinServerAge, err = parseDuration(v)
		return
	},
	"audit_log_channel": func(g *entities.Guild, v string) (err error) {
		g.AuditLogChannel, err = parseOptionalID(v)
		return
	},
	"audit_retention": func(g *entities.Guild, v string) (err error) {
		g.AuditRetention, err = parseDuration(v)
		return
	},
	"auto_close_user_hours": func(g *entities.Guild, v string) (err error) {
		g.AutoClose.UserHours, err = parseRange(v, 0, maxHours)
		return
	},
	"auto_close_warning_hours": func(g *entities.Guild, v string) (err error) {
		g.AutoClose.WarningHours, err = parseRange(v, 0, maxHours)
		return
	},
	"auto_close_staff_hours": func(g *entities.Guild, v string) (err error) {
		g.AutoClose.StaffHours, err = parseRange(v, 0, maxHours)
		return
	},
	"escalation_enabled": func(g *entities.Guild, v string) (err error) {
		g.Escalation.Enabled, err = parseBool(v)
		return
	},
	"escalation_minutes": func(g *entities.Guild, v string) (err error) {
		g.Escalation.Minutes, err = parseRange(v, 0, maxHours*60)
		return
	},
	"escalation_channel": func(g *entities.Guild, v string) (err error) {
		g.Escalation.ChannelID, err = parseOptionalID(v)
		return
	},
	"escalation_role": func(g *entities.Guild, v string) (err error) {
		g.Escalation.RoleID, err = parseOptionalID(v)
		return
	},
	"support_roles": func(g *entities.Guild, v string) (err error) {
		g.SupportRoles, err = parseIDList(v)
		return
	},
}

// GuildSettingKeys lists the keys accepted by SetGuildSetting.
func GuildSettingKeys() []string {
	keys := make([]string, 0, len(guildSettings))
	for k := range guildSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// validateGuild checks cross-field constraints after a setting changed.
func validateGuild(g *entities.Guild) error {
	ac := g.AutoClose
	if ac.WarningHours > 0 && ac.UserHours > 0 && ac.WarningHours >= ac.UserHours {
		return invalid("The auto-close warning must come before the close: warning hours must be less than user hours.")
	}
	if g.Escalation.Enabled && g.Escalation.Minutes <= 0 {
		return invalid("Set escalation_minutes before enabling escalation.")
	}
	if g.Escalation.Enabled && g.Escalation.ChannelID == "" && g.Escalation.RoleID == "" {
		return invalid("Set an escalation channel or role before enabling escalation.")
	}
	return nil
}

// SetGuildSetting parses and stores one guild setting. Malformed values are refused before
// anything is saved.
func (m *Manager) SetGuildSetting(ctx context.Context, guildID string, actor *Member, key, value string) error {
	set, ok := guildSettings[key]
	if !ok {
		return invalid("Unknown setting %q.", key)
	}

	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		if err := set(g, value); err != nil {
			return err
		}
		if err := validateGuild(g); err != nil {
			return err
		}
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Detail: fmt.Sprintf("%s = %s", key, value)})
		return nil
	})
}

// AddSupportRole adds a guild support role.
func (m *Manager) AddSupportRole(ctx context.Context, guildID string, actor *Member, roleID string) error {
	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		for _, r := range g.SupportRoles {
			if r == roleID {
				return invalid("<@&%s> is already a support role.", roleID)
			}
		}
		g.SupportRoles = append(g.SupportRoles, roleID)
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Target: roleID, Detail: "Added support role"})
		return nil
	})
}

// RemoveSupportRole removes a guild support role.
func (m *Manager) RemoveSupportRole(ctx context.Context, guildID string, actor *Member, roleID string) error {
	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		for i, r := range g.SupportRoles {
			if r == roleID {
				g.SupportRoles = append(g.SupportRoles[:i], g.SupportRoles[i+1:]...)
				tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Target: roleID, Detail: "Removed support role"})
				return nil
			}
		}
		return notFound("<@&%s> is not a support role.", roleID)
	})
}
