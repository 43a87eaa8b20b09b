package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
)

const (
	// maxControlsPerRow and maxRows are the platform limits for controls on one message.
	maxControlsPerRow = 5
	maxRows           = 5

	maxLabelLength = 80
)

// ValidatePanel checks a panel before it is saved.
func ValidatePanel(p *entities.Panel) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if p.ButtonStyle != "" {
		if _, ok := entities.ParseButtonStyle(string(p.ButtonStyle)); !ok {
			return invalid("Unknown button colour %q.", p.ButtonStyle)
		}
	}
	if utf8.RuneCountInString(p.ButtonText) > maxLabelLength {
		return invalid("Button text can be at most %d characters.", maxLabelLength)
	}
	if p.Row < 0 || p.Row > maxRows {
		return invalid("Row must be between 0 and %d.", maxRows)
	}
	if p.MaxClaims < 0 || p.MaxOpen < 0 || p.RateLimitPerHour < 0 || p.Cooldown < 0 {
		return invalid("Limits cannot be negative.")
	}
	if len(p.Questions) > maxQuestions {
		return invalid("A panel can have at most %d questions.", maxQuestions)
	}
	for _, q := range p.Questions {
		if err := validateQuestion(&q); err != nil {
			return err
		}
	}
	if p.Schedule != nil {
		if err := ValidateSchedule(p.Schedule); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestion(q *entities.Question) error {
	if q.Label == "" || utf8.RuneCountInString(q.Label) > 45 {
		return invalid("Question labels must be between 1 and 45 characters.")
	}
	if q.Style != "" && q.Style != entities.QuestionShort && q.Style != entities.QuestionParagraph {
		return invalid("Question style must be short or paragraph.")
	}
	if q.MinLength < 0 || q.MaxLength < 0 || q.MaxLength > 4000 || (q.MaxLength > 0 && q.MinLength > q.MaxLength) {
		return invalid("Question length bounds must satisfy 0 <= min <= max <= 4000.")
	}
	return nil
}

// RegisterPanel adds a new panel. When the panel has a channel but no message, a panel message is
// posted in the channel first.
func (m *Manager) RegisterPanel(ctx context.Context, guildID string, actor *Member, p *entities.Panel) error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if err := ValidatePanel(p); err != nil {
		return err
	}

	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	if err := Can(actor, ActionAdmin, g, nil); err != nil {
		return err
	}
	if _, ok := g.Panels[p.Name]; ok {
		return invalid("A panel called %q already exists.", p.Name)
	}

	p.ApplyDefaults()
	posted := ""
	if p.ChannelID != "" && p.MessageID == "" {
		id, err := m.adapter.SendMessage(ctx, p.ChannelID, panelMessage(p))
		if err != nil {
			return wrapError(KindAdapter, err, messages.ErrAdapterPermissions)
		}
		p.MessageID = id
		posted = id
	}

	err = m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if _, ok := g.Panels[p.Name]; ok {
			return invalid("A panel called %q already exists.", p.Name)
		}
		g.Panels[p.Name] = p
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Panel: p.Name, Detail: "Created panel"})
		return nil
	})
	if err != nil {
		if posted != "" {
			if derr := m.adapter.DeleteMessage(ctx, p.ChannelID, posted); derr != nil {
				m.l.Warn("Error deleting unused panel message",
					slog.String(logging.KeyPanel, p.Name),
					slog.String(logging.KeyError, derr.Error()),
				)
			}
		}
		return err
	}

	_, err = m.RebuildControls(ctx, guildID)
	return err
}

func panelMessage(p *entities.Panel) *Message {
	return &Message{Embed: &Embed{
		Title:       "Support",
		Description: "Click a button below to open a ticket.",
		Colour:      int(p.EmbedColour),
	}}
}

// RemovePanel deletes a panel. Its open tickets are kept.
func (m *Manager) RemovePanel(ctx context.Context, guildID string, actor *Member, name string) error {
	var removed *entities.Panel
	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		p, ok := g.Panels[name]
		if !ok {
			return notFound("Panel %q does not exist.", name)
		}
		removed = p
		delete(g.Panels, name)
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Panel: name, Detail: "Removed panel"})
		return nil
	})
	if err != nil {
		return err
	}

	if removed.Placed() {
		if err := m.clearControls(ctx, guildID, removed.ChannelID, removed.MessageID); err != nil {
			m.l.Warn("Error clearing panel controls", slog.String(logging.KeyError, err.Error()))
		}
	}
	_, err = m.RebuildControls(ctx, guildID)
	return err
}

// clearControls removes the controls from a message no panel uses any more.
func (m *Manager) clearControls(ctx context.Context, guildID, channelID, messageID string) error {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return err
	}
	for _, p := range g.Panels {
		if p.ChannelID == channelID && p.MessageID == messageID {
			return nil
		}
	}
	err = m.adapter.AttachControls(ctx, channelID, messageID, nil)
	if errors.Is(err, ErrContainerGone) {
		return nil
	}
	return err
}

// Panels lists a guild's panels by priority then name.
func (m *Manager) Panels(ctx context.Context, guildID string) ([]*entities.Panel, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	out := make([]*entities.Panel, 0, len(g.Panels))
	for _, p := range g.Panels {
		out = append(out, p)
	}
	sortPanels(out)
	return out, nil
}

func sortPanels(panels []*entities.Panel) {
	sort.Slice(panels, func(i, j int) bool {
		if panels[i].Priority != panels[j].Priority {
			return panels[i].Priority < panels[j].Priority
		}
		return panels[i].Name < panels[j].Name
	})
}

type panelSetter func(p *entities.Panel, value string) error

var panelSettings = map[string]panelSetter{
	"category": func(p *entities.Panel, v string) (err error) {
		p.CategoryID, err = parseOptionalID(v)
		return
	},
	"alt_category": func(p *entities.Panel, v string) (err error) {
		p.AltCategoryID, err = parseOptionalID(v)
		return
	},
	"channel": func(p *entities.Panel, v string) (err error) {
		p.ChannelID, err = parseOptionalID(v)
		return
	},
	"message": func(p *entities.Panel, v string) (err error) {
		p.MessageID, err = parseOptionalID(v)
		return
	},
	"button_text": func(p *entities.Panel, v string) error {
		v = strings.TrimSpace(v)
		if v == "" || utf8.RuneCountInString(v) > maxLabelLength {
			return invalid("Button text must be between 1 and %d characters.", maxLabelLength)
		}
		p.ButtonText = v
		return nil
	},
	"button_style": func(p *entities.Panel, v string) error {
		s, ok := entities.ParseButtonStyle(v)
		if !ok {
			return invalid("Unknown button colour %q, use primary, secondary, success or danger.", v)
		}
		p.ButtonStyle = s
		return nil
	},
	"button_emoji": func(p *entities.Panel, v string) error {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "none") {
			v = ""
		}
		p.ButtonEmoji = v
		return nil
	},
	"priority": func(p *entities.Panel, v string) (err error) {
		p.Priority, err = parseRange(v, -100, 100)
		return
	},
	"row": func(p *entities.Panel, v string) (err error) {
		p.Row, err = parseRange(v, 0, maxRows)
		return
	},
	"colour": func(p *entities.Panel, v string) error {
		c, err := custom.ParseColour(v)
		if err != nil {
			return invalid("%q is not a valid colour, try #5865F2 or blurple.", v)
		}
		p.EmbedColour = c
		return nil
	},
	"required_roles": func(p *entities.Panel, v string) (err error) {
		p.RequiredRoles, err = parseIDList(v)
		return
	},
	"support_roles": func(p *entities.Panel, v string) (err error) {
		p.SupportRoles, err = parseIDList(v)
		return
	},
	"ticket_name": func(p *entities.Panel, v string) error {
		v = strings.TrimSpace(v)
		if v == "" {
			v = entities.DefaultTicketName
		}
		if utf8.RuneCountInString(v) > maxContainerName {
			return invalid("The ticket name template can be at most %d characters.", maxContainerName)
		}
		p.TicketName = v
		return nil
	},
	"threads": func(p *entities.Panel, v string) (err error) {
		p.Threads, err = parseBool(v)
		return
	},
	"log_channel": func(p *entities.Panel, v string) (err error) {
		p.LogChannelID, err = parseOptionalID(v)
		return
	},
	"max_claims": func(p *entities.Panel, v string) (err error) {
		p.MaxClaims, err = parseRange(v, 0, 25)
		return
	},
	"disabled": func(p *entities.Panel, v string) (err error) {
		p.Disabled, err = parseBool(v)
		return
	},
	"require_close_reason": func(p *entities.Panel, v string) (err error) {
		p.RequireCloseReason, err = parseBool(v)
		return
	},
	"cooldown": func(p *entities.Panel, v string) (err error) {
		p.Cooldown, err = parseDuration(v)
		return
	},
	"rate_limit_per_hour": func(p *entities.Panel, v string) (err error) {
		p.RateLimitPerHour, err = parseRange(v, 0, 1000)
		return
	},
	"max_open": func(p *entities.Panel, v string) (err error) {
		p.MaxOpen, err = parseRange(v, 0, 1000)
		return
	},
	"open_message": func(p *entities.Panel, v string) error {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "none") {
			p.OpenMessages = nil
			return nil
		}
		p.OpenMessages = append(p.OpenMessages, v)
		return nil
	},
	"welcome_section": func(p *entities.Panel, v string) error {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "none") {
			p.WelcomeSections = nil
			return nil
		}
		title, body, ok := strings.Cut(v, "|")
		if !ok || strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" {
			return invalid("Welcome sections are written as `title | body`.")
		}
		p.WelcomeSections = append(p.WelcomeSections, entities.WelcomeSection{Title: strings.TrimSpace(title), Body: strings.TrimSpace(body)})
		return nil
	},
	"schedule": func(p *entities.Panel, v string) (err error) {
		p.Schedule, err = ParseSchedule(v)
		return
	},
}

// PanelSettingKeys lists the keys accepted by SetPanelSetting.
func PanelSettingKeys() []string {
	keys := make([]string, 0, len(panelSettings))
	for k := range panelSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetPanelSetting parses and stores one panel setting, then rebuilds the controls.
func (m *Manager) SetPanelSetting(ctx context.Context, guildID string, actor *Member, panel, key, value string) error {
	set, ok := panelSettings[key]
	if !ok {
		return invalid("Unknown panel setting %q.", key)
	}

	err := m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		p, ok := g.Panels[panel]
		if !ok {
			return notFound("Panel %q does not exist.", panel)
		}
		if err := set(p, value); err != nil {
			return err
		}
		if err := ValidatePanel(p); err != nil {
			return err
		}
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Panel: panel, Detail: fmt.Sprintf("%s = %s", key, value)})
		return nil
	})
	if err != nil {
		return err
	}

	_, err = m.RebuildControls(ctx, guildID)
	return err
}

// AddQuestion appends a questionnaire field to a panel.
func (m *Manager) AddQuestion(ctx context.Context, guildID string, actor *Member, panel string, q entities.Question) error {
	if q.Style == "" {
		q.Style = entities.QuestionShort
	}
	if err := validateQuestion(&q); err != nil {
		return err
	}
	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		p, ok := g.Panels[panel]
		if !ok {
			return notFound("Panel %q does not exist.", panel)
		}
		if len(p.Questions) >= maxQuestions {
			return invalid("A panel can have at most %d questions.", maxQuestions)
		}
		p.Questions = append(p.Questions, q)
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Panel: panel, Detail: "Added question " + strconv.Quote(q.Label)})
		return nil
	})
}

// RemoveQuestion removes a questionnaire field by its 1-based position.
func (m *Manager) RemoveQuestion(ctx context.Context, guildID string, actor *Member, panel string, position int) error {
	return m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}
		p, ok := g.Panels[panel]
		if !ok {
			return notFound("Panel %q does not exist.", panel)
		}
		if position < 1 || position > len(p.Questions) {
			return invalid("Question %d does not exist.", position)
		}
		label := p.Questions[position-1].Label
		p.Questions = append(p.Questions[:position-1], p.Questions[position:]...)
		tx.record(g, entities.AuditLogEntry{Action: entities.AuditConfigChange, Actor: actor.ID, Panel: panel, Detail: "Removed question " + strconv.Quote(label)})
		return nil
	})
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseSchedule parses "<timezone> <days> <HH:MM-HH:MM>", e.g. "Europe/London mon-fri 09:00-17:00".
// Days are "daily", a range like "mon-fri" or a list like "mon,wed,fri". "off" clears the
// schedule.
func ParseSchedule(s string) (*entities.Schedule, error) {
	fields := strings.Fields(s)
	if len(fields) == 1 && (strings.EqualFold(fields[0], "off") || strings.EqualFold(fields[0], "none")) {
		return nil, nil
	}
	if len(fields) != 3 {
		return nil, invalid("Schedules are written as `timezone days HH:MM-HH:MM`, e.g. `Europe/London mon-fri 09:00-17:00`.")
	}

	days, err := parseDays(strings.ToLower(fields[1]))
	if err != nil {
		return nil, err
	}
	start, end, ok := strings.Cut(fields[2], "-")
	if !ok {
		return nil, invalid("Opening hours are written as HH:MM-HH:MM.")
	}

	sched := &entities.Schedule{Timezone: fields[0], Days: days, Start: start, End: end}
	if err := ValidateSchedule(sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func parseDays(s string) ([]time.Weekday, error) {
	if s == "daily" || s == "all" {
		return nil, nil
	}
	if from, to, ok := strings.Cut(s, "-"); ok {
		a, okA := weekdays[from]
		b, okB := weekdays[to]
		if !okA || !okB {
			return nil, invalid("Unknown day range %q.", s)
		}
		var out []time.Weekday
		for d := a; ; d = (d + 1) % 7 {
			out = append(out, d)
			if d == b {
				break
			}
		}
		return out, nil
	}

	var out []time.Weekday
	for _, f := range strings.Split(s, ",") {
		d, ok := weekdays[f]
		if !ok {
			return nil, invalid("Unknown day %q.", f)
		}
		out = append(out, d)
	}
	return out, nil
}

// Layout arranges the open controls of the panels sharing one message: lowest priority first,
// pinned rows honoured while they have room, at most five per row and five rows. Panels that do
// not fit are returned in dropped.
func Layout(panels []*entities.Panel) (rows [][]Control, dropped []string) {
	sorted := append([]*entities.Panel{}, panels...)
	sortPanels(sorted)

	grid := make([][]Control, maxRows)
	for _, p := range sorted {
		c := Control{
			CustomID: CustomID(ControlOpen, p.Name),
			Label:    p.ButtonText,
			Style:    p.ButtonStyle,
			Emoji:    p.ButtonEmoji,
		}

		row := -1
		if p.Row > 0 && len(grid[p.Row-1]) < maxControlsPerRow {
			row = p.Row - 1
		} else {
			for i := range grid {
				if len(grid[i]) < maxControlsPerRow {
					row = i
					break
				}
			}
		}
		if row < 0 {
			dropped = append(dropped, p.Name)
			continue
		}
		grid[row] = append(grid[row], c)
	}

	for _, r := range grid {
		if len(r) > 0 {
			rows = append(rows, r)
		}
	}
	return rows, dropped
}

type messageKey struct {
	channelID string
	messageID string
}

// RebuildControls attaches the open controls of every placed panel to its message. Messages that
// no longer exist are skipped with a warning. It returns how many messages were updated.
func (m *Manager) RebuildControls(ctx context.Context, guildID string) (int, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("error getting guild: %w", err)
	}
	l := m.l.With(slog.String(logging.KeyGuild, guildID))

	groups := make(map[messageKey][]*entities.Panel)
	var keys []messageKey
	for _, p := range g.Panels {
		if !p.Placed() {
			continue
		}
		k := messageKey{channelID: p.ChannelID, messageID: p.MessageID}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channelID != keys[j].channelID {
			return keys[i].channelID < keys[j].channelID
		}
		return keys[i].messageID < keys[j].messageID
	})

	attached := 0
	for _, k := range keys {
		if err := m.limiter.Wait(ctx); err != nil {
			return attached, err
		}

		exists, err := m.adapter.MessageExists(ctx, k.channelID, k.messageID)
		if err != nil {
			l.Warn("Error checking panel message", slog.String(logging.KeyChannel, k.channelID), slog.String(logging.KeyError, err.Error()))
			continue
		} else if !exists {
			l.Warn("Panel message no longer exists, skipping", slog.String(logging.KeyChannel, k.channelID), slog.String("message", k.messageID))
			continue
		}

		rows, dropped := Layout(groups[k])
		if len(dropped) > 0 {
			l.Warn("Too many panels on one message, some were not attached", slog.Any("panels", dropped))
		}
		if err := m.adapter.AttachControls(ctx, k.channelID, k.messageID, rows); err != nil {
			l.Warn("Error attaching panel controls", slog.String(logging.KeyChannel, k.channelID), slog.String(logging.KeyError, err.Error()))
			continue
		}
		attached++
	}
	return attached, nil
}

// RebuildAll rebuilds the controls of every stored guild, typically on start.
func (m *Manager) RebuildAll(ctx context.Context) error {
	ids, err := m.guilds.GuildIDs(ctx)
	if err != nil {
		return fmt.Errorf("error listing guilds: %w", err)
	}
	for _, id := range ids {
		if _, err := m.RebuildControls(ctx, id); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.l.Error("Error rebuilding panel controls", slog.String(logging.KeyGuild, id), slog.String(logging.KeyError, err.Error()))
		}
	}
	return nil
}
