package entities

import (
	"strings"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
)

// ButtonStyle is the colour of a panel's open control.
type ButtonStyle string

const (
	ButtonPrimary   ButtonStyle = "primary"
	ButtonSecondary ButtonStyle = "secondary"
	ButtonSuccess   ButtonStyle = "success"
	ButtonDanger    ButtonStyle = "danger"
)

// ParseButtonStyle parses a control colour. Discord colour names are accepted as aliases.
func ParseButtonStyle(s string) (ButtonStyle, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "blurple", "blue":
		return ButtonPrimary, true
	case "secondary", "grey", "gray":
		return ButtonSecondary, true
	case "success", "green":
		return ButtonSuccess, true
	case "danger", "red":
		return ButtonDanger, true
	}
	return "", false
}

// QuestionStyle is the input style of a questionnaire field.
type QuestionStyle string

const (
	QuestionShort     QuestionStyle = "short"
	QuestionParagraph QuestionStyle = "paragraph"
)

// DefaultTicketName is the container name template used when a panel does not set one.
const DefaultTicketName = "{num}-{username}"

// Panel is one intake configuration.
type Panel struct {
	// Name identifies the panel, unique per guild.
	Name string `json:"name" bson:"name" yaml:"name"`

	// CategoryID is where ticket channels are created.
	CategoryID string `json:"category_id" bson:"category_id" yaml:"category_id"`

	// AltCategoryID is used when CategoryID is full or missing.
	AltCategoryID string `json:"alt_category_id" bson:"alt_category_id" yaml:"alt_category_id"`

	// ChannelID is the channel holding the panel message. Thread tickets are created here.
	ChannelID string `json:"channel_id" bson:"channel_id" yaml:"channel_id"`

	// MessageID is the message the open control is attached to.
	MessageID string `json:"message_id" bson:"message_id" yaml:"message_id"`

	ButtonText  string      `json:"button_text" bson:"button_text" yaml:"button_text"`
	ButtonStyle ButtonStyle `json:"button_style" bson:"button_style" yaml:"button_style"`
	ButtonEmoji string      `json:"button_emoji" bson:"button_emoji" yaml:"button_emoji"`

	// Priority orders controls sharing one message, lowest first.
	Priority int `json:"priority" bson:"priority" yaml:"priority"`

	// Row pins the control to a row (1-5). Zero lets the layout decide.
	Row int `json:"row" bson:"row" yaml:"row"`

	// EmbedColour is used for embeds sent on behalf of the panel.
	EmbedColour custom.Colour `json:"embed_colour" bson:"embed_colour" yaml:"embed_colour"`

	// RequiredRoles restricts who may open a ticket. Empty means anyone.
	RequiredRoles []string `json:"required_roles" bson:"required_roles" yaml:"required_roles"`

	// SupportRoles are panel sub-roles that handle this panel's tickets in addition to the guild
	// support roles.
	SupportRoles []string `json:"support_roles" bson:"support_roles" yaml:"support_roles"`

	// Questions are asked before a ticket is created.
	Questions []Question `json:"questions" bson:"questions" yaml:"questions"`

	// OpenMessages are sent into a new ticket, with placeholders substituted.
	OpenMessages []string `json:"open_messages" bson:"open_messages" yaml:"open_messages"`

	// WelcomeSections are rendered as embed fields in the first ticket message.
	WelcomeSections []WelcomeSection `json:"welcome_sections" bson:"welcome_sections" yaml:"welcome_sections"`

	// TicketName is the container name template.
	TicketName string `json:"ticket_name" bson:"ticket_name" yaml:"ticket_name"`

	// Threads creates lightweight threads in ChannelID instead of channels.
	Threads bool `json:"threads" bson:"threads" yaml:"threads"`

	// LogChannelID receives a log embed with a join control for every new ticket.
	LogChannelID string `json:"log_channel_id" bson:"log_channel_id" yaml:"log_channel_id"`

	// MaxClaims bounds how many staff may join a ticket through the log control.
	MaxClaims int `json:"max_claims" bson:"max_claims" yaml:"max_claims"`

	// Disabled keeps the control visible but refuses to open tickets.
	Disabled bool `json:"disabled" bson:"disabled" yaml:"disabled"`

	// RequireCloseReason makes a reason mandatory when closing.
	RequireCloseReason bool `json:"require_close_reason" bson:"require_close_reason" yaml:"require_close_reason"`

	// Cooldown overrides the guild cooldown when stricter.
	Cooldown custom.Duration `json:"cooldown" bson:"cooldown" yaml:"cooldown"`

	// RateLimitPerHour caps tickets opened on this panel in a trailing hour.
	RateLimitPerHour int `json:"rate_limit_per_hour" bson:"rate_limit_per_hour" yaml:"rate_limit_per_hour"`

	// MaxOpen caps simultaneously open tickets on this panel.
	MaxOpen int `json:"max_open" bson:"max_open" yaml:"max_open"`

	// Schedule restricts opening to a weekly window.
	Schedule *Schedule `json:"schedule,omitempty" bson:"schedule,omitempty" yaml:"schedule,omitempty"`

	// TicketNum is the number the next ticket on this panel will receive.
	TicketNum int `json:"ticket_num" bson:"ticket_num" yaml:"ticket_num"`

	// RecentOpens are the open times of this panel's tickets in the trailing hour.
	RecentOpens []time.Time `json:"recent_opens,omitempty" bson:"recent_opens" yaml:"-"`

	// LastOpened is when each user last opened a ticket on this panel.
	LastOpened map[string]time.Time `json:"last_opened,omitempty" bson:"last_opened" yaml:"-"`
}

// Question is one questionnaire field.
type Question struct {
	Label       string        `json:"label" bson:"label" yaml:"label"`
	Style       QuestionStyle `json:"style" bson:"style" yaml:"style"`
	Required    bool          `json:"required" bson:"required" yaml:"required"`
	MinLength   int           `json:"min_length" bson:"min_length" yaml:"min_length"`
	MaxLength   int           `json:"max_length" bson:"max_length" yaml:"max_length"`
	Default     string        `json:"default" bson:"default" yaml:"default"`
	Placeholder string        `json:"placeholder" bson:"placeholder" yaml:"placeholder"`
}

// WelcomeSection is a titled text block shown in a new ticket.
type WelcomeSection struct {
	Title string `json:"title" bson:"title" yaml:"title"`
	Body  string `json:"body" bson:"body" yaml:"body"`
}

// Schedule is a weekly open-hours window in a timezone. Start and End are "HH:MM"; an End before
// Start spans midnight.
type Schedule struct {
	Timezone      string         `json:"timezone" bson:"timezone" yaml:"timezone"`
	Days          []time.Weekday `json:"days" bson:"days" yaml:"days"`
	Start         string         `json:"start" bson:"start" yaml:"start"`
	End           string         `json:"end" bson:"end" yaml:"end"`
	ClosedMessage string         `json:"closed_message" bson:"closed_message" yaml:"closed_message"`
}

// ApplyDefaults fills in zero values.
func (p *Panel) ApplyDefaults() {
	if p.TicketNum < 1 {
		p.TicketNum = 1
	}
	if p.ButtonText == "" {
		p.ButtonText = "Open Ticket"
	}
	if p.ButtonStyle == "" {
		p.ButtonStyle = ButtonPrimary
	}
	if p.TicketName == "" {
		p.TicketName = DefaultTicketName
	}
	if p.LastOpened == nil {
		p.LastOpened = make(map[string]time.Time)
	}
	for i := range p.Questions {
		if p.Questions[i].Style == "" {
			p.Questions[i].Style = QuestionShort
		}
	}
}

// Placed reports whether the panel's container and control message are fully set. Thread panels
// need no category.
func (p *Panel) Placed() bool {
	return p.ChannelID != "" && p.MessageID != "" && (p.Threads || p.CategoryID != "")
}

// HandledBy reports whether any of the roles handles this panel's tickets.
func (p *Panel) HandledBy(roles []string) bool {
	return hasAny(p.SupportRoles, roles)
}
