package tickets

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/jonboulle/clockwork"
)

// CancelKeyword abandons a running wizard.
const CancelKeyword = "cancel"

// WizardKind is what a wizard builds.
type WizardKind string

const (
	WizardPanel      WizardKind = "panel"
	WizardQuickReply WizardKind = "quick_reply"
)

// Wizard is a short-lived text conversation that builds a Panel or QuickReply. It never touches
// guild state; the finished record is handed back to the caller.
type Wizard struct {
	Kind      WizardKind
	GuildID   string
	ChannelID string
	UserID    string

	step      int
	expires   time.Time
	confirmed bool

	panel *entities.Panel
	reply *entities.QuickReply
}

// WizardReply is what to tell the user after a wizard step.
type WizardReply struct {
	Prompt string

	// Done is set with Panel or QuickReply once the user confirmed.
	Done       bool
	Panel      *entities.Panel
	QuickReply *entities.QuickReply

	// Cancelled is set when the user cancelled, declined or the wizard timed out.
	Cancelled bool
}

type wizardStep struct {
	prompt func(w *Wizard) string
	apply  func(w *Wizard, text string) error

	// skip reports whether the step does not apply.
	skip func(w *Wizard) bool
}

type wizardKey struct {
	guildID   string
	channelID string
	userID    string
}

// Wizards tracks running wizards, one per user and channel.
type Wizards struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	ttl      time.Duration
	sessions map[wizardKey]*Wizard
}

// Start begins a wizard, replacing any the user had running in the channel, and returns the
// first prompt.
func (ws *Wizards) Start(kind WizardKind, guildID, channelID, userID string) (*WizardReply, error) {
	w := &Wizard{Kind: kind, GuildID: guildID, ChannelID: channelID, UserID: userID}
	switch kind {
	case WizardPanel:
		w.panel = new(entities.Panel)
	case WizardQuickReply:
		w.reply = new(entities.QuickReply)
	default:
		return nil, invalid("Unknown wizard %q.", kind)
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	w.expires = ws.clock.Now().Add(ws.ttl)
	ws.sessions[wizardKey{guildID, channelID, userID}] = w

	return &WizardReply{Prompt: w.steps()[0].prompt(w) + fmt.Sprintf("\nType `%s` at any time to stop.", CancelKeyword)}, nil
}

// Active reports whether the user has a wizard running in the channel.
func (ws *Wizards) Active(guildID, channelID, userID string) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	_, ok := ws.sessions[wizardKey{guildID, channelID, userID}]
	return ok
}

// Handle feeds a message to the user's wizard. ok is false when the user has no wizard running in
// the channel. Invalid answers repeat the step with the reason.
func (ws *Wizards) Handle(guildID, channelID, userID, text string) (reply *WizardReply, ok bool) {
	key := wizardKey{guildID, channelID, userID}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.sessions[key]
	if !ok {
		return nil, false
	}

	now := ws.clock.Now()
	if !now.Before(w.expires) {
		delete(ws.sessions, key)
		return &WizardReply{Prompt: messages.ErrFlowExpired, Cancelled: true}, true
	}

	text = strings.TrimSpace(text)
	if strings.EqualFold(text, CancelKeyword) {
		delete(ws.sessions, key)
		return &WizardReply{Prompt: "Setup cancelled.", Cancelled: true}, true
	}

	steps := w.steps()
	if err := steps[w.step].apply(w, text); err != nil {
		msg, _ := UserMessage(err)
		if msg == "" {
			msg = err.Error()
		}
		return &WizardReply{Prompt: msg + "\n" + steps[w.step].prompt(w)}, true
	}
	w.expires = now.Add(ws.ttl)

	if w.step == len(steps)-1 {
		delete(ws.sessions, key)
		return w.finish(), true
	}

	w.step++
	for w.step < len(steps)-1 && steps[w.step].skip != nil && steps[w.step].skip(w) {
		w.step++
	}
	return &WizardReply{Prompt: steps[w.step].prompt(w)}, true
}

func (w *Wizard) finish() *WizardReply {
	if !w.confirmed {
		return &WizardReply{Prompt: "Setup cancelled, nothing was saved.", Cancelled: true}
	}
	if w.panel != nil {
		return &WizardReply{Prompt: fmt.Sprintf("Panel `%s` is ready.", w.panel.Name), Done: true, Panel: w.panel}
	}
	return &WizardReply{Prompt: fmt.Sprintf("Quick reply `%s` is ready.", w.reply.Name), Done: true, QuickReply: w.reply}
}

func (w *Wizard) steps() []wizardStep {
	if w.Kind == WizardPanel {
		return panelSteps
	}
	return quickReplySteps
}

func fixed(s string) func(*Wizard) string {
	return func(*Wizard) string { return s }
}

func isSkip(text string) bool {
	switch strings.ToLower(text) {
	case "skip", "none", "default", "-":
		return true
	}
	return false
}

var confirmStep = wizardStep{
	prompt: func(w *Wizard) string {
		return w.summary() + "\nSave this? (yes/no)"
	},
	apply: func(w *Wizard, text string) error {
		ok, err := parseBool(text)
		if err != nil {
			return invalid("Please answer yes or no.")
		}
		w.confirmed = ok
		return nil
	},
}

var panelSteps = []wizardStep{
	{
		prompt: fixed("What should the panel be called? (lower case, e.g. `support`)"),
		apply: func(w *Wizard, text string) error {
			name := strings.ToLower(text)
			if err := ValidateName(name); err != nil {
				return err
			}
			w.panel.Name = name
			return nil
		},
	},
	{
		prompt: fixed("Which channel should the panel message be posted in? Mention it or paste its ID."),
		apply: func(w *Wizard, text string) (err error) {
			w.panel.ChannelID, err = ParseID(text)
			return
		},
	},
	{
		prompt: fixed("Which category should ticket channels be created in? Paste its ID, or type `threads` to use private threads in the panel channel."),
		apply: func(w *Wizard, text string) error {
			if strings.EqualFold(text, "threads") {
				w.panel.Threads = true
				return nil
			}
			id, err := ParseID(text)
			if err != nil {
				return err
			}
			w.panel.CategoryID = id
			return nil
		},
	},
	{
		prompt: fixed("What should the button say? Type `skip` for \"Open Ticket\"."),
		apply: func(w *Wizard, text string) error {
			if isSkip(text) {
				return nil
			}
			if text == "" || len([]rune(text)) > maxLabelLength {
				return invalid("Button text must be between 1 and %d characters.", maxLabelLength)
			}
			w.panel.ButtonText = text
			return nil
		},
	},
	{
		prompt: fixed("What colour should the button be? (primary, secondary, success, danger)"),
		apply: func(w *Wizard, text string) error {
			if isSkip(text) {
				return nil
			}
			s, ok := entities.ParseButtonStyle(text)
			if !ok {
				return invalid("Unknown button colour %q.", text)
			}
			w.panel.ButtonStyle = s
			return nil
		},
	},
	confirmStep,
}

var quickReplySteps = []wizardStep{
	{
		prompt: fixed("What should the quick reply be called? (lower case, e.g. `resolved`)"),
		apply: func(w *Wizard, text string) error {
			name := strings.ToLower(text)
			if err := ValidateName(name); err != nil {
				return err
			}
			w.reply.Name = name
			return nil
		},
	},
	{
		prompt: fixed("What title should the reply have? Type `none` for a plain message."),
		apply: func(w *Wizard, text string) error {
			if !isSkip(text) {
				w.reply.Title = text
			}
			return nil
		},
	},
	{
		prompt: fixed("What should the reply say? Placeholders: {user} {username} {panel} {num} {server} {claimer}"),
		apply: func(w *Wizard, text string) error {
			if text == "" || len(text) > maxQuickReplyLength {
				return invalid("The reply must be between 1 and %d characters.", maxQuickReplyLength)
			}
			w.reply.Content = text
			return nil
		},
	},
	{
		prompt: fixed("Should sending the reply close the ticket? (yes/no)"),
		apply: func(w *Wizard, text string) (err error) {
			w.reply.CloseAfter, err = parseBool(text)
			return
		},
	},
	{
		prompt: fixed("How long should the close wait? (e.g. `10m`, `1h`, or `0` to close immediately)"),
		apply: func(w *Wizard, text string) (err error) {
			if text == "0" {
				w.reply.Delay = 0
				return nil
			}
			w.reply.Delay, err = parseDuration(text)
			return
		},
		skip: func(w *Wizard) bool { return !w.reply.CloseAfter },
	},
	confirmStep,
}

func (w *Wizard) summary() string {
	var b strings.Builder
	if w.panel != nil {
		p := w.panel
		fmt.Fprintf(&b, "**Panel** `%s`\nChannel: <#%s>\n", p.Name, p.ChannelID)
		if p.Threads {
			b.WriteString("Tickets: private threads\n")
		} else {
			fmt.Fprintf(&b, "Category: `%s`\n", p.CategoryID)
		}
		label, style := p.ButtonText, p.ButtonStyle
		if label == "" {
			label = "Open Ticket"
		}
		if style == "" {
			style = entities.ButtonPrimary
		}
		fmt.Fprintf(&b, "Button: %s (%s)", label, style)
		return b.String()
	}

	q := w.reply
	fmt.Fprintf(&b, "**Quick reply** `%s`\n", q.Name)
	if q.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", q.Title)
	}
	fmt.Fprintf(&b, "Content: %s\n", q.Content)
	if q.CloseAfter {
		fmt.Fprintf(&b, "Closes the ticket after %s", q.Delay)
	} else {
		b.WriteString("Does not close the ticket")
	}
	return b.String()
}
