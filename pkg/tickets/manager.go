// Package tickets is the support ticket engine: panels, eligibility, the ticket lifecycle and
// the background workers that close idle tickets and escalate unclaimed ones.
package tickets

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	defaultFlowTimeout   = 5 * time.Minute
	defaultWizardTimeout = 10 * time.Minute
	defaultRateLimit     = 5
)

// Manager runs every ticket operation. All guild state is read and written through the guild
// store; nothing mutable is kept between calls except pending delayed closes.
type Manager struct {
	l       *slog.Logger
	guilds  dataaccess.GuildDal
	archive dataaccess.TicketDal
	adapter Adapter
	clock   clockwork.Clock

	// limiter paces adapter calls made by the background workers and control rebuilds.
	limiter *rate.Limiter

	flows   *Flows
	wizards *Wizards
	closes  *pendingCloses

	botID atomic.Value
}

// Option configures a Manager.
type Option func(m *Manager)

// WithClock replaces the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithRateLimit sets how many adapter calls per second the workers may make.
func WithRateLimit(perSecond float64) Option {
	return func(m *Manager) {
		m.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithFlowTimeout sets how long questionnaire and close reason prompts stay valid.
func WithFlowTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.flows.ttl = d
	}
}

// WithWizardTimeout sets how long a setup wizard waits for the next answer.
func WithWizardTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.wizards.ttl = d
	}
}

// NewManager creates a new ticket engine.
func NewManager(l *slog.Logger, guilds dataaccess.GuildDal, archive dataaccess.TicketDal, adapter Adapter, opts ...Option) *Manager {
	m := &Manager{
		l:       l,
		guilds:  guilds,
		archive: archive,
		adapter: adapter,
		clock:   clockwork.NewRealClock(),
		limiter: rate.NewLimiter(defaultRateLimit, 1),
		closes:  newPendingCloses(),
	}
	m.flows = &Flows{ttl: defaultFlowTimeout, flows: make(map[string]*Flow)}
	m.wizards = &Wizards{ttl: defaultWizardTimeout, sessions: make(map[wizardKey]*Wizard)}
	m.botID.Store("")

	for _, opt := range opts {
		opt(m)
	}

	m.flows.clock = m.clock
	m.wizards.clock = m.clock
	return m
}

// SetBotID records the bot's own user ID, used as the closer of automatic closes.
func (m *Manager) SetBotID(id string) {
	m.botID.Store(id)
}

// BotID returns the bot's own user ID.
func (m *Manager) BotID() string {
	return m.botID.Load().(string)
}

// Flows returns the pending interactive flows.
func (m *Manager) Flows() *Flows {
	return m.flows
}

// Wizards returns the setup wizards.
func (m *Manager) Wizards() *Wizards {
	return m.wizards
}

// Guild returns a copy of a guild's document.
func (m *Manager) Guild(ctx context.Context, guildID string) (*entities.Guild, error) {
	return m.guilds.GetGuildByID(ctx, guildID)
}

// txn collects what a mutation needs to do once it has been committed.
type txn struct {
	now time.Time

	audit        []*entities.AuditLogEntry
	auditChannel string
}

// mutate runs fn under the guild lock and saves the result. Audit entries recorded on tx are
// mirrored to the audit channel after the save. Returning errNoChange skips the save and is not
// reported as an error.
func (m *Manager) mutate(ctx context.Context, guildID string, fn func(g *entities.Guild, tx *txn) error) error {
	var tx *txn
	err := m.guilds.Atomic(ctx, guildID, func(g *entities.Guild) error {
		tx = &txn{now: m.clock.Now().UTC()}
		if err := fn(g, tx); err != nil {
			return err
		}
		tx.auditChannel = g.AuditLogChannel
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil
	} else if err != nil {
		return err
	}

	m.mirrorAudit(ctx, guildID, tx)
	return nil
}

// say posts a plain message and logs a failure.
func (m *Manager) say(ctx context.Context, channelID, content string) {
	if channelID == "" {
		return
	}
	if _, err := m.adapter.SendMessage(ctx, channelID, &Message{Content: content}); err != nil {
		m.l.Warn("Error sending message",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// direct sends a direct message and logs a failure. Users often have direct messages closed.
func (m *Manager) direct(ctx context.Context, userID, content string) {
	if err := m.adapter.SendDirect(ctx, userID, &Message{Content: content}); err != nil {
		m.l.Debug("Error sending direct message",
			slog.String(logging.KeyUser, userID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func ticketIn(g *entities.Guild, containerID string) (*entities.Ticket, error) {
	t, ok := g.TicketByContainer(containerID)
	if !ok {
		return nil, notFound("%s", messages.ErrNotATicket)
	}
	return t, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
