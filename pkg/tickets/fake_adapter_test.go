package tickets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// fakeAdapter records what the engine asks of the chat platform.
type fakeAdapter struct {
	mu sync.Mutex

	nextID int

	containers map[string]*ContainerSpec
	deleted    []string
	archived   map[string]bool
	renamed    map[string]string
	access     map[string]map[string]bool

	sent     map[string][]*Message
	directs  map[string][]*Message
	pinned   []string
	attached map[string][][]Control
	messages map[string]bool

	transcripts []string
	members     map[string]*Member
	channels    map[string]*Access

	createErr   error
	rejectNames map[string]bool
	sendErr     map[string]error

	// failContainerSends fails every message sent into a ticket container.
	failContainerSends bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		containers:  make(map[string]*ContainerSpec),
		archived:    make(map[string]bool),
		renamed:     make(map[string]string),
		access:      make(map[string]map[string]bool),
		sent:        make(map[string][]*Message),
		directs:     make(map[string][]*Message),
		attached:    make(map[string][][]Control),
		messages:    make(map[string]bool),
		members:     make(map[string]*Member),
		channels:    make(map[string]*Access),
		rejectNames: make(map[string]bool),
		sendErr:     make(map[string]error),
	}
}

func (f *fakeAdapter) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func msgKey(channelID, messageID string) string {
	return channelID + "/" + messageID
}

func (f *fakeAdapter) CreateContainer(_ context.Context, spec *ContainerSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.rejectNames[spec.Name] {
		return "", ErrNameRejected
	}
	id := f.id("container")
	c := *spec
	f.containers[id] = &c
	return id, nil
}

func (f *fakeAdapter) DeleteContainer(_ context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[containerID]; !ok {
		return ErrContainerGone
	}
	delete(f.containers, containerID)
	f.deleted = append(f.deleted, containerID)
	return nil
}

func (f *fakeAdapter) SetArchived(_ context.Context, containerID string, archived bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived[containerID] = archived
	return nil
}

func (f *fakeAdapter) ContainerExists(_ context.Context, containerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.containers[containerID]
	return ok, nil
}

func (f *fakeAdapter) RenameContainer(_ context.Context, containerID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectNames[name] {
		return ErrNameRejected
	}
	f.renamed[containerID] = name
	return nil
}

func (f *fakeAdapter) SetMemberAccess(_ context.Context, containerID, userID string, allow bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.access[containerID] == nil {
		f.access[containerID] = make(map[string]bool)
	}
	f.access[containerID][userID] = allow
	return nil
}

func (f *fakeAdapter) SendMessage(_ context.Context, channelID string, msg *Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[channelID]; err != nil {
		return "", err
	}
	if _, ok := f.containers[channelID]; ok && f.failContainerSends {
		return "", errors.New("missing access")
	}
	id := f.id("message")
	f.sent[channelID] = append(f.sent[channelID], msg)
	f.messages[msgKey(channelID, id)] = true
	return id, nil
}

func (f *fakeAdapter) EditMessage(context.Context, string, string, *Message) error {
	return nil
}

func (f *fakeAdapter) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, msgKey(channelID, messageID))
	return nil
}

func (f *fakeAdapter) PinMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = append(f.pinned, messageID)
	return nil
}

func (f *fakeAdapter) SendDirect(_ context.Context, userID string, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directs[userID] = append(f.directs[userID], msg)
	return nil
}

func (f *fakeAdapter) AttachControls(_ context.Context, channelID, messageID string, rows [][]Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached[msgKey(channelID, messageID)] = rows
	return nil
}

func (f *fakeAdapter) MessageExists(_ context.Context, channelID, messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[msgKey(channelID, messageID)], nil
}

func (f *fakeAdapter) Member(_ context.Context, _, userID string) (*Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return nil, fmt.Errorf("unknown member %s", userID)
	}
	return m, nil
}

func (f *fakeAdapter) SaveTranscript(_ context.Context, _, containerID string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, containerID)
	return nil
}

func (f *fakeAdapter) CheckAccess(_ context.Context, _, channelID string) (*Access, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.channels[channelID]; ok {
		return a, nil
	}
	return &Access{}, nil
}

// contents returns the plain text of every message sent to a channel.
func (f *fakeAdapter) contents(channelID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent[channelID] {
		out = append(out, m.Content)
	}
	return out
}

func (f *fakeAdapter) containerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.containers)
}

var base = time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

const (
	testGuild = "guild"
	testPanel = "support"
)

var (
	admin   = &Member{ID: "admin", Name: "Admin", Admin: true}
	staff   = &Member{ID: "staff", Name: "Staff", Roles: []string{"support-role"}}
	staff2  = &Member{ID: "staff2", Name: "Staff Two", Roles: []string{"support-role"}}
	user    = &Member{ID: "user", Name: "User"}
	user2   = &Member{ID: "user2", Name: "User Two"}
	visitor = &Member{ID: "visitor", Name: "Visitor"}
)

type harness struct {
	m       *Manager
	guilds  dataaccess.GuildDal
	archive dataaccess.TicketDal
	adapter *fakeAdapter
	clock   *clockwork.FakeClock
}

// newHarness builds an engine over the in-memory store with one placed panel called "support".
func newHarness(t *testing.T) *harness {
	t.Helper()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		guilds:  dataaccess.NewMemoryGuildDal(l),
		archive: dataaccess.NewMemoryTicketDal(),
		adapter: newFakeAdapter(),
		clock:   clockwork.NewFakeClockAt(base),
	}
	h.m = NewManager(l, h.guilds, h.archive, h.adapter,
		WithClock(h.clock),
		WithRateLimit(math.MaxFloat64),
	)
	h.m.SetBotID("bot")

	h.adapter.messages[msgKey("panel-channel", "panel-message")] = true
	h.update(t, func(g *entities.Guild) {
		g.SupportRoles = []string{"support-role"}
		g.Panels[testPanel] = &entities.Panel{
			Name:       testPanel,
			CategoryID: "category",
			ChannelID:  "panel-channel",
			MessageID:  "panel-message",
		}
	})
	return h
}

// update edits the stored guild directly.
func (h *harness) update(t *testing.T, fn func(g *entities.Guild)) {
	t.Helper()
	require.NoError(t, h.guilds.Atomic(context.Background(), testGuild, func(g *entities.Guild) error {
		fn(g)
		g.ApplyDefaults()
		return nil
	}))
}

func (h *harness) guild(t *testing.T) *entities.Guild {
	t.Helper()
	g, err := h.guilds.GetGuildByID(context.Background(), testGuild)
	require.NoError(t, err)
	return g
}

// open creates a ticket for the member on the support panel.
func (h *harness) open(t *testing.T, m *Member) *entities.Ticket {
	t.Helper()
	tk, err := h.m.Create(context.Background(), &OpenRequest{GuildID: testGuild, GuildName: "Guild", Panel: testPanel, Member: m})
	require.NoError(t, err)
	return tk
}

func (h *harness) ticket(t *testing.T, containerID string) (*entities.Ticket, bool) {
	t.Helper()
	return h.guild(t).TicketByContainer(containerID)
}

// closedEventually waits for a ticket to leave the active set. Delayed closes run on their own
// goroutine once the clock passes their deadline.
func (h *harness) closedEventually(t *testing.T, containerID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		g, err := h.guilds.GetGuildByID(context.Background(), testGuild)
		if err != nil {
			return false
		}
		_, ok := g.TicketByContainer(containerID)
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

// archivedEventually waits until n of the owner's tickets have been archived and returns them.
func (h *harness) archivedEventually(t *testing.T, ownerID string, n int) []*entities.ClosedTicket {
	t.Helper()
	var out []*entities.ClosedTicket
	require.Eventually(t, func() bool {
		closed, err := h.archive.ClosedTickets(context.Background(), testGuild, ownerID, 0)
		if err != nil {
			return false
		}
		out = closed
		return len(closed) >= n
	}, 5*time.Second, 10*time.Millisecond)
	return out
}

func (h *harness) auditActions(t *testing.T) []entities.AuditAction {
	t.Helper()
	var out []entities.AuditAction
	for _, e := range h.guild(t).AuditLog {
		out = append(out, e.Action)
	}
	return out
}
