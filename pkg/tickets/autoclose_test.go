package tickets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/stretchr/testify/require"
)

func at(d time.Duration) *time.Time {
	return timePtr(base.Add(d))
}

func TestEvaluateAutoClose(t *testing.T) {
	smart := entities.AutoCloseConfig{UserHours: 48, WarningHours: 12, StaffHours: 24}

	tests := []struct {
		name      string
		smart     entities.AutoCloseConfig
		inactive  int
		ticket    entities.Ticket
		now       time.Duration
		action    AutoCloseAction
		policy    string
		remaining time.Duration
	}{
		{
			name:   "nobody spoke, nothing configured",
			ticket: entities.Ticket{CreatedAt: base},
			now:    100 * time.Hour,
		},
		{
			name:   "staff waiting on the owner, before the warning",
			smart:  smart,
			ticket: entities.Ticket{CreatedAt: base, LastUserMessage: at(0), LastStaffMessage: at(time.Hour)},
			now:    36 * time.Hour,
		},
		{
			name:      "staff waiting on the owner, warning due",
			smart:     smart,
			ticket:    entities.Ticket{CreatedAt: base, LastStaffMessage: at(0)},
			now:       36 * time.Hour,
			action:    AutoCloseWarn,
			policy:    PolicySmartUser,
			remaining: 12 * time.Hour,
		},
		{
			name:   "staff waiting on the owner, already warned",
			smart:  smart,
			ticket: entities.Ticket{CreatedAt: base, LastStaffMessage: at(0), AutoCloseWarnings: 1},
			now:    40 * time.Hour,
		},
		{
			name:   "staff waiting on the owner, close due",
			smart:  smart,
			ticket: entities.Ticket{CreatedAt: base, LastStaffMessage: at(0), AutoCloseWarnings: 1},
			now:    48 * time.Hour,
			action: AutoCloseClose,
			policy: PolicySmartUser,
		},
		{
			name:   "owner waiting on staff, close due",
			smart:  smart,
			ticket: entities.Ticket{CreatedAt: base, LastUserMessage: at(0)},
			now:    24 * time.Hour,
			action: AutoCloseClose,
			policy: PolicySmartStaff,
		},
		{
			name:   "owner waiting on staff, not yet",
			smart:  smart,
			ticket: entities.Ticket{CreatedAt: base, LastUserMessage: at(0), LastStaffMessage: at(-time.Hour)},
			now:    23 * time.Hour,
		},
		{
			name:   "staff threshold off",
			smart:  entities.AutoCloseConfig{UserHours: 48},
			ticket: entities.Ticket{CreatedAt: base, LastUserMessage: at(0)},
			now:    1000 * time.Hour,
		},
		{
			name:      "legacy warning",
			inactive:  2,
			ticket:    entities.Ticket{CreatedAt: base},
			now:       100 * time.Minute,
			action:    AutoCloseWarn,
			policy:    PolicyLegacy,
			remaining: 20 * time.Minute,
		},
		{
			name:     "legacy too early",
			inactive: 2,
			ticket:   entities.Ticket{CreatedAt: base},
			now:      99 * time.Minute,
		},
		{
			name:      "legacy first seen late still warns first",
			inactive:  2,
			ticket:    entities.Ticket{CreatedAt: base},
			now:       10 * time.Hour,
			action:    AutoCloseWarn,
			policy:    PolicyLegacy,
			remaining: 20 * time.Minute,
		},
		{
			name:     "legacy close",
			inactive: 2,
			ticket:   entities.Ticket{CreatedAt: base, LegacyWarnedAt: at(100 * time.Minute)},
			now:      2 * time.Hour,
			action:   AutoCloseClose,
			policy:   PolicyLegacy,
		},
		{
			name:     "legacy close waits after a late warning",
			inactive: 2,
			ticket:   entities.Ticket{CreatedAt: base, LegacyWarnedAt: at(10 * time.Hour)},
			now:      10*time.Hour + 19*time.Minute,
		},
		{
			name:     "legacy ignores tickets the owner wrote in",
			inactive: 2,
			ticket:   entities.Ticket{CreatedAt: base, LastUserMessage: at(time.Minute)},
			now:      10 * time.Hour,
		},
		{
			name:     "smart wins over legacy",
			smart:    smart,
			inactive: 1,
			ticket:   entities.Ticket{CreatedAt: base, LastStaffMessage: at(0)},
			now:      48 * time.Hour,
			action:   AutoCloseClose,
			policy:   PolicySmartUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := entities.NewGuild(testGuild)
			g.AutoClose = tt.smart
			g.Inactive = tt.inactive

			d := EvaluateAutoClose(base.Add(tt.now), g, &tt.ticket)
			require.Equal(t, tt.action, d.Action)
			require.Equal(t, tt.policy, d.Policy)
			if tt.action == AutoCloseWarn {
				require.Equal(t, tt.remaining, d.Remaining)
			}
			if tt.action == AutoCloseClose {
				require.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestAutoCloseSweep_StaffSilent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.AutoClose.StaffHours = 24
	})
	tk := h.open(t, user)
	require.NoError(t, h.m.OnMessage(ctx, &MessageEvent{GuildID: testGuild, ChannelID: tk.ContainerID, Author: user}))

	h.clock.Advance(23 * time.Hour)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	_, ok := h.ticket(t, tk.ContainerID)
	require.True(t, ok)

	h.clock.Advance(time.Hour)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	_, ok = h.ticket(t, tk.ContainerID)
	require.False(t, ok)

	archived, err := h.archive.ClosedTickets(ctx, testGuild, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	require.Equal(t, "bot", archived[0].ClosedBy)
	require.Equal(t, "Automatically closed after 24 hours without a staff response.", archived[0].Reason)
}

func TestAutoCloseSweep_OwnerSilent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.AutoClose.UserHours = 48
		g.AutoClose.WarningHours = 12
	})
	tk := h.open(t, user)
	require.NoError(t, h.m.OnMessage(ctx, &MessageEvent{GuildID: testGuild, ChannelID: tk.ContainerID, Author: staff}))

	warning := fmt.Sprintf(messages.AutoCloseWarning, user.ID, "12h")

	h.clock.Advance(36 * time.Hour)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	require.Equal(t, 1, count(h.adapter.contents(tk.ContainerID), warning))

	h.clock.Advance(4 * time.Hour)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	require.Equal(t, 1, count(h.adapter.contents(tk.ContainerID), warning))

	stored, ok := h.ticket(t, tk.ContainerID)
	require.True(t, ok)
	require.Equal(t, 1, stored.AutoCloseWarnings)

	h.clock.Advance(8 * time.Hour)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	_, ok = h.ticket(t, tk.ContainerID)
	require.False(t, ok)
}

func TestAutoCloseSweep_OwnerReplyResetsWarning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.AutoClose.UserHours = 48
		g.AutoClose.WarningHours = 12
	})
	tk := h.open(t, user)
	require.NoError(t, h.m.OnMessage(ctx, &MessageEvent{GuildID: testGuild, ChannelID: tk.ContainerID, Author: staff}))

	h.clock.Advance(36 * time.Hour)
	require.NoError(t, h.m.AutoCloseSweep(ctx))

	h.clock.Advance(time.Hour)
	require.NoError(t, h.m.OnMessage(ctx, &MessageEvent{GuildID: testGuild, ChannelID: tk.ContainerID, Author: user}))

	h.clock.Advance(20 * time.Hour)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	stored, ok := h.ticket(t, tk.ContainerID)
	require.True(t, ok)
	require.Zero(t, stored.AutoCloseWarnings)
}

// replyingAdapter runs reply the first time a container is deleted, while the sweep that deleted
// it is still in progress.
type replyingAdapter struct {
	*fakeAdapter
	once  sync.Once
	reply func(deleted string)
}

func (r *replyingAdapter) DeleteContainer(ctx context.Context, containerID string) error {
	r.once.Do(func() { r.reply(containerID) })
	return r.fakeAdapter.DeleteContainer(ctx, containerID)
}

func TestAutoCloseSweep_ReplyDuringSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.AutoClose.UserHours = 24
	})
	owners := make(map[string]*Member)
	for _, member := range []*Member{user, user2} {
		tk := h.open(t, member)
		owners[tk.ContainerID] = member
		require.NoError(t, h.m.OnMessage(ctx, &MessageEvent{GuildID: testGuild, ChannelID: tk.ContainerID, Author: staff}))
	}

	adapter := &replyingAdapter{fakeAdapter: h.adapter}
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)), h.guilds, h.archive, adapter,
		WithClock(h.clock),
		WithRateLimit(math.MaxFloat64),
	)
	m.SetBotID("bot")

	// Both tickets are due when the pass reads the guild. The owner of whichever ticket is
	// handled second answers while the first is being torn down.
	var replied string
	adapter.reply = func(deleted string) {
		for id, owner := range owners {
			if id == deleted {
				continue
			}
			replied = id
			require.NoError(t, m.OnMessage(ctx, &MessageEvent{GuildID: testGuild, ChannelID: id, Author: owner}))
		}
	}

	h.clock.Advance(25 * time.Hour)
	require.NoError(t, m.AutoCloseSweep(ctx))
	require.NotEmpty(t, replied)

	for id := range owners {
		_, ok := h.ticket(t, id)
		require.Equal(t, id == replied, ok, id)
	}
}

func TestClose_PolicyNoLongerDue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.AutoClose.UserHours = 24
	})
	tk := h.open(t, user)
	require.NoError(t, h.m.OnMessage(ctx, &MessageEvent{GuildID: testGuild, ChannelID: tk.ContainerID, Author: staff}))

	h.clock.Advance(time.Hour)
	require.NoError(t, h.m.Close(ctx, &CloseRequest{GuildID: testGuild, ContainerID: tk.ContainerID, Reason: "idle", Policy: PolicySmartUser}))
	_, ok := h.ticket(t, tk.ContainerID)
	require.True(t, ok)
	require.NotContains(t, h.auditActions(t), entities.AuditClose)

	h.clock.Advance(23 * time.Hour)
	require.NoError(t, h.m.Close(ctx, &CloseRequest{GuildID: testGuild, ContainerID: tk.ContainerID, Reason: "idle", Policy: PolicySmartUser}))
	_, ok = h.ticket(t, tk.ContainerID)
	require.False(t, ok)
}

func TestAutoCloseSweep_Legacy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.Inactive = 1
	})
	tk := h.open(t, user)
	warning := fmt.Sprintf(messages.AutoCloseWarning, user.ID, "20m")

	h.clock.Advance(39 * time.Minute)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	require.Zero(t, count(h.adapter.contents(tk.ContainerID), warning))

	h.clock.Advance(time.Minute)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	require.Equal(t, 1, count(h.adapter.contents(tk.ContainerID), warning))

	stored, _ := h.ticket(t, tk.ContainerID)
	require.True(t, stored.LegacyWarnedAt.Equal(base.Add(40*time.Minute)))

	h.clock.Advance(19 * time.Minute)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	_, ok := h.ticket(t, tk.ContainerID)
	require.True(t, ok)

	h.clock.Advance(time.Minute)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	_, ok = h.ticket(t, tk.ContainerID)
	require.False(t, ok)
	require.Equal(t, 1, count(h.adapter.contents(tk.ContainerID), warning))
}

func TestAutoCloseSweep_Retention(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.AuditRetention = custom.Duration(24 * time.Hour)
		g.ReopenWindow = custom.Duration(time.Hour)
	})
	tk := h.open(t, user)
	require.NoError(t, h.m.Close(ctx, &CloseRequest{GuildID: testGuild, ContainerID: tk.ContainerID, Actor: staff}))
	require.Len(t, h.guild(t).Closed, 1)

	h.clock.Advance(2 * time.Hour)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	g := h.guild(t)
	require.Empty(t, g.Closed)
	require.Len(t, g.AuditLog, 2)

	h.clock.Advance(23 * time.Hour)
	require.NoError(t, h.m.AutoCloseSweep(ctx))
	require.Empty(t, h.guild(t).AuditLog)
}
