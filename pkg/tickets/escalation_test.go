package tickets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/stretchr/testify/require"
)

func TestDueForEscalation(t *testing.T) {
	cfg := entities.EscalationConfig{Enabled: true, Minutes: 30, ChannelID: "alerts"}

	tests := []struct {
		name   string
		cfg    entities.EscalationConfig
		ticket entities.Ticket
		now    time.Duration
		want   bool
	}{
		{name: "disabled", cfg: entities.EscalationConfig{Minutes: 30}, ticket: entities.Ticket{CreatedAt: base, Status: entities.StatusOpen}, now: time.Hour},
		{name: "waiting exactly the threshold", cfg: cfg, ticket: entities.Ticket{CreatedAt: base, Status: entities.StatusOpen}, now: 30 * time.Minute},
		{name: "waiting past the threshold", cfg: cfg, ticket: entities.Ticket{CreatedAt: base, Status: entities.StatusOpen}, now: 31 * time.Minute, want: true},
		{name: "claimed", cfg: cfg, ticket: entities.Ticket{CreatedAt: base, Status: entities.StatusClaimed, ClaimedBy: "staff"}, now: time.Hour},
		{name: "already escalated", cfg: cfg, ticket: entities.Ticket{CreatedAt: base, Status: entities.StatusOpen, Escalated: true}, now: time.Hour},
		{name: "owner wrote recently", cfg: cfg, ticket: entities.Ticket{CreatedAt: base, Status: entities.StatusOpen, LastUserMessage: at(40 * time.Minute)}, now: time.Hour},
		{name: "owner wrote long ago", cfg: cfg, ticket: entities.Ticket{CreatedAt: base, Status: entities.StatusOpen, LastUserMessage: at(10 * time.Minute)}, now: time.Hour, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := entities.NewGuild(testGuild)
			g.Escalation = tt.cfg
			require.Equal(t, tt.want, DueForEscalation(base.Add(tt.now), g, &tt.ticket))
		})
	}
}

func TestEscalationSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.Escalation = entities.EscalationConfig{Enabled: true, Minutes: 30, ChannelID: "alerts", RoleID: "oncall"}
	})
	tk := h.open(t, user)

	h.clock.Advance(30 * time.Minute)
	require.NoError(t, h.m.EscalationSweep(ctx))
	require.Empty(t, h.adapter.sent["alerts"])

	h.clock.Advance(time.Minute)
	require.NoError(t, h.m.EscalationSweep(ctx))
	require.NoError(t, h.m.EscalationSweep(ctx))

	alerts := h.adapter.sent["alerts"]
	require.Len(t, alerts, 1)
	require.Equal(t, "<@&oncall> "+fmt.Sprintf(messages.EscalationAlert, tk.ContainerID, user.ID, 31), alerts[0].Content)
	require.Equal(t, []string{"oncall"}, alerts[0].MentionRoles)

	stored, _ := h.ticket(t, tk.ContainerID)
	require.True(t, stored.Escalated)
	require.Equal(t, 1, stored.EscalationLevel)

	// Claiming resets the escalation, so an unclaimed ticket can escalate again.
	_, err := h.m.Claim(ctx, testGuild, tk.ContainerID, staff)
	require.NoError(t, err)
	stored, _ = h.ticket(t, tk.ContainerID)
	require.False(t, stored.Escalated)

	require.NoError(t, h.m.EscalationSweep(ctx))
	require.Len(t, h.adapter.sent["alerts"], 1)

	_, err = h.m.Claim(ctx, testGuild, tk.ContainerID, staff)
	require.NoError(t, err)
	require.NoError(t, h.m.EscalationSweep(ctx))
	require.Len(t, h.adapter.sent["alerts"], 2)

	require.Equal(t, 2, count(auditStrings(h.auditActions(t)), string(entities.AuditEscalate)))
}

func TestEscalationSweep_NoChannel(t *testing.T) {
	h := newHarness(t)
	h.update(t, func(g *entities.Guild) {
		g.Escalation = entities.EscalationConfig{Enabled: true, Minutes: 10}
	})
	tk := h.open(t, user)

	h.clock.Advance(time.Hour)
	require.NoError(t, h.m.EscalationSweep(context.Background()))
	require.Contains(t, h.adapter.contents(tk.ContainerID), fmt.Sprintf(messages.EscalationAlert, tk.ContainerID, user.ID, 60))
}

func TestSweep_IsolatesGuilds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.Escalation = entities.EscalationConfig{Enabled: true, Minutes: 10, ChannelID: "alerts"}
	})
	h.open(t, user)
	require.NoError(t, h.guilds.SaveGuild(ctx, entities.NewGuild("another")))

	calls := 0
	err := h.m.sweep(ctx, WorkerEscalation, func(ctx context.Context, guildID string) error {
		calls++
		if guildID == "another" {
			panic("boom")
		}
		return h.m.escalateGuild(ctx, guildID)
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func auditStrings(actions []entities.AuditAction) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, string(a))
	}
	return out
}
