package tickets

import (
	"context"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/stretchr/testify/require"
)

func TestAuditMirror(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.AuditLogChannel = "audit"
	})

	tk := h.open(t, user)
	_, err := h.m.Claim(ctx, testGuild, tk.ContainerID, staff)
	require.NoError(t, err)

	mirrored := h.adapter.sent["audit"]
	require.Len(t, mirrored, 2)
	require.Equal(t, "Open", mirrored[0].Embed.Title)
	require.Equal(t, "Claim", mirrored[1].Embed.Title)

	g := h.guild(t)
	require.Equal(t, g.AuditLog[1].ID, mirrored[1].Embed.Footer)
	require.NotEqual(t, g.AuditLog[0].ID, g.AuditLog[1].ID)

	// Refused operations record nothing.
	_, err = h.m.Claim(ctx, testGuild, tk.ContainerID, staff2)
	require.Error(t, err)
	require.Len(t, h.adapter.sent["audit"], 2)
}

func TestAuditLog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tk := h.open(t, user)
	h.clock.Advance(time.Hour)
	_, err := h.m.Claim(ctx, testGuild, tk.ContainerID, staff)
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	_, err = h.m.Claim(ctx, testGuild, tk.ContainerID, staff)
	require.NoError(t, err)

	tests := []struct {
		name    string
		filter  AuditFilter
		want    []entities.AuditAction
		wantErr bool
	}{
		{name: "everything newest first", want: []entities.AuditAction{entities.AuditUnclaim, entities.AuditClaim, entities.AuditOpen}},
		{name: "by action", filter: AuditFilter{Action: entities.AuditClaim}, want: []entities.AuditAction{entities.AuditClaim}},
		{name: "by actor", filter: AuditFilter{Actor: user.ID}, want: []entities.AuditAction{entities.AuditOpen}},
		{name: "since", filter: AuditFilter{Since: base.Add(time.Hour)}, want: []entities.AuditAction{entities.AuditUnclaim, entities.AuditClaim}},
		{name: "limit", filter: AuditFilter{Limit: 1}, want: []entities.AuditAction{entities.AuditUnclaim}},
		{name: "unknown action", filter: AuditFilter{Action: "explode"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.m.AuditLog(ctx, testGuild, admin, tt.filter)
			if tt.wantErr {
				require.Equal(t, KindInvalid, KindOf(err))
				return
			}
			require.NoError(t, err)
			var actions []entities.AuditAction
			for _, e := range got {
				actions = append(actions, e.Action)
			}
			require.Equal(t, tt.want, actions)
		})
	}

	_, err = h.m.AuditLog(ctx, testGuild, staff, AuditFilter{})
	require.Equal(t, KindPermissionDenied, KindOf(err))
}
