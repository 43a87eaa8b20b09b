package tickets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlows(t *testing.T) {
	h := newHarness(t)
	flows := h.m.Flows()

	f := flows.Begin(Flow{Kind: FlowIntake, GuildID: testGuild, UserID: user.ID, Panel: testPanel})
	require.NotEmpty(t, f.ID)
	require.Equal(t, base.Add(5*time.Minute), f.Expires)
	require.Equal(t, 1, flows.Len())

	_, err := flows.Complete(f.ID, user2.ID)
	require.Equal(t, KindPermissionDenied, KindOf(err))
	require.Equal(t, 1, flows.Len())

	got, err := flows.Complete(f.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, testPanel, got.Panel)
	require.Zero(t, flows.Len())

	_, err = flows.Complete(f.ID, user.ID)
	require.Equal(t, KindInvalid, KindOf(err))
}

func TestFlows_Expiry(t *testing.T) {
	h := newHarness(t)
	flows := h.m.Flows()

	f := flows.Begin(Flow{Kind: FlowCloseReason, GuildID: testGuild, UserID: staff.ID, ContainerID: "container1"})
	h.clock.Advance(5 * time.Minute)

	_, err := flows.Complete(f.ID, staff.ID)
	require.Equal(t, KindInvalid, KindOf(err))
	msg, _ := UserMessage(err)
	require.Contains(t, msg, "expired")
	require.Zero(t, flows.Len())

	// Expired flows are pruned when the next one begins.
	flows.Begin(Flow{Kind: FlowIntake, UserID: user.ID})
	h.clock.Advance(5 * time.Minute)
	flows.Begin(Flow{Kind: FlowIntake, UserID: user2.ID})
	require.Equal(t, 1, flows.Len())
}
