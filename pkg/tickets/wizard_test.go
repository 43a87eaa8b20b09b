package tickets

import (
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/stretchr/testify/require"
)

// answer feeds the wizard a sequence of messages and returns the last reply.
func answer(t *testing.T, ws *Wizards, texts ...string) *WizardReply {
	t.Helper()
	var reply *WizardReply
	for _, text := range texts {
		var ok bool
		reply, ok = ws.Handle(testGuild, "setup", admin.ID, text)
		require.True(t, ok, text)
	}
	return reply
}

func TestWizard_Panel(t *testing.T) {
	h := newHarness(t)
	ws := h.m.Wizards()

	reply, err := ws.Start(WizardPanel, testGuild, "setup", admin.ID)
	require.NoError(t, err)
	require.Contains(t, reply.Prompt, "What should the panel be called?")
	require.Contains(t, reply.Prompt, "`cancel`")
	require.True(t, ws.Active(testGuild, "setup", admin.ID))
	require.False(t, ws.Active(testGuild, "setup", staff.ID))

	reply = answer(t, ws, "Bad Name!")
	require.Contains(t, reply.Prompt, "Names must be")
	require.Contains(t, reply.Prompt, "What should the panel be called?")

	reply = answer(t, ws, "Billing", "<#123456789012345678>", "not a category")
	require.Contains(t, reply.Prompt, "is not a valid ID")

	reply = answer(t, ws, "threads", "skip", "danger")
	require.Contains(t, reply.Prompt, "**Panel** `billing`")
	require.Contains(t, reply.Prompt, "Tickets: private threads")
	require.Contains(t, reply.Prompt, "Button: Open Ticket (danger)")

	reply = answer(t, ws, "yes")
	require.True(t, reply.Done)
	require.Equal(t, &entities.Panel{
		Name:        "billing",
		ChannelID:   "123456789012345678",
		Threads:     true,
		ButtonStyle: entities.ButtonDanger,
	}, reply.Panel)
	require.False(t, ws.Active(testGuild, "setup", admin.ID))
}

func TestWizard_QuickReply(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		want    *entities.QuickReply
	}{
		{
			name:    "no close skips the delay",
			answers: []string{"Resolved", "none", "Glad to help {user}", "no", "yes"},
			want:    &entities.QuickReply{Name: "resolved", Content: "Glad to help {user}"},
		},
		{
			name:    "delayed close",
			answers: []string{"resolved", "All done", "Closing soon", "yes", "10m", "yes"},
			want:    &entities.QuickReply{Name: "resolved", Title: "All done", Content: "Closing soon", CloseAfter: true, Delay: custom.Duration(10 * time.Minute)},
		},
		{
			name:    "immediate close",
			answers: []string{"resolved", "-", "Bye", "yes", "0", "yes"},
			want:    &entities.QuickReply{Name: "resolved", Content: "Bye", CloseAfter: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ws := h.m.Wizards()

			_, err := ws.Start(WizardQuickReply, testGuild, "setup", admin.ID)
			require.NoError(t, err)

			reply := answer(t, ws, tt.answers...)
			require.True(t, reply.Done)
			require.Equal(t, tt.want, reply.QuickReply)
		})
	}
}

func TestWizard_Stops(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		advance time.Duration
		prompt  string
	}{
		{name: "cancel", answers: []string{"resolved", "CANCEL"}, prompt: "Setup cancelled."},
		{name: "declined", answers: []string{"resolved", "none", "Done", "no", "no"}, prompt: "Setup cancelled, nothing was saved."},
		{name: "expired", answers: []string{"resolved"}, advance: 10 * time.Minute, prompt: messages.ErrFlowExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ws := h.m.Wizards()

			_, err := ws.Start(WizardQuickReply, testGuild, "setup", admin.ID)
			require.NoError(t, err)

			h.clock.Advance(tt.advance)
			reply := answer(t, ws, tt.answers...)
			require.True(t, reply.Cancelled)
			require.False(t, reply.Done)
			require.Equal(t, tt.prompt, reply.Prompt)
			require.False(t, ws.Active(testGuild, "setup", admin.ID))

			_, ok := ws.Handle(testGuild, "setup", admin.ID, "hello")
			require.False(t, ok)
		})
	}
}

func TestWizard_AnswerExtendsTimeout(t *testing.T) {
	h := newHarness(t)
	ws := h.m.Wizards()

	_, err := ws.Start(WizardQuickReply, testGuild, "setup", admin.ID)
	require.NoError(t, err)

	h.clock.Advance(9 * time.Minute)
	answer(t, ws, "resolved")
	h.clock.Advance(9 * time.Minute)
	reply := answer(t, ws, "none")
	require.False(t, reply.Cancelled)
	require.Contains(t, reply.Prompt, "What should the reply say?")
}

func TestWizard_UnknownKind(t *testing.T) {
	h := newHarness(t)

	_, err := h.m.Wizards().Start("ticket", testGuild, "setup", admin.ID)
	require.Equal(t, KindInvalid, KindOf(err))
	require.False(t, h.m.Wizards().Active(testGuild, "setup", admin.ID))
}
