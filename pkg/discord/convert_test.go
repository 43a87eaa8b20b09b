package discord

import (
	"testing"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/stretchr/testify/require"
)

func TestComponents(t *testing.T) {
	rows := [][]tickets.Control{
		{
			{CustomID: "tickets:open:support", Label: "Support", Style: entities.ButtonSuccess, Emoji: "\U0001F4E9"},
			{CustomID: "tickets:open:billing", Label: "Billing", Emoji: "<a:coin:123>", Disabled: true},
		},
		{},
		{
			{CustomID: "tickets:close", Label: "Close", Style: entities.ButtonDanger},
		},
	}

	got := components(rows)
	require.Len(t, got, 2)

	first := got[0].(discordgo.ActionsRow)
	require.Len(t, first.Components, 2)

	open := first.Components[0].(discordgo.Button)
	require.Equal(t, "tickets:open:support", open.CustomID)
	require.Equal(t, discordgo.SuccessButton, open.Style)
	require.Equal(t, "\U0001F4E9", open.Emoji.Name)

	billing := first.Components[1].(discordgo.Button)
	require.Equal(t, discordgo.PrimaryButton, billing.Style)
	require.True(t, billing.Disabled)
	require.Equal(t, discordgo.ComponentEmoji{Name: "coin", ID: "123", Animated: true}, billing.Emoji)

	closeBtn := got[1].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	require.Equal(t, discordgo.DangerButton, closeBtn.Style)
	require.Equal(t, discordgo.ComponentEmoji{}, closeBtn.Emoji)
}

func TestMessageSend(t *testing.T) {
	at := time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)
	msg := &tickets.Message{
		Content: "Hello <@user>",
		Embed: &tickets.Embed{
			Title:       "Ticket",
			Description: "Opened",
			Colour:      0x5865F2,
			Fields:      []tickets.EmbedField{{Name: "Panel", Value: "support", Inline: true}},
			Footer:      "entry",
			Timestamp:   at,
		},
		MentionUsers: []string{"user"},
	}

	got := messageSend(msg)
	require.Equal(t, "Hello <@user>", got.Content)
	require.Len(t, got.Embeds, 1)
	require.Equal(t, "Ticket", got.Embeds[0].Title)
	require.Equal(t, 0x5865F2, got.Embeds[0].Color)
	require.Equal(t, "entry", got.Embeds[0].Footer.Text)
	require.Equal(t, "2024-03-04T12:00:00Z", got.Embeds[0].Timestamp)
	require.Len(t, got.Embeds[0].Fields, 1)
	require.Equal(t, []string{"user"}, got.AllowedMentions.Users)
	require.Empty(t, got.AllowedMentions.Parse)
	require.Empty(t, got.Components)
}

func TestMember(t *testing.T) {
	guild := &discordgo.Guild{
		ID:      "guild",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "guild", Permissions: discordgo.PermissionViewChannel},
			{ID: "mods", Permissions: discordgo.PermissionManageServer},
			{ID: "admins", Permissions: discordgo.PermissionAdministrator},
			{ID: "support", Permissions: discordgo.PermissionSendMessages},
		},
	}
	joined := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		member    *discordgo.Member
		wantName  string
		wantAdmin bool
		wantOwner bool
	}{
		{
			name:     "plain member",
			member:   &discordgo.Member{User: &discordgo.User{ID: "175928847299117063", Username: "user"}, Roles: []string{"support"}, JoinedAt: joined},
			wantName: "user",
		},
		{
			name:      "manage server",
			member:    &discordgo.Member{User: &discordgo.User{ID: "2", Username: "mod"}, Nick: "Moderator", Roles: []string{"mods"}},
			wantName:  "Moderator",
			wantAdmin: true,
		},
		{
			name:      "administrator",
			member:    &discordgo.Member{User: &discordgo.User{ID: "3", Username: "admin"}, Roles: []string{"admins"}},
			wantName:  "admin",
			wantAdmin: true,
		},
		{
			name:      "owner",
			member:    &discordgo.Member{User: &discordgo.User{ID: "owner", Username: "boss"}},
			wantName:  "boss",
			wantAdmin: true,
			wantOwner: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := member(guild, tt.member)
			require.Equal(t, tt.member.User.ID, got.ID)
			require.Equal(t, tt.wantName, got.Name)
			require.Equal(t, tt.wantAdmin, got.Admin)
			require.Equal(t, tt.wantOwner, got.Owner)
			require.Equal(t, tt.member.Roles, got.Roles)
		})
	}
}

func TestMember_AccountCreated(t *testing.T) {
	m := member(nil, &discordgo.Member{User: &discordgo.User{ID: "175928847299117063", Username: "user"}})
	require.Equal(t, time.Date(2016, time.April, 30, 11, 18, 25, 796000000, time.UTC), m.AccountCreated)
	require.False(t, m.Admin)
}

func TestAccess(t *testing.T) {
	tests := []struct {
		name  string
		perms int64
		want  *tickets.Access
	}{
		{
			name:  "nothing",
			perms: 0,
			want:  &tickets.Access{Exists: true},
		},
		{
			name:  "text only",
			perms: textPermissions,
			want:  &tickets.Access{Exists: true, View: true, Send: true, EmbedLinks: true},
		},
		{
			name:  "manager",
			perms: textPermissions | discordgo.PermissionManageChannels | discordgo.PermissionManageThreads | discordgo.PermissionManageRoles,
			want:  &tickets.Access{Exists: true, View: true, Send: true, EmbedLinks: true, ManageChannels: true, ManageThreads: true, ManageRoles: true},
		},
		{
			name:  "administrator",
			perms: discordgo.PermissionAdministrator,
			want:  &tickets.Access{Exists: true, View: true, Send: true, EmbedLinks: true, ManageChannels: true, ManageThreads: true, ManageRoles: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, access(tt.perms))
		})
	}
}
