package discord

import (
	"regexp"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

// customEmojiRegex matches a custom emoji such as <:ticket:123> or <a:spin:456>.
var customEmojiRegex = regexp.MustCompile(`^<(a?):([A-Za-z0-9_]+):([0-9]+)>$`)

func buttonStyle(s entities.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case entities.ButtonSecondary:
		return discordgo.SecondaryButton
	case entities.ButtonSuccess:
		return discordgo.SuccessButton
	case entities.ButtonDanger:
		return discordgo.DangerButton
	}
	return discordgo.PrimaryButton
}

func componentEmoji(s string) discordgo.ComponentEmoji {
	if s == "" {
		return discordgo.ComponentEmoji{}
	}
	if m := customEmojiRegex.FindStringSubmatch(s); m != nil {
		return discordgo.ComponentEmoji{
			Name:     m[2],
			ID:       m[3],
			Animated: m[1] == "a",
		}
	}
	return discordgo.ComponentEmoji{Name: s}
}

// components converts rows of controls into action rows of buttons.
func components(rows [][]tickets.Control) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    c.Label,
				Style:    buttonStyle(c.Style),
				Disabled: c.Disabled,
				Emoji:    componentEmoji(c.Emoji),
				CustomID: c.CustomID,
			})
		}
		out = append(out, discordgo.ActionsRow{Components: buttons})
	}
	return out
}

func embed(e *tickets.Embed) *discordgo.MessageEmbed {
	if e == nil {
		return nil
	}

	me := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Colour,
	}
	for _, f := range e.Fields {
		me.Fields = append(me.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if e.Footer != "" {
		me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if !e.Timestamp.IsZero() {
		me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return me
}

func embeds(e *tickets.Embed) []*discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	return []*discordgo.MessageEmbed{embed(e)}
}

// allowedMentions only lets the listed users and roles be pinged.
func allowedMentions(msg *tickets.Message) *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Users: msg.MentionUsers,
		Roles: msg.MentionRoles,
	}
}

func messageSend(msg *tickets.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         msg.Content,
		Embeds:          embeds(msg.Embed),
		Components:      components(msg.Controls),
		AllowedMentions: allowedMentions(msg),
	}
}

// member converts a discordgo member. Permissions are the member's guild level permissions.
func member(guild *discordgo.Guild, m *discordgo.Member) *tickets.Member {
	out := &tickets.Member{
		Roles:    m.Roles,
		JoinedAt: m.JoinedAt,
	}
	if m.User != nil {
		out.ID = m.User.ID
		out.Name = m.User.Username
		out.Bot = m.User.Bot
		if created, err := discordgo.SnowflakeTimestamp(m.User.ID); err == nil {
			out.AccountCreated = created.UTC()
		}
	}
	if m.Nick != "" {
		out.Name = m.Nick
	}

	if guild != nil {
		out.Owner = guild.OwnerID != "" && guild.OwnerID == out.ID
		perms := guildPermissions(guild, m)
		out.Admin = perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0
	}
	return out
}

// guildPermissions combines the @everyone role with the member's roles.
func guildPermissions(guild *discordgo.Guild, m *discordgo.Member) int64 {
	if guild.OwnerID != "" && m.User != nil && guild.OwnerID == m.User.ID {
		return discordgo.PermissionAll
	}

	held := make(map[string]bool, len(m.Roles)+1)
	held[guild.ID] = true
	for _, r := range m.Roles {
		held[r] = true
	}

	var perms int64
	for _, r := range guild.Roles {
		if held[r.ID] {
			perms |= r.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

// access describes a permission set in the terms preflight uses.
func access(perms int64) *tickets.Access {
	has := func(p int64) bool {
		return perms&discordgo.PermissionAdministrator != 0 || perms&p == p
	}
	return &tickets.Access{
		Exists:         true,
		View:           has(discordgo.PermissionViewChannel),
		Send:           has(discordgo.PermissionSendMessages),
		ManageChannels: has(discordgo.PermissionManageChannels),
		ManageThreads:  has(discordgo.PermissionManageThreads),
		ManageRoles:    has(discordgo.PermissionManageRoles),
		EmbedLinks:     has(discordgo.PermissionEmbedLinks),
	}
}
