package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/discord/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// textPermissions is what ticket participants are granted in a ticket channel.
	textPermissions = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles |
		discordgo.PermissionEmbedLinks

	// threadArchiveMinutes is the auto archive duration of ticket threads (one week).
	threadArchiveMinutes = 10080
)

// TranscriptChannelFunc resolves where a guild's transcripts are posted. An empty ID means the
// guild has nowhere to receive them.
type TranscriptChannelFunc func(ctx context.Context, guildID string) (string, error)

// Adapter is the ticket engine's chat platform, backed by a discordgo session.
type Adapter struct {
	l *slog.Logger
	s *discordgo.Session

	transcripts TranscriptChannelFunc
}

var _ tickets.Adapter = (*Adapter)(nil)

// NewAdapter creates a new adapter over an open session.
func NewAdapter(l *slog.Logger, s *discordgo.Session, transcripts TranscriptChannelFunc) *Adapter {
	return &Adapter{
		l:           l,
		s:           s,
		transcripts: transcripts,
	}
}

// call runs one REST operation, mapping its error and recording metrics.
func (a *Adapter) call(ctx context.Context, operation string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := prometheus.NewTimer(monitoring.AdapterLatency.WithLabelValues(operation))
	err := mapError(fn(), operation)
	t.ObserveDuration()

	monitoring.AdapterRequests.WithLabelValues(operation, result(err)).Inc()
	return err
}

func (a *Adapter) botID() string {
	if a.s.State != nil && a.s.State.User != nil {
		return a.s.State.User.ID
	}
	return ""
}

// channel looks a channel up in the state cache before asking the API.
func (a *Adapter) channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if a.s.State != nil {
		if ch, err := a.s.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}

	var ch *discordgo.Channel
	err := a.call(ctx, "get_channel", func() (err error) {
		ch, err = a.s.Channel(channelID)
		return err
	})
	return ch, err
}

func (a *Adapter) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if a.s.State != nil {
		if g, err := a.s.State.Guild(guildID); err == nil {
			return g, nil
		}
	}

	var g *discordgo.Guild
	err := a.call(ctx, "get_guild", func() (err error) {
		g, err = a.s.Guild(guildID)
		return err
	})
	return g, err
}

func (a *Adapter) CreateContainer(ctx context.Context, spec *tickets.ContainerSpec) (string, error) {
	if spec.Thread {
		return a.createThread(ctx, spec)
	}
	return a.createChannel(ctx, spec)
}

func (a *Adapter) createChannel(ctx context.Context, spec *tickets.ContainerSpec) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		// Deny @everyone from seeing the ticket.
		{
			ID:   spec.GuildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
	}
	if bot := a.botID(); bot != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    bot,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: textPermissions | discordgo.PermissionManageChannels,
		})
	}
	for _, u := range spec.Users {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    u,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: textPermissions,
			Deny:  discordgo.PermissionMentionEveryone,
		})
	}
	for _, r := range spec.Roles {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    r,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: textPermissions,
			Deny:  discordgo.PermissionMentionEveryone,
		})
	}

	parents := []string{spec.CategoryID}
	if spec.FallbackCategoryID != "" && spec.FallbackCategoryID != spec.CategoryID {
		parents = append(parents, spec.FallbackCategoryID)
	}

	var lastErr error
	for _, parent := range parents {
		var ch *discordgo.Channel
		err := a.call(ctx, "create_channel", func() (err error) {
			ch, err = a.s.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
				Name:                 spec.Name,
				Type:                 discordgo.ChannelTypeGuildText,
				Topic:                spec.Topic,
				PermissionOverwrites: overwrites,
				ParentID:             parent,
			})
			return err
		})
		if err == nil {
			return ch.ID, nil
		}

		// Only a full or missing category is worth retrying in the fallback.
		lastErr = err
		if !isCategoryFull(err) && !errors.Is(err, tickets.ErrContainerGone) {
			return "", err
		}
		a.l.Warn("Ticket category unavailable, trying fallback",
			slog.String(logging.KeyGuild, spec.GuildID),
			slog.String(logging.KeyChannel, parent),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return "", lastErr
}

func (a *Adapter) createThread(ctx context.Context, spec *tickets.ContainerSpec) (string, error) {
	var th *discordgo.Channel
	err := a.call(ctx, "start_thread", func() (err error) {
		th, err = a.s.ThreadStartComplex(spec.ParentChannelID, &discordgo.ThreadStart{
			Name:                spec.Name,
			AutoArchiveDuration: threadArchiveMinutes,
			Type:                discordgo.ChannelTypeGuildPrivateThread,
			Invitable:           false,
		})
		return err
	})
	if err != nil {
		return "", err
	}

	members := append([]string(nil), spec.Users...)
	if spec.AddRoleMembers && len(spec.Roles) > 0 {
		members = append(members, a.roleMembers(ctx, spec.GuildID, spec.Roles)...)
	}

	seen := make(map[string]bool, len(members))
	for _, u := range members {
		if seen[u] {
			continue
		}
		seen[u] = true
		if err := a.call(ctx, "add_thread_member", func() error {
			return a.s.ThreadMemberAdd(th.ID, u)
		}); err != nil {
			a.l.Warn("Error adding member to ticket thread",
				slog.String(logging.KeyChannel, th.ID),
				slog.String(logging.KeyUser, u),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
	return th.ID, nil
}

// roleMembers lists the cached members holding any of the roles.
func (a *Adapter) roleMembers(ctx context.Context, guildID string, roles []string) []string {
	g, err := a.guild(ctx, guildID)
	if err != nil {
		a.l.Warn("Error getting guild for role members",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
		return nil
	}

	want := make(map[string]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}

	var out []string
	for _, m := range g.Members {
		if m.User == nil || m.User.Bot {
			continue
		}
		for _, r := range m.Roles {
			if want[r] {
				out = append(out, m.User.ID)
				break
			}
		}
	}
	return out
}

func (a *Adapter) DeleteContainer(ctx context.Context, containerID string) error {
	return a.call(ctx, "delete_channel", func() error {
		_, err := a.s.ChannelDelete(containerID)
		return err
	})
}

func (a *Adapter) SetArchived(ctx context.Context, containerID string, archived bool) error {
	return a.call(ctx, "archive_thread", func() error {
		_, err := a.s.ChannelEditComplex(containerID, &discordgo.ChannelEdit{
			Archived: &archived,
			Locked:   &archived,
		})
		return err
	})
}

func (a *Adapter) ContainerExists(ctx context.Context, containerID string) (bool, error) {
	_, err := a.channel(ctx, containerID)
	if errors.Is(err, tickets.ErrContainerGone) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (a *Adapter) RenameContainer(ctx context.Context, containerID, name string) error {
	return a.call(ctx, "rename_channel", func() error {
		_, err := a.s.ChannelEditComplex(containerID, &discordgo.ChannelEdit{
			Name: name,
		})
		return err
	})
}

func (a *Adapter) SetMemberAccess(ctx context.Context, containerID, userID string, allow bool) error {
	ch, err := a.channel(ctx, containerID)
	if err != nil {
		return err
	}

	if ch.IsThread() {
		if allow {
			return a.call(ctx, "add_thread_member", func() error {
				return a.s.ThreadMemberAdd(containerID, userID)
			})
		}
		return a.call(ctx, "remove_thread_member", func() error {
			return a.s.ThreadMemberRemove(containerID, userID)
		})
	}

	if allow {
		return a.call(ctx, "set_permission", func() error {
			return a.s.ChannelPermissionSet(containerID, userID, discordgo.PermissionOverwriteTypeMember, textPermissions, discordgo.PermissionMentionEveryone)
		})
	}
	return a.call(ctx, "delete_permission", func() error {
		return a.s.ChannelPermissionDelete(containerID, userID)
	})
}

func (a *Adapter) SendMessage(ctx context.Context, channelID string, msg *tickets.Message) (string, error) {
	var sent *discordgo.Message
	err := a.call(ctx, "send_message", func() (err error) {
		sent, err = a.s.ChannelMessageSendComplex(channelID, messageSend(msg))
		return err
	})
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

func (a *Adapter) EditMessage(ctx context.Context, channelID, messageID string, msg *tickets.Message) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).
		SetContent(msg.Content).
		SetEmbeds(embeds(msg.Embed))
	edit.Components = components(msg.Controls)
	edit.AllowedMentions = allowedMentions(msg)

	return a.call(ctx, "edit_message", func() error {
		_, err := a.s.ChannelMessageEditComplex(edit)
		return err
	})
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return a.call(ctx, "delete_message", func() error {
		return a.s.ChannelMessageDelete(channelID, messageID)
	})
}

func (a *Adapter) PinMessage(ctx context.Context, channelID, messageID string) error {
	return a.call(ctx, "pin_message", func() error {
		return a.s.ChannelMessagePin(channelID, messageID)
	})
}

func (a *Adapter) SendDirect(ctx context.Context, userID string, msg *tickets.Message) error {
	var dm *discordgo.Channel
	if err := a.call(ctx, "create_dm", func() (err error) {
		dm, err = a.s.UserChannelCreate(userID)
		return err
	}); err != nil {
		return err
	}

	_, err := a.SendMessage(ctx, dm.ID, msg)
	return err
}

// AttachControls replaces a message's buttons and keeps its content and embeds.
func (a *Adapter) AttachControls(ctx context.Context, channelID, messageID string, rows [][]tickets.Control) error {
	var current *discordgo.Message
	if err := a.call(ctx, "get_message", func() (err error) {
		current, err = a.s.ChannelMessage(channelID, messageID)
		return err
	}); err != nil {
		return err
	}

	edit := discordgo.NewMessageEdit(channelID, messageID).
		SetContent(current.Content).
		SetEmbeds(current.Embeds)
	edit.Components = components(rows)

	return a.call(ctx, "edit_message", func() error {
		_, err := a.s.ChannelMessageEditComplex(edit)
		return err
	})
}

func (a *Adapter) MessageExists(ctx context.Context, channelID, messageID string) (bool, error) {
	err := a.call(ctx, "get_message", func() error {
		_, err := a.s.ChannelMessage(channelID, messageID)
		return err
	})
	if errors.Is(err, tickets.ErrContainerGone) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (a *Adapter) Member(ctx context.Context, guildID, userID string) (*tickets.Member, error) {
	var m *discordgo.Member
	if a.s.State != nil {
		m, _ = a.s.State.Member(guildID, userID)
	}
	if m == nil {
		if err := a.call(ctx, "get_member", func() (err error) {
			m, err = a.s.GuildMember(guildID, userID)
			return err
		}); err != nil {
			return nil, err
		}
	}

	g, err := a.guild(ctx, guildID)
	if err != nil {
		// Without the guild the member still resolves, just without owner or admin flags.
		a.l.Warn("Error getting guild for member",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return member(g, m), nil
}

// SaveTranscript posts a text transcript of the container to the guild's transcript channel.
func (a *Adapter) SaveTranscript(ctx context.Context, guildID, containerID string, detailed bool) error {
	if a.transcripts == nil {
		return nil
	}

	target, err := a.transcripts(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error resolving transcript channel: %w", err)
	} else if target == "" {
		a.l.Debug("No transcript channel configured",
			slog.String(logging.KeyGuild, guildID),
		)
		return nil
	}

	ch, err := a.channel(ctx, containerID)
	if err != nil {
		return err
	}

	history, err := a.history(ctx, containerID)
	if err != nil {
		return err
	}

	body := renderTranscript(ch.Name, history, detailed)
	return a.call(ctx, "send_transcript", func() error {
		_, err := a.s.ChannelMessageSendComplex(target, &discordgo.MessageSend{
			Content: fmt.Sprintf("Transcript of <#%s> (%s)", containerID, ch.Name),
			Files: []*discordgo.File{
				{
					Name:        fmt.Sprintf("transcript-%s.txt", ch.Name),
					ContentType: "text/plain",
					Reader:      bytes.NewReader(body),
				},
			},
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		})
		return err
	})
}

// history fetches a channel's messages oldest first.
func (a *Adapter) history(ctx context.Context, channelID string) ([]*discordgo.Message, error) {
	var (
		all    []*discordgo.Message
		before string
	)
	for len(all) < transcriptMaxMessages {
		var page []*discordgo.Message
		if err := a.call(ctx, "get_messages", func() (err error) {
			page, err = a.s.ChannelMessages(channelID, transcriptPageSize, before, "", "")
			return err
		}); err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) < transcriptPageSize {
			break
		}
		before = page[len(page)-1].ID
	}

	reverse(all)
	return all, nil
}

func (a *Adapter) CheckAccess(ctx context.Context, _, channelID string) (*tickets.Access, error) {
	if _, err := a.channel(ctx, channelID); errors.Is(err, tickets.ErrContainerGone) {
		return &tickets.Access{}, nil
	} else if err != nil {
		return nil, err
	}

	bot := a.botID()
	if bot == "" {
		return nil, errors.New("bot user is not known yet")
	}

	var perms int64
	if err := a.call(ctx, "channel_permissions", func() (err error) {
		perms, err = a.s.UserChannelPermissions(bot, channelID)
		return err
	}); err != nil {
		return nil, err
	}
	return access(perms), nil
}

// InteractionMember converts the member attached to an interaction. Interaction members carry
// their resolved permissions, which are trusted for the admin flag.
func (a *Adapter) InteractionMember(ctx context.Context, guildID string, m *discordgo.Member) *tickets.Member {
	g, err := a.guild(ctx, guildID)
	if err != nil {
		a.l.Debug("Error getting guild for interaction member",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	out := member(g, m)
	if m.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0 {
		out.Admin = true
	}
	return out
}

// GuildName returns the cached name of a guild, or its ID when it is not cached.
func (a *Adapter) GuildName(guildID string) string {
	if a.s.State != nil {
		if g, err := a.s.State.Guild(guildID); err == nil && g.Name != "" {
			return g.Name
		}
	}
	return guildID
}

// MessageAuthor converts the author of a guild message. Gateway messages carry the member without
// its user, so the author is attached before converting.
func (a *Adapter) MessageAuthor(ctx context.Context, m *discordgo.Message) *tickets.Member {
	if m.Author == nil {
		return nil
	}
	mem := &discordgo.Member{User: m.Author}
	if m.Member != nil {
		cp := *m.Member
		cp.User = m.Author
		mem = &cp
	}

	g, err := a.guild(ctx, m.GuildID)
	if err != nil {
		a.l.Debug("Error getting guild for message author",
			slog.String(logging.KeyGuild, m.GuildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return member(g, mem)
}
