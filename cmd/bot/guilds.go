package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

func guildJoinedHandler(ctx context.Context, a IApp) func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		a.Log().Info(fmt.Sprintf("Joined guild %s", g.Name), slog.String(logging.KeyGuild, g.ID))

		// Increment the total number of guilds.
		monitoring.TotalDiscordGuilds.Inc()

		if err := registerCommands(ctx, a, a.Config().ApplicationId, g.ID); err != nil {
			a.Log().Error("Error registering commands",
				slog.String(logging.KeyGuild, g.ID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
}

func guildLeaveHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		a.Log().Info(fmt.Sprintf("Left guild %s", g.Name), slog.String(logging.KeyGuild, g.ID))

		// Decrement the total number of guilds.
		monitoring.TotalDiscordGuilds.Dec()
	}
}

// messageCreateHandler feeds running wizards and records ticket activity.
func messageCreateHandler(ctx context.Context, a IApp) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.GuildID == "" || m.Author == nil || m.Author.Bot {
			return
		}

		author := a.Adapter().MessageAuthor(ctx, m.Message)
		if a.Tickets().Wizards().Active(m.GuildID, m.ChannelID, m.Author.ID) {
			handleWizardMessage(ctx, a, m, author)
		}

		err := a.Tickets().OnMessage(ctx, &tickets.MessageEvent{
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			Author:    author,
		})
		if err != nil {
			a.Log().Error("Error recording ticket activity",
				slog.String(logging.KeyGuild, m.GuildID),
				slog.String(logging.KeyChannel, m.ChannelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
}

// handleWizardMessage advances a wizard and saves what it built once the user confirms.
func handleWizardMessage(ctx context.Context, a IApp, m *discordgo.MessageCreate, author *tickets.Member) {
	reply, ok := a.Tickets().Wizards().Handle(m.GuildID, m.ChannelID, m.Author.ID, m.Content)
	if !ok {
		return
	}

	content := reply.Prompt
	if reply.Done {
		var err error
		switch {
		case reply.Panel != nil:
			err = a.Tickets().RegisterPanel(ctx, m.GuildID, author, reply.Panel)
			content = fmt.Sprintf("Panel `%s` has been created.", reply.Panel.Name)
		case reply.QuickReply != nil:
			err = a.Tickets().AddQuickReply(ctx, m.GuildID, author, reply.QuickReply)
			content = fmt.Sprintf("Quick reply `%s` has been saved.", reply.QuickReply.Name)
		}
		if err != nil {
			msg, safe := tickets.UserMessage(err)
			if !safe {
				a.Log().Error("Error saving wizard result",
					slog.String(logging.KeyGuild, m.GuildID),
					slog.String(logging.KeyError, err.Error()),
				)
				msg = "The wizard finished but the result could not be saved. Please try again."
			}
			content = msg
		}
	}
	if content == "" {
		return
	}

	if _, err := a.Adapter().SendMessage(ctx, m.ChannelID, &tickets.Message{Content: content}); err != nil {
		a.Log().Error("Error sending wizard prompt",
			slog.String(logging.KeyChannel, m.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// memberRemoveHandler closes or keeps the tickets of members that leave.
func memberRemoveHandler(ctx context.Context, a IApp) func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	return func(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
		if m.Member == nil || m.User == nil {
			return
		}
		if err := a.Tickets().OnMemberLeave(ctx, m.GuildID, a.Adapter().GuildName(m.GuildID), m.User.ID); err != nil {
			a.Log().Error("Error handling member leave",
				slog.String(logging.KeyGuild, m.GuildID),
				slog.String(logging.KeyUser, m.User.ID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
}

// channelDeleteHandler drops the tickets of deleted channels.
func channelDeleteHandler(ctx context.Context, a IApp) func(s *discordgo.Session, c *discordgo.ChannelDelete) {
	return func(_ *discordgo.Session, c *discordgo.ChannelDelete) {
		if c.Channel == nil {
			return
		}
		containerDeleted(ctx, a, c.GuildID, c.ID)
	}
}

// threadDeleteHandler drops the tickets of deleted threads.
func threadDeleteHandler(ctx context.Context, a IApp) func(s *discordgo.Session, t *discordgo.ThreadDelete) {
	return func(_ *discordgo.Session, t *discordgo.ThreadDelete) {
		if t.Channel == nil {
			return
		}
		containerDeleted(ctx, a, t.GuildID, t.ID)
	}
}

func containerDeleted(ctx context.Context, a IApp, guildID, containerID string) {
	if err := a.Tickets().OnContainerDelete(ctx, guildID, containerID); err != nil {
		a.Log().Error("Error handling deleted container",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyChannel, containerID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}
