package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/cmd/bot/config"
	"github.com/Jacobbrewer1/ticketwolf/pkg/discord"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

// NewSession creates the Discord session. It is opened by App.Run.
func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)
	return dg, nil
}

// NewAdapter creates the chat adapter. Transcripts go to the guild's audit log channel.
func NewAdapter(l *slog.Logger, s *discordgo.Session, store *Store) *discord.Adapter {
	return discord.NewAdapter(l.With(slog.String("component", "discord_adapter")), s,
		func(ctx context.Context, guildID string) (string, error) {
			g, err := store.Guilds.GetGuildByID(ctx, guildID)
			if err != nil {
				return "", fmt.Errorf("error getting guild: %w", err)
			}
			return g.AuditLogChannel, nil
		},
	)
}

// NewTicketManager creates the ticket engine.
func NewTicketManager(l *slog.Logger, cfg *config.Config, store *Store, adapter *discord.Adapter) *tickets.Manager {
	return tickets.NewManager(l.With(slog.String("component", "tickets")), store.Guilds, store.Tickets, adapter,
		tickets.WithRateLimit(cfg.ApiRateLimit),
	)
}
