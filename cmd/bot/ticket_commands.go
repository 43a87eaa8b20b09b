package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const defaultHistoryLimit = 10

// parseDelay parses an optional duration option.
func parseDelay(s string) (custom.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := custom.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, &tickets.Error{Kind: tickets.KindInvalid, Message: fmt.Sprintf("%q is not a valid duration, try 30m, 2h or 1d.", s), Err: err}
	}
	return d, nil
}

func openTicketCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	return openTicketButton(ctx, a, i, r, strings.ToLower(commandOptions(i).str("panel")))
}

func claimTicketCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	return claimTicketButton(ctx, a, i, r, "")
}

func unclaimTicketCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if _, err := a.Tickets().Unclaim(ctx, i.GuildID, i.ChannelID, interactionMember(ctx, a, i)); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf(messages.UnclaimedTicket, i.ChannelID))
}

func transferTicketCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	userID := commandOptions(i).str("user")
	target, err := a.Adapter().Member(ctx, i.GuildID, userID)
	if err != nil {
		return fmt.Errorf("error getting member: %w", err)
	}

	if _, err := a.Tickets().Transfer(ctx, i.GuildID, i.ChannelID, interactionMember(ctx, a, i), target); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("The ticket has been transferred to <@%s>.", userID))
}

func closeTicketCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	delay, err := parseDelay(opts.str("delay"))
	if err != nil {
		return err
	}
	return closeOrPrompt(ctx, a, i, r, i.ChannelID, opts.str("reason"), opts.str("summary"), delay.Std())
}

func cancelCloseCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if err := a.Tickets().CancelScheduledClose(ctx, i.GuildID, i.ChannelID, interactionMember(ctx, a, i)); err != nil {
		return err
	}
	return r.Ephemeral("The scheduled close has been cancelled.")
}

func addNoteCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if _, err := a.Tickets().AddNote(ctx, i.GuildID, i.ChannelID, interactionMember(ctx, a, i), commandOptions(i).str("text")); err != nil {
		return err
	}
	return r.Ephemeral("Note added.")
}

func notesCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	notes, err := a.Tickets().Notes(ctx, i.GuildID, i.ChannelID, interactionMember(ctx, a, i))
	if err != nil {
		return err
	}
	return r.Embed(notesEmbed(notes))
}

func infoCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	t, err := a.Tickets().Info(ctx, i.GuildID, i.ChannelID, interactionMember(ctx, a, i))
	if err != nil {
		return err
	}
	return r.Embed(ticketEmbed(t))
}

func historyCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	userID := opts.str("user")

	closed, err := a.Tickets().History(ctx, i.GuildID, interactionMember(ctx, a, i), userID, opts.integer("limit", defaultHistoryLimit))
	if err != nil {
		return err
	}
	return r.Embed(historyEmbed(userID, closed))
}

func renameCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	name := commandOptions(i).str("name")
	if err := a.Tickets().Rename(ctx, i.GuildID, i.ChannelID, interactionMember(ctx, a, i), name); err != nil {
		return err
	}
	return r.Ephemeral("The ticket has been renamed.")
}

func addUserCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	userID := commandOptions(i).str("user")
	if err := a.Tickets().AddUser(ctx, i.GuildID, i.ChannelID, interactionMember(ctx, a, i), userID); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("<@%s> has been added to the ticket.", userID))
}

func removeUserCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	userID := commandOptions(i).str("user")
	if err := a.Tickets().RemoveUser(ctx, i.GuildID, i.ChannelID, interactionMember(ctx, a, i), userID); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("<@%s> has been removed from the ticket.", userID))
}

func reopenCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	return reopenTicketButton(ctx, a, i, r, commandOptions(i).str("ticket"))
}

// quickReplyCmd acknowledges first, as a quick reply may close the ticket it is sent in.
func quickReplyCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	name := strings.ToLower(commandOptions(i).str("name"))
	if _, err := a.Tickets().GetQuickReply(ctx, i.GuildID, name); err != nil {
		return err
	}

	if err := r.Ephemeral(fmt.Sprintf("Sending quick reply `%s`.", name)); err != nil {
		a.Log().Debug("Error acknowledging quick reply", slog.String(logging.KeyError, err.Error()))
	}
	return a.Tickets().SendQuickReply(ctx, i.GuildID, a.Adapter().GuildName(i.GuildID), i.ChannelID, interactionMember(ctx, a, i), name)
}
