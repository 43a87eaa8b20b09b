package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

// containerOf returns the container a control acts on. Controls posted inside a ticket carry no
// argument and act on the channel they were pressed in.
func containerOf(i *discordgo.InteractionCreate, arg string) string {
	if arg != "" {
		return arg
	}
	return i.ChannelID
}

func notATicket() error {
	return &tickets.Error{Kind: tickets.KindNotFound, Message: messages.ErrNotATicket}
}

// openTicketButton opens a ticket on the panel named by arg, asking the panel's questions first.
func openTicketButton(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, arg string) error {
	member := interactionMember(ctx, a, i)

	p, err := a.Tickets().Precheck(ctx, i.GuildID, arg, member)
	if err != nil {
		return err
	}

	if len(p.Questions) > 0 {
		flow := a.Tickets().Flows().Begin(tickets.Flow{
			Kind:    tickets.FlowIntake,
			GuildID: i.GuildID,
			UserID:  member.ID,
			Panel:   p.Name,
		})
		return r.Modal(tickets.CustomID(tickets.ControlModal, flow.ID), p.Name, questionModal(p.Questions))
	}

	return openTicket(ctx, a, i, r, member, p.Name, nil)
}

// intakeModalSubmit opens the ticket once the questionnaire has been answered.
func intakeModalSubmit(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, flow *tickets.Flow) error {
	member := interactionMember(ctx, a, i)

	// The panel may have changed while the modal was open.
	p, err := a.Tickets().Precheck(ctx, i.GuildID, flow.Panel, member)
	if err != nil {
		return err
	}

	answers, err := tickets.CollectAnswers(p.Questions, modalValues(i.ModalSubmitData()))
	if err != nil {
		return err
	}
	return openTicket(ctx, a, i, r, member, p.Name, answers)
}

func openTicket(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, member *tickets.Member, panel string, answers []entities.Answer) error {
	if err := r.Defer(); err != nil {
		return err
	}

	t, err := a.Tickets().Create(ctx, &tickets.OpenRequest{
		GuildID:   i.GuildID,
		GuildName: a.Adapter().GuildName(i.GuildID),
		Panel:     panel,
		Member:    member,
		Answers:   answers,
	})
	if err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf(messages.TicketCreated, t.ContainerID))
}

// closeTicketButton closes the ticket, prompting for a reason when its panel requires one.
func closeTicketButton(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, arg string) error {
	return closeOrPrompt(ctx, a, i, r, containerOf(i, arg), "", "", 0)
}

// closeOrPrompt closes the ticket, or asks for a reason first when none was given and the
// ticket's panel requires one.
func closeOrPrompt(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, containerID, reason, summary string, delay time.Duration) error {
	if strings.TrimSpace(reason) == "" {
		g, err := a.Tickets().Guild(ctx, i.GuildID)
		if err != nil {
			return fmt.Errorf("error getting guild: %w", err)
		}
		t, ok := g.TicketByContainer(containerID)
		if !ok {
			return notATicket()
		}
		if p := g.Panels[t.Panel]; p != nil && p.RequireCloseReason {
			return promptCloseReason(a, i, r, containerID, delay)
		}
	}
	return closeTicket(ctx, a, i, r, containerID, reason, summary, delay)
}

func promptCloseReason(a IApp, i *discordgo.InteractionCreate, r *responder, containerID string, delay time.Duration) error {
	flow := a.Tickets().Flows().Begin(tickets.Flow{
		Kind:        tickets.FlowCloseReason,
		GuildID:     i.GuildID,
		UserID:      i.Member.User.ID,
		ContainerID: containerID,
		Delay:       delay,
	})
	return r.Modal(tickets.CustomID(tickets.ControlModal, flow.ID), "Close ticket", reasonModal(true))
}

// closeReasonModalSubmit closes the ticket with the submitted reason.
func closeReasonModalSubmit(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, flow *tickets.Flow) error {
	reason := ""
	if values := modalValues(i.ModalSubmitData()); len(values) > 0 {
		reason = values[0]
	}
	return closeTicket(ctx, a, i, r, flow.ContainerID, reason, "", flow.Delay)
}

// closeTicket acknowledges first, as the interaction's channel is usually the one being deleted.
func closeTicket(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, containerID, reason, summary string, delay time.Duration) error {
	req := &tickets.CloseRequest{
		GuildID:     i.GuildID,
		GuildName:   a.Adapter().GuildName(i.GuildID),
		ContainerID: containerID,
		Actor:       interactionMember(ctx, a, i),
		Reason:      reason,
		Summary:     summary,
	}

	if delay > 0 {
		if err := a.Tickets().ScheduleClose(ctx, req, delay); err != nil {
			return err
		}
		return r.Ephemeral(fmt.Sprintf(messages.CloseScheduled, custom.Duration(delay)))
	}

	if err := r.Ephemeral(messages.ClosingTicket); err != nil {
		a.Log().Debug("Error acknowledging close", slog.String(logging.KeyError, err.Error()))
	}
	return a.Tickets().Close(ctx, req)
}

// claimTicketButton claims the ticket for the member that pressed the control. Pressing it on a
// ticket they already hold gives the claim up.
func claimTicketButton(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, arg string) error {
	containerID := containerOf(i, arg)
	t, err := a.Tickets().Claim(ctx, i.GuildID, containerID, interactionMember(ctx, a, i))
	if err != nil {
		return err
	}
	return r.Ephemeral(claimReply(containerID, t))
}

func claimReply(containerID string, t *entities.Ticket) string {
	if t == nil || t.ClaimedBy == "" {
		return fmt.Sprintf(messages.UnclaimedTicket, containerID)
	}
	return fmt.Sprintf(messages.ClaimedTicket, containerID)
}

// joinTicketButton adds a staff member to the ticket named by the log control.
func joinTicketButton(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, arg string) error {
	containerID := containerOf(i, arg)
	if err := a.Tickets().Join(ctx, i.GuildID, containerID, interactionMember(ctx, a, i)); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf(messages.JoinedTicket, containerID))
}

// reopenTicketButton reopens a recently closed ticket.
func reopenTicketButton(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, arg string) error {
	if err := r.Defer(); err != nil {
		return err
	}
	t, err := a.Tickets().Reopen(ctx, i.GuildID, containerOf(i, arg), interactionMember(ctx, a, i))
	if err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf(messages.ReopenedTicket, t.ContainerID))
}
