package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const (
	// modalTitleLength is the longest title Discord accepts for a modal.
	modalTitleLength = 45

	// inputLabelLength is the longest label Discord accepts for a text input.
	inputLabelLength = 45

	// messageLength is the longest message content Discord accepts.
	messageLength = 2000
)

type responderState int

const (
	stateNone responderState = iota
	stateDeferred
	stateResponded
)

// responder answers one interaction. The first answer responds to the interaction, an answer
// after Defer edits the deferred response, and later answers are sent as follow ups.
type responder struct {
	s     *discordgo.Session
	i     *discordgo.Interaction
	state responderState
}

func newResponder(s *discordgo.Session, i *discordgo.Interaction) *responder {
	return &responder{s: s, i: i}
}

// Defer acknowledges the interaction with an ephemeral thinking state.
func (r *responder) Defer() error {
	if r.state != stateNone {
		return nil
	}
	err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		return fmt.Errorf("error deferring interaction: %w", err)
	}
	r.state = stateDeferred
	return nil
}

// Ephemeral answers with a message only the invoking user can see.
func (r *responder) Ephemeral(content string) error {
	return r.send(truncate(content, messageLength), nil, nil)
}

// Embed answers with an ephemeral embed.
func (r *responder) Embed(e *discordgo.MessageEmbed) error {
	return r.send("", []*discordgo.MessageEmbed{e}, nil)
}

// File answers with an ephemeral file attachment.
func (r *responder) File(content, name, contentType string, data []byte) error {
	return r.send(content, nil, []*discordgo.File{{
		Name:        name,
		ContentType: contentType,
		Reader:      bytes.NewReader(data),
	}})
}

// Modal answers with a modal. A modal must be the first answer to an interaction.
func (r *responder) Modal(customID, title string, rows []discordgo.MessageComponent) error {
	if r.state != stateNone {
		return fmt.Errorf("error showing modal: interaction already acknowledged")
	}
	err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      truncate(title, modalTitleLength),
			Components: rows,
		},
	})
	if err != nil {
		return fmt.Errorf("error showing modal: %w", err)
	}
	r.state = stateResponded
	return nil
}

func (r *responder) send(content string, embeds []*discordgo.MessageEmbed, files []*discordgo.File) error {
	// Answers never ping anyone.
	mentions := &discordgo.MessageAllowedMentions{}

	switch r.state {
	case stateNone:
		err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:         content,
				Embeds:          embeds,
				Files:           files,
				AllowedMentions: mentions,
				Flags:           discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			return fmt.Errorf("error responding to interaction: %w", err)
		}
	case stateDeferred:
		edit := &discordgo.WebhookEdit{
			Content:         &content,
			Files:           files,
			AllowedMentions: mentions,
		}
		if embeds != nil {
			edit.Embeds = &embeds
		}
		if _, err := r.s.InteractionResponseEdit(r.i, edit); err != nil {
			return fmt.Errorf("error editing interaction response: %w", err)
		}
	default:
		_, err := r.s.FollowupMessageCreate(r.i, true, &discordgo.WebhookParams{
			Content:         content,
			Embeds:          embeds,
			Files:           files,
			AllowedMentions: mentions,
			Flags:           discordgo.MessageFlagsEphemeral,
		})
		if err != nil {
			return fmt.Errorf("error sending follow up: %w", err)
		}
	}
	r.state = stateResponded
	return nil
}

// respondError tells the user an interaction failed. Engine errors carry a message that is safe
// to show; anything else gets the generic message.
func respondError(a IApp, r *responder, err error) {
	msg := messages.ErrUserErrorProcessing
	if err != nil {
		if m, ok := tickets.UserMessage(err); ok {
			msg = m
		}
	}
	if err := r.Ephemeral(msg); err != nil {
		a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
	}
}

// interactionMember resolves the member that invoked an interaction.
func interactionMember(ctx context.Context, a IApp, i *discordgo.InteractionCreate) *tickets.Member {
	return a.Adapter().InteractionMember(ctx, i.GuildID, i.Member)
}

// options are the options of the invoked subcommand by name.
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

// commandOptions flattens the options of the invoked subcommand.
func commandOptions(i *discordgo.InteractionCreate) options {
	opts := i.ApplicationCommandData().Options
	for len(opts) == 1 && (opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup ||
		opts[0].Type == discordgo.ApplicationCommandOptionSubCommand) {
		opts = opts[0].Options
	}

	out := make(options, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

// str returns a string, user, role, channel or attachment option. Missing options are empty.
func (o options) str(name string) string {
	v, ok := o[name]
	if !ok {
		return ""
	}
	s, _ := v.Value.(string)
	return strings.TrimSpace(s)
}

func (o options) integer(name string, def int) int {
	v, ok := o[name]
	if !ok {
		return def
	}
	f, ok := v.Value.(float64)
	if !ok {
		return def
	}
	return int(f)
}

func (o options) flag(name string) bool {
	v, ok := o[name]
	if !ok {
		return false
	}
	b, _ := v.Value.(bool)
	return b
}

// questionModal builds the text inputs of a questionnaire.
func questionModal(questions []entities.Question) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(questions))
	for n, q := range questions {
		style := discordgo.TextInputShort
		if q.Style == entities.QuestionParagraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    fmt.Sprintf("q%d", n),
					Label:       truncate(q.Label, inputLabelLength),
					Style:       style,
					Placeholder: q.Placeholder,
					Value:       q.Default,
					Required:    q.Required,
					MinLength:   q.MinLength,
					MaxLength:   q.MaxLength,
				},
			},
		})
	}
	return rows
}

// reasonModal builds the single input of a close reason prompt.
func reasonModal(required bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  "reason",
					Label:     "Reason",
					Style:     discordgo.TextInputParagraph,
					Required:  required,
					MaxLength: 1000,
				},
			},
		},
	}
}

// modalValues returns the submitted text input values in order.
func modalValues(data discordgo.ModalSubmitInteractionData) []string {
	values := make([]string, 0, len(data.Components))
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if input, ok := rc.(*discordgo.TextInput); ok {
				values = append(values, input.Value)
			}
		}
	}
	return values
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
