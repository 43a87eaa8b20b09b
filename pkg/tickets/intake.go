package tickets

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
)

// maxQuestions is the most fields a questionnaire modal can hold.
const maxQuestions = 5

// CollectAnswers pairs submitted values with the panel's questions. Empty answers are recorded as
// unanswered unless the question is required.
func CollectAnswers(questions []entities.Question, values []string) ([]entities.Answer, error) {
	answers := make([]entities.Answer, 0, len(questions))
	for i, q := range questions {
		v := ""
		if i < len(values) {
			v = strings.TrimSpace(values[i])
		}

		if v == "" {
			if q.Required {
				return nil, invalid("%q is required.", q.Label)
			}
			answers = append(answers, entities.Answer{Question: q.Label, Value: messages.UnansweredQuestion})
			continue
		}

		n := utf8.RuneCountInString(v)
		if q.MinLength > 0 && n < q.MinLength {
			return nil, invalid("%q must be at least %d characters.", q.Label, q.MinLength)
		}
		if q.MaxLength > 0 && n > q.MaxLength {
			return nil, invalid("%q must be at most %d characters.", q.Label, q.MaxLength)
		}
		answers = append(answers, entities.Answer{Question: q.Label, Value: v})
	}
	return answers, nil
}

// sendIntake posts the first messages of a new ticket. Any failure means the container is not
// usable and the ticket must not be created.
func (m *Manager) sendIntake(ctx context.Context, containerID string, p *entities.Panel, v Vars, roles []string, answers []entities.Answer, rejectedName string) error {
	mentions := []string{v.User}
	for _, r := range roles {
		mentions = append(mentions, "<@&"+r+">")
	}

	welcome := &Embed{
		Title:       fmt.Sprintf("%s Ticket #%d", p.Name, v.Num),
		Description: fmt.Sprintf("Welcome %s, support will be with you shortly.", v.User),
		Colour:      int(p.EmbedColour),
	}
	for _, s := range p.WelcomeSections {
		welcome.Fields = append(welcome.Fields, EmbedField{Name: Render(s.Title, v), Value: Render(s.Body, v)})
	}

	if _, err := m.adapter.SendMessage(ctx, containerID, &Message{
		Content:      strings.Join(mentions, " "),
		Embed:        welcome,
		Controls:     ticketControls(),
		MentionRoles: roles,
	}); err != nil {
		return fmt.Errorf("error sending welcome message: %w", err)
	}

	for _, msg := range p.OpenMessages {
		if _, err := m.adapter.SendMessage(ctx, containerID, &Message{Content: Render(msg, v)}); err != nil {
			return fmt.Errorf("error sending open message: %w", err)
		}
	}

	if len(answers) > 0 {
		summary := &Embed{Title: "Questionnaire", Colour: int(p.EmbedColour)}
		for _, a := range answers {
			summary.Fields = append(summary.Fields, EmbedField{Name: a.Question, Value: a.Value})
		}
		id, err := m.adapter.SendMessage(ctx, containerID, &Message{Embed: summary})
		if err != nil {
			return fmt.Errorf("error sending answers: %w", err)
		}
		if err := m.adapter.PinMessage(ctx, containerID, id); err != nil {
			return fmt.Errorf("error pinning answers: %w", err)
		}
	}

	if rejectedName != "" {
		m.say(ctx, containerID, fmt.Sprintf(messages.TicketRenamedFallback, rejectedName))
	}
	return nil
}

// postLog posts the log embed with the join control and returns the message ID.
func (m *Manager) postLog(ctx context.Context, p *entities.Panel, t *entities.Ticket) (string, error) {
	embed := &Embed{
		Title:       fmt.Sprintf("New ticket #%d", t.Number),
		Description: fmt.Sprintf("<@%s> opened <#%s> on **%s**.", t.Owner, t.ContainerID, p.Name),
		Colour:      int(p.EmbedColour),
		Timestamp:   t.CreatedAt,
	}
	if p.MaxClaims > 0 {
		embed.Footer = fmt.Sprintf("Up to %d staff can join", p.MaxClaims)
	}
	return m.adapter.SendMessage(ctx, p.LogChannelID, &Message{Embed: embed, Controls: joinControls(t.ContainerID, false)})
}
