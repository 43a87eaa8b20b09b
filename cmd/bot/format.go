package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/custom"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const (
	embedColour = 0x5865F2

	// descriptionLength is the longest embed description Discord accepts.
	descriptionLength = 4096
)

// listEmbed renders lines as an embed description, dropping lines that do not fit.
func listEmbed(title, empty string, lines []string) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{Title: title, Color: embedColour}
	if len(lines) == 0 {
		e.Description = empty
		return e
	}

	var b strings.Builder
	for n, line := range lines {
		if b.Len()+len(line)+1 > descriptionLength-32 {
			fmt.Fprintf(&b, "… and %d more", len(lines)-n)
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	e.Description = b.String()
	return e
}

func timestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func ticketEmbed(t *entities.Ticket) *discordgo.MessageEmbed {
	claimed := "Nobody"
	if t.ClaimedBy != "" {
		claimed = fmt.Sprintf("<@%s>", t.ClaimedBy)
	}

	e := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Ticket #%d", t.Number),
		Color: embedColour,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Owner", Value: fmt.Sprintf("<@%s>", t.Owner), Inline: true},
			{Name: "Panel", Value: t.Panel, Inline: true},
			{Name: "Status", Value: string(t.Status), Inline: true},
			{Name: "Claimed by", Value: claimed, Inline: true},
			{Name: "Opened", Value: timestamp(t.CreatedAt), Inline: true},
		},
	}
	if t.TransferredFrom != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Transferred from", Value: fmt.Sprintf("<@%s>", t.TransferredFrom), Inline: true})
	}
	if t.Escalated {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Escalated", Value: fmt.Sprintf("Level %d", t.EscalationLevel), Inline: true})
	}
	for _, ans := range t.Answers {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: truncate(ans.Question, 256), Value: truncate(ans.Value, 1024)})
	}
	if len(t.Notes) > 0 {
		e.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d staff notes", len(t.Notes))}
	}
	return e
}

func notesEmbed(notes []entities.Note) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(notes))
	for _, n := range notes {
		lines = append(lines, fmt.Sprintf("%s <@%s>: %s", timestamp(n.CreatedAt), n.Author, n.Text))
	}
	return listEmbed("Staff notes", "This ticket has no notes.", lines)
}

func historyEmbed(userID string, closed []*entities.ClosedTicket) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(closed))
	for _, c := range closed {
		line := fmt.Sprintf("**%s #%d** closed %s by <@%s>", c.Ticket.Panel, c.Ticket.Number, timestamp(c.ClosedAt), c.ClosedBy)
		if c.Reason != "" {
			line += ": " + c.Reason
		}
		lines = append(lines, line)
	}
	return listEmbed("Ticket history", fmt.Sprintf("<@%s> has no recently closed tickets.", userID), lines)
}

func panelsEmbed(panels []*entities.Panel) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(panels))
	for _, p := range panels {
		where := "not placed"
		if p.ChannelID != "" {
			where = fmt.Sprintf("<#%s>", p.ChannelID)
		}
		kind := "channels"
		if p.Threads {
			kind = "threads"
		}
		line := fmt.Sprintf("**%s** in %s, %s, %d questions", p.Name, where, kind, len(p.Questions))
		if p.Disabled {
			line += " (disabled)"
		}
		lines = append(lines, line)
	}
	return listEmbed("Panels", "No panels have been created yet.", lines)
}

func blacklistEmbed(entries []*entities.BlacklistEntry) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(entries))
	for _, b := range entries {
		line := fmt.Sprintf("`%s`", b.Subject)
		if b.Reason != "" {
			line += ": " + b.Reason
		}
		if b.Expires != nil {
			line += ", expires " + timestamp(*b.Expires)
		}
		lines = append(lines, line)
	}
	return listEmbed("Blacklist", "Nobody is blacklisted.", lines)
}

func quickRepliesEmbed(replies []*entities.QuickReply) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(replies))
	for _, q := range replies {
		line := fmt.Sprintf("**%s**: %s", q.Name, truncate(q.Content, 80))
		if q.CloseAfter {
			line += " (closes"
			if q.Delay > 0 {
				line += " after " + q.Delay.String()
			}
			line += ")"
		}
		lines = append(lines, line)
	}
	return listEmbed("Quick replies", "No quick replies have been created yet.", lines)
}

func auditLogEmbed(entries []*entities.AuditLogEntry) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s `%s` by <@%s>", timestamp(e.Timestamp), e.Action, e.Actor)
		if e.ContainerID != "" {
			line += fmt.Sprintf(" in <#%s>", e.ContainerID)
		}
		if e.Target != "" {
			line += fmt.Sprintf(" on <@%s>", e.Target)
		}
		if e.Detail != "" {
			line += ": " + e.Detail
		}
		lines = append(lines, line)
	}
	return listEmbed("Audit log", "No matching audit entries.", lines)
}

func preflightEmbed(findings []tickets.Finding) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		scope := "guild"
		if f.Panel != "" {
			scope = f.Panel
		}
		lines = append(lines, fmt.Sprintf("%s **%s**: %s", severityIcon(f.Severity), scope, f.Message))
	}
	return listEmbed("Preflight", "Everything looks good.", lines)
}

func severityIcon(s tickets.Severity) string {
	switch s {
	case tickets.SeverityError:
		return "❌"
	case tickets.SeverityWarning:
		return "⚠️"
	}
	return "ℹ️"
}

func statsEmbed(r *tickets.Report) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: "Ticket statistics",
		Color: embedColour,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Open", Value: fmt.Sprint(r.Open), Inline: true},
			{Name: "Opened", Value: fmt.Sprint(r.Opened), Inline: true},
			{Name: "Closed", Value: fmt.Sprint(r.Closed), Inline: true},
			{Name: "Average time to claim", Value: custom.Duration(r.AverageClaim).String(), Inline: true},
			{Name: "Average time to close", Value: custom.Duration(r.AverageClose).String(), Inline: true},
		},
	}

	status := make([]string, 0, len(r.OpenByStatus))
	for _, s := range []entities.TicketStatus{entities.StatusOpen, entities.StatusClaimed, entities.StatusAwaitingUser, entities.StatusAwaitingStaff} {
		if n := r.OpenByStatus[s]; n > 0 {
			status = append(status, fmt.Sprintf("%s: %d", s, n))
		}
	}
	if len(status) > 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "By status", Value: strings.Join(status, "\n")})
	}

	panels := make([]string, 0, len(r.Panels))
	for _, p := range r.Panels {
		panels = append(panels, fmt.Sprintf("**%s**: %d open, %d opened, %d closed", p.Name, p.Open, p.Opened, p.Closed))
	}
	if len(panels) > 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Panels", Value: truncate(strings.Join(panels, "\n"), 1024)})
	}

	staff := make([]string, 0, len(r.Staff))
	for _, s := range r.Staff {
		staff = append(staff, fmt.Sprintf("<@%s>: %d claims, %d closes", s.ID, s.Claims, s.Closes))
	}
	if len(staff) > 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Staff", Value: truncate(strings.Join(staff, "\n"), 1024)})
	}
	return e
}
