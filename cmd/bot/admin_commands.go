package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const (
	defaultAuditLimit = 20

	// maxImportSize bounds the configuration file downloaded by an import.
	maxImportSize = 1 << 20
)

// requireAdmin resolves the invoking member and checks they may configure the guild.
func requireAdmin(ctx context.Context, a IApp, i *discordgo.InteractionCreate) (*tickets.Member, error) {
	member := interactionMember(ctx, a, i)
	g, err := a.Tickets().Guild(ctx, i.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	if err := tickets.Can(member, tickets.ActionAdmin, g, nil); err != nil {
		return nil, err
	}
	return member, nil
}

func panelName(o options) string {
	return strings.ToLower(o.str("name"))
}

func panelCreateCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	p := &entities.Panel{
		Name:       panelName(opts),
		ChannelID:  opts.str("channel"),
		CategoryID: opts.str("category"),
		ButtonText: opts.str("button_text"),
		Threads:    opts.flag("threads"),
	}

	if err := r.Defer(); err != nil {
		return err
	}
	if err := a.Tickets().RegisterPanel(ctx, i.GuildID, interactionMember(ctx, a, i), p); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("Panel `%s` has been created. Run `/tickets preflight` to check it.", p.Name))
}

func panelRemoveCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	name := panelName(commandOptions(i))
	if err := r.Defer(); err != nil {
		return err
	}
	if err := a.Tickets().RemovePanel(ctx, i.GuildID, interactionMember(ctx, a, i), name); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("Panel `%s` has been removed.", name))
}

func panelListCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if _, err := requireAdmin(ctx, a, i); err != nil {
		return err
	}
	panels, err := a.Tickets().Panels(ctx, i.GuildID)
	if err != nil {
		return err
	}
	return r.Embed(panelsEmbed(panels))
}

func panelSetCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	name, key := panelName(opts), opts.str("key")

	if err := r.Defer(); err != nil {
		return err
	}
	if err := a.Tickets().SetPanelSetting(ctx, i.GuildID, interactionMember(ctx, a, i), name, key, opts.str("value")); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("Panel `%s` setting `%s` has been updated.", name, key))
}

func questionAddCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	q := entities.Question{
		Label:       opts.str("label"),
		Style:       entities.QuestionStyle(opts.str("style")),
		Required:    opts.flag("required"),
		Placeholder: opts.str("placeholder"),
	}
	if q.Style == "" {
		q.Style = entities.QuestionShort
	}

	if err := a.Tickets().AddQuestion(ctx, i.GuildID, interactionMember(ctx, a, i), panelName(opts), q); err != nil {
		return err
	}
	return r.Ephemeral("The question has been added.")
}

func questionRemoveCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	if err := a.Tickets().RemoveQuestion(ctx, i.GuildID, interactionMember(ctx, a, i), panelName(opts), opts.integer("position", 0)); err != nil {
		return err
	}
	return r.Ephemeral("The question has been removed.")
}

func panelRebuildCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if _, err := requireAdmin(ctx, a, i); err != nil {
		return err
	}
	if err := r.Defer(); err != nil {
		return err
	}
	n, err := a.Tickets().RebuildControls(ctx, i.GuildID)
	if err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("Controls were attached to %d panel messages.", n))
}

// wizardCmd starts a wizard in the invoking channel. Answers arrive as messages.
func wizardCmd(kind tickets.WizardKind) slashProcessor {
	return func(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
		if _, err := requireAdmin(ctx, a, i); err != nil {
			return err
		}
		reply, err := a.Tickets().Wizards().Start(kind, i.GuildID, i.ChannelID, i.Member.User.ID)
		if err != nil {
			return err
		}
		return r.Ephemeral(reply.Prompt)
	}
}

func settingsSetCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	key := opts.str("key")
	if err := a.Tickets().SetGuildSetting(ctx, i.GuildID, interactionMember(ctx, a, i), key, opts.str("value")); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("Setting `%s` has been updated.", key))
}

func settingsKeysCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if _, err := requireAdmin(ctx, a, i); err != nil {
		return err
	}
	lines := make([]string, 0)
	for _, k := range tickets.GuildSettingKeys() {
		lines = append(lines, "`"+k+"`")
	}
	return r.Embed(listEmbed("Guild settings", "", lines))
}

func supportRoleCmd(add bool) slashProcessor {
	return func(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
		roleID := commandOptions(i).str("role")
		member := interactionMember(ctx, a, i)
		if add {
			if err := a.Tickets().AddSupportRole(ctx, i.GuildID, member, roleID); err != nil {
				return err
			}
			return r.Ephemeral(fmt.Sprintf("<@&%s> is now a support role.", roleID))
		}
		if err := a.Tickets().RemoveSupportRole(ctx, i.GuildID, member, roleID); err != nil {
			return err
		}
		return r.Ephemeral(fmt.Sprintf("<@&%s> is no longer a support role.", roleID))
	}
}

func blacklistAddCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	subject := opts.str("subject")

	var expires *time.Time
	if s := opts.str("duration"); s != "" {
		d, err := parseDelay(s)
		if err != nil {
			return err
		}
		t := time.Now().UTC().Add(d.Std())
		expires = &t
	}

	if _, err := a.Tickets().AddBlacklist(ctx, i.GuildID, interactionMember(ctx, a, i), subject, opts.str("reason"), expires); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("`%s` has been blacklisted.", subject))
}

func blacklistRemoveCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	subject := commandOptions(i).str("subject")
	if err := a.Tickets().RemoveBlacklist(ctx, i.GuildID, interactionMember(ctx, a, i), subject); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("`%s` has been removed from the blacklist.", subject))
}

func blacklistListCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if _, err := requireAdmin(ctx, a, i); err != nil {
		return err
	}
	entries, err := a.Tickets().ListBlacklist(ctx, i.GuildID)
	if err != nil {
		return err
	}
	return r.Embed(blacklistEmbed(entries))
}

func blacklistPruneCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	n, err := a.Tickets().PruneBlacklist(ctx, i.GuildID, interactionMember(ctx, a, i))
	if err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("Removed %d expired blacklist entries.", n))
}

func quickReplyAddCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	delay, err := parseDelay(opts.str("delay"))
	if err != nil {
		return err
	}

	q := &entities.QuickReply{
		Name:       opts.str("name"),
		Title:      opts.str("title"),
		Content:    opts.str("content"),
		CloseAfter: opts.flag("close_after"),
		Delay:      delay,
	}
	if err := a.Tickets().AddQuickReply(ctx, i.GuildID, interactionMember(ctx, a, i), q); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("Quick reply `%s` has been saved.", q.Name))
}

func quickReplyRemoveCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	name := strings.ToLower(commandOptions(i).str("name"))
	if err := a.Tickets().RemoveQuickReply(ctx, i.GuildID, interactionMember(ctx, a, i), name); err != nil {
		return err
	}
	return r.Ephemeral(fmt.Sprintf("Quick reply `%s` has been removed.", name))
}

func quickReplyListCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	replies, err := a.Tickets().ListQuickReplies(ctx, i.GuildID)
	if err != nil {
		return err
	}
	return r.Embed(quickRepliesEmbed(replies))
}

func auditCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	opts := commandOptions(i)
	f := tickets.AuditFilter{
		Action: entities.AuditAction(opts.str("action")),
		Actor:  opts.str("actor"),
		Limit:  opts.integer("limit", defaultAuditLimit),
	}
	if s := opts.str("since"); s != "" {
		d, err := parseDelay(s)
		if err != nil {
			return err
		}
		f.Since = time.Now().UTC().Add(-d.Std())
	}

	entries, err := a.Tickets().AuditLog(ctx, i.GuildID, interactionMember(ctx, a, i), f)
	if err != nil {
		return err
	}
	return r.Embed(auditLogEmbed(entries))
}

func exportCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if _, err := requireAdmin(ctx, a, i); err != nil {
		return err
	}
	format, err := tickets.ParseFormat(commandOptions(i).str("format"))
	if err != nil {
		return err
	}

	data, err := a.Tickets().Export(ctx, i.GuildID, format)
	if err != nil {
		return err
	}

	contentType := "application/json"
	if format == tickets.FormatYAML {
		contentType = "application/yaml"
	}
	return r.File("Here is the configuration export.", fmt.Sprintf("tickets-%s.%s", i.GuildID, format), contentType, data)
}

func importCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	member, err := requireAdmin(ctx, a, i)
	if err != nil {
		return err
	}

	data := i.ApplicationCommandData()
	id := commandOptions(i).str("file")
	if data.Resolved == nil || data.Resolved.Attachments[id] == nil {
		return &tickets.Error{Kind: tickets.KindInvalid, Message: "Attach an exported configuration file."}
	}
	attachment := data.Resolved.Attachments[id]

	format, err := tickets.ParseFormat(strings.TrimPrefix(path.Ext(attachment.Filename), "."))
	if err != nil {
		return err
	}

	if err := r.Defer(); err != nil {
		return err
	}
	body, err := download(ctx, a.Session().Client, attachment.URL)
	if err != nil {
		return err
	}
	if err := a.Tickets().Import(ctx, i.GuildID, member, format, body); err != nil {
		return err
	}

	if _, err := a.Tickets().RebuildControls(ctx, i.GuildID); err != nil {
		return err
	}
	return r.Ephemeral("The configuration has been imported.")
}

// download fetches an attachment, refusing files larger than maxImportSize.
func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading attachment: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading attachment: %w", err)
	}
	if len(body) > maxImportSize {
		return nil, &tickets.Error{Kind: tickets.KindInvalid, Message: "The file is too large to import.", Err: errors.New("attachment too large")}
	}
	return body, nil
}

func preflightCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if err := r.Defer(); err != nil {
		return err
	}
	findings, err := a.Tickets().Preflight(ctx, i.GuildID, interactionMember(ctx, a, i), strings.ToLower(commandOptions(i).str("panel")))
	if err != nil {
		return err
	}
	return r.Embed(preflightEmbed(findings))
}

func statsCmd(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error {
	if _, err := requireAdmin(ctx, a, i); err != nil {
		return err
	}
	report, err := a.Tickets().Stats(ctx, i.GuildID)
	if err != nil {
		return err
	}
	return r.Embed(statsEmbed(report))
}
