package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
)

const (
	// TicketCmdName is the command for working inside tickets.
	TicketCmdName = "ticket"

	// TicketsCmdName is the command for configuring the ticket system.
	TicketsCmdName = "tickets"

	// maxChoices is the most choices Discord accepts for one option.
	maxChoices = 25
)

// Subcommands of /ticket.
const (
	cmdOpen        = "open"
	cmdClaim       = "claim"
	cmdUnclaim     = "unclaim"
	cmdTransfer    = "transfer"
	cmdClose       = "close"
	cmdCancelClose = "cancelclose"
	cmdNote        = "note"
	cmdNotes       = "notes"
	cmdInfo        = "info"
	cmdHistory     = "history"
	cmdRename      = "rename"
	cmdAdd         = "add"
	cmdRemove      = "remove"
	cmdReopen      = "reopen"
	cmdReply       = "reply"
)

// Subcommand paths of /tickets.
const (
	cmdPanelCreate         = "panel create"
	cmdPanelRemove         = "panel remove"
	cmdPanelList           = "panel list"
	cmdPanelSet            = "panel set"
	cmdPanelQuestionAdd    = "panel question-add"
	cmdPanelQuestionRemove = "panel question-remove"
	cmdPanelWizard         = "panel wizard"
	cmdPanelRebuild        = "panel rebuild"
	cmdSettingsSet         = "settings set"
	cmdSettingsKeys        = "settings keys"
	cmdSettingsRoleAdd     = "settings role-add"
	cmdSettingsRoleRemove  = "settings role-remove"
	cmdBlacklistAdd        = "blacklist add"
	cmdBlacklistRemove     = "blacklist remove"
	cmdBlacklistList       = "blacklist list"
	cmdBlacklistPrune      = "blacklist prune"
	cmdQuickReplyAdd       = "quickreply add"
	cmdQuickReplyRemove    = "quickreply remove"
	cmdQuickReplyList      = "quickreply list"
	cmdQuickReplyWizard    = "quickreply wizard"
	cmdAudit               = "audit"
	cmdExport              = "export"
	cmdImport              = "import"
	cmdPreflight           = "preflight"
	cmdStats               = "stats"
)

var adminPermission int64 = discordgo.PermissionManageServer

var (
	// ticketCmd is the command for controlling tickets.
	ticketCmd = &discordgo.ApplicationCommand{
		Name:        TicketCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This is the command for controlling tickets.",
		Options: []*discordgo.ApplicationCommandOption{
			subcommand(cmdOpen, "Opens a ticket on a panel.",
				stringOption("panel", "The panel to open the ticket on.", true),
			),
			subcommand(cmdClaim, "Claims the ticket this command is used in."),
			subcommand(cmdUnclaim, "Releases your claim on the ticket."),
			subcommand(cmdTransfer, "Transfers the ticket to another staff member.",
				userOption("user", "The staff member to transfer the ticket to.", true),
			),
			subcommand(cmdClose, "Closes the ticket this command is used in.",
				stringOption("reason", "Why the ticket is being closed.", false),
				stringOption("delay", "Close after a delay, e.g. 30m or 2h. A new message cancels it.", false),
				stringOption("summary", "A short summary kept with the ticket.", false),
			),
			subcommand(cmdCancelClose, "Cancels a delayed close."),
			subcommand(cmdNote, "Adds an internal staff note to the ticket.",
				stringOption("text", "The note.", true),
			),
			subcommand(cmdNotes, "Lists the staff notes of the ticket."),
			subcommand(cmdInfo, "Shows information about the ticket."),
			subcommand(cmdHistory, "Lists a user's recently closed tickets.",
				userOption("user", "The user to look up.", true),
				integerOption("limit", "How many tickets to show.", false),
			),
			subcommand(cmdRename, "Renames the ticket.",
				stringOption("name", "The new name.", true),
			),
			subcommand(cmdAdd, "Adds a user to the ticket.",
				userOption("user", "The user to add.", true),
			),
			subcommand(cmdRemove, "Removes a user from the ticket.",
				userOption("user", "The user to remove.", true),
			),
			subcommand(cmdReopen, "Reopens a recently closed ticket.",
				channelOption("ticket", "The closed ticket, defaults to this channel.", false),
			),
			subcommand(cmdReply, "Sends a quick reply into the ticket.",
				stringOption("name", "The quick reply to send.", true),
			),
		},
	}

	// ticketsCmd is the command for configuring the ticket system.
	ticketsCmd = &discordgo.ApplicationCommand{
		Name:                     TicketsCmdName,
		Type:                     discordgo.ChatApplicationCommand,
		Description:              "This is the command for configuring tickets.",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			group("panel", "Manage ticket panels.",
				subcommand("create", "Creates a panel.",
					stringOption("name", "The panel name.", true),
					channelOption("channel", "Where the panel message is posted.", false),
					channelOption("category", "The category ticket channels are created in.", false),
					stringOption("button_text", "The text of the open button.", false),
					boolOption("threads", "Create private threads instead of channels.", false),
				),
				subcommand("remove", "Removes a panel.",
					stringOption("name", "The panel name.", true),
				),
				subcommand("list", "Lists the panels."),
				subcommand("set", "Changes a panel setting.",
					stringOption("name", "The panel name.", true),
					choiceOption("key", "The setting.", true, tickets.PanelSettingKeys()),
					stringOption("value", "The new value.", true),
				),
				subcommand("question-add", "Adds a question to a panel.",
					stringOption("name", "The panel name.", true),
					stringOption("label", "The question.", true),
					choiceOption("style", "The answer style.", false, []string{string(entities.QuestionShort), string(entities.QuestionParagraph)}),
					boolOption("required", "Whether an answer is required.", false),
					stringOption("placeholder", "The placeholder text.", false),
				),
				subcommand("question-remove", "Removes a question from a panel.",
					stringOption("name", "The panel name.", true),
					integerOption("position", "The question number, starting at 1.", true),
				),
				subcommand("wizard", "Builds a panel step by step in this channel."),
				subcommand("rebuild", "Reattaches every panel's controls."),
			),
			group("settings", "Manage guild settings.",
				subcommand("set", "Changes a guild setting.",
					choiceOption("key", "The setting.", true, tickets.GuildSettingKeys()),
					stringOption("value", "The new value.", true),
				),
				subcommand("keys", "Lists every guild setting key."),
				subcommand("role-add", "Adds a support role.",
					roleOption("role", "The role.", true),
				),
				subcommand("role-remove", "Removes a support role.",
					roleOption("role", "The role.", true),
				),
			),
			group("blacklist", "Manage who may not open tickets.",
				subcommand("add", "Blacklists a user or role.",
					mentionableOption("subject", "The user or role.", true),
					stringOption("reason", "Why they are blacklisted.", false),
					stringOption("duration", "How long the blacklist lasts, e.g. 7d. Permanent when empty.", false),
				),
				subcommand("remove", "Removes a user or role from the blacklist.",
					mentionableOption("subject", "The user or role.", true),
				),
				subcommand("list", "Lists the blacklist."),
				subcommand("prune", "Removes expired blacklist entries."),
			),
			group("quickreply", "Manage quick replies.",
				subcommand("add", "Adds or replaces a quick reply.",
					stringOption("name", "The quick reply name.", true),
					stringOption("content", "The reply text.", true),
					stringOption("title", "The embed title.", false),
					boolOption("close_after", "Close the ticket after sending.", false),
					stringOption("delay", "Delay before closing, e.g. 10m.", false),
				),
				subcommand("remove", "Removes a quick reply.",
					stringOption("name", "The quick reply name.", true),
				),
				subcommand("list", "Lists the quick replies."),
				subcommand("wizard", "Builds a quick reply step by step in this channel."),
			),
			subcommand(cmdAudit, "Shows the audit log.",
				choiceOption("action", "Only show this action.", false, auditActions()),
				userOption("actor", "Only show actions by this member.", false),
				stringOption("since", "Only show actions newer than this, e.g. 24h.", false),
				integerOption("limit", "How many entries to show.", false),
			),
			subcommand(cmdExport, "Exports the configuration.",
				choiceOption("format", "The file format.", false, []string{string(tickets.FormatJSON), string(tickets.FormatYAML)}),
			),
			subcommand(cmdImport, "Imports a configuration export.",
				attachmentOption("file", "The exported file.", true),
			),
			subcommand(cmdPreflight, "Checks the configuration and the bot's permissions.",
				stringOption("panel", "Only check this panel.", false),
			),
			subcommand(cmdStats, "Shows ticket statistics."),
		},
	}
)

// commands are registered in every guild the bot joins.
func commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{ticketCmd, ticketsCmd}
}

// registerCommands overwrites the guild's commands with the current definitions.
func registerCommands(ctx context.Context, a IApp, appID, guildID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.Session().ApplicationCommandBulkOverwrite(appID, guildID, commands()); err != nil {
		return fmt.Errorf("error registering commands: %w", err)
	}
	a.Log().Debug("Registered commands", slog.String(logging.KeyGuild, guildID))
	return nil
}

func ticketCmdController(_ IApp, cmd string) (slashProcessor, error) {
	switch cmd {
	case cmdOpen:
		return openTicketCmd, nil
	case cmdClaim:
		return claimTicketCmd, nil
	case cmdUnclaim:
		return unclaimTicketCmd, nil
	case cmdTransfer:
		return transferTicketCmd, nil
	case cmdClose:
		return closeTicketCmd, nil
	case cmdCancelClose:
		return cancelCloseCmd, nil
	case cmdNote:
		return addNoteCmd, nil
	case cmdNotes:
		return notesCmd, nil
	case cmdInfo:
		return infoCmd, nil
	case cmdHistory:
		return historyCmd, nil
	case cmdRename:
		return renameCmd, nil
	case cmdAdd:
		return addUserCmd, nil
	case cmdRemove:
		return removeUserCmd, nil
	case cmdReopen:
		return reopenCmd, nil
	case cmdReply:
		return quickReplyCmd, nil
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}

func ticketsCmdController(_ IApp, cmd string) (slashProcessor, error) {
	switch cmd {
	case cmdPanelCreate:
		return panelCreateCmd, nil
	case cmdPanelRemove:
		return panelRemoveCmd, nil
	case cmdPanelList:
		return panelListCmd, nil
	case cmdPanelSet:
		return panelSetCmd, nil
	case cmdPanelQuestionAdd:
		return questionAddCmd, nil
	case cmdPanelQuestionRemove:
		return questionRemoveCmd, nil
	case cmdPanelWizard:
		return wizardCmd(tickets.WizardPanel), nil
	case cmdPanelRebuild:
		return panelRebuildCmd, nil
	case cmdSettingsSet:
		return settingsSetCmd, nil
	case cmdSettingsKeys:
		return settingsKeysCmd, nil
	case cmdSettingsRoleAdd:
		return supportRoleCmd(true), nil
	case cmdSettingsRoleRemove:
		return supportRoleCmd(false), nil
	case cmdBlacklistAdd:
		return blacklistAddCmd, nil
	case cmdBlacklistRemove:
		return blacklistRemoveCmd, nil
	case cmdBlacklistList:
		return blacklistListCmd, nil
	case cmdBlacklistPrune:
		return blacklistPruneCmd, nil
	case cmdQuickReplyAdd:
		return quickReplyAddCmd, nil
	case cmdQuickReplyRemove:
		return quickReplyRemoveCmd, nil
	case cmdQuickReplyList:
		return quickReplyListCmd, nil
	case cmdQuickReplyWizard:
		return wizardCmd(tickets.WizardQuickReply), nil
	case cmdAudit:
		return auditCmd, nil
	case cmdExport:
		return exportCmd, nil
	case cmdImport:
		return importCmd, nil
	case cmdPreflight:
		return preflightCmd, nil
	case cmdStats:
		return statsCmd, nil
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}

func subcommand(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Description: description,
		Options:     opts,
	}
}

func group(name, description string, subs ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Description: description,
		Options:     subs,
	}
}

func option(t discordgo.ApplicationCommandOptionType, name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Type:        t,
		Description: description,
		Required:    required,
	}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return option(discordgo.ApplicationCommandOptionString, name, description, required)
}

func integerOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return option(discordgo.ApplicationCommandOptionInteger, name, description, required)
}

func boolOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return option(discordgo.ApplicationCommandOptionBoolean, name, description, required)
}

func userOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return option(discordgo.ApplicationCommandOptionUser, name, description, required)
}

func roleOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return option(discordgo.ApplicationCommandOptionRole, name, description, required)
}

func mentionableOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return option(discordgo.ApplicationCommandOptionMentionable, name, description, required)
}

func channelOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return option(discordgo.ApplicationCommandOptionChannel, name, description, required)
}

func attachmentOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return option(discordgo.ApplicationCommandOptionAttachment, name, description, required)
}

// choiceOption is a string option limited to values. Options with more values than Discord
// allows as choices accept free text, which the engine validates.
func choiceOption(name, description string, required bool, values []string) *discordgo.ApplicationCommandOption {
	opt := stringOption(name, description, required)
	if len(values) > maxChoices {
		return opt
	}
	for _, v := range values {
		opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
	}
	return opt
}

func auditActions() []string {
	out := make([]string, 0, len(entities.AuditActions))
	for _, a := range entities.AuditActions {
		out = append(out, string(a))
	}
	return out
}
