package messages

const (
	// ErrUserErrorProcessing is shown when an interaction fails for an unexpected reason.
	ErrUserErrorProcessing = "There was an error processing your request. Please try again later."

	// ErrAdminOnly is shown when a non-administrator uses an administrator command.
	ErrAdminOnly = "You must be an administrator to use this command."

	// ErrGuildOnly is shown when a command is used outside of a guild.
	ErrGuildOnly = "This command can only be used in a server."

	// ErrNotATicket is shown when a ticket command is used outside of a ticket.
	ErrNotATicket = "This command can only be used inside a ticket."

	// ErrFlowExpired is shown when a modal is submitted after its prompt timed out.
	ErrFlowExpired = "This prompt has expired. Please start again."

	// ErrAdapterPermissions is shown when the bot lacks the platform permissions it needs.
	ErrAdapterPermissions = "I don't have permission to do that here. Ask an administrator to run `/tickets preflight`."

	// TicketCreated is the confirmation sent to a user after their ticket is created.
	TicketCreated = "Your ticket has been created: <#%s>"

	// TicketClaimed is posted in a ticket when it is claimed.
	TicketClaimed = "<@%s> has claimed this ticket."

	// TicketUnclaimed is posted in a ticket when it is unclaimed.
	TicketUnclaimed = "<@%s> is no longer handling this ticket."

	// TicketTransferred is posted in a ticket when it is transferred.
	TicketTransferred = "This ticket has been transferred from <@%s> to <@%s>."

	// TicketClosing is posted in a ticket right before it is finalized.
	TicketClosing = "This ticket has been closed by <@%s>."

	// TicketClosingReason is appended to the closing notice when a reason was given.
	TicketClosingReason = "Reason: %s"

	// TicketCloseScheduled is posted when a delayed close is armed.
	TicketCloseScheduled = "This ticket will close in %s. Send a message to cancel."

	// TicketCloseCancelled is posted when a delayed close is cancelled by a new message.
	TicketCloseCancelled = "The scheduled close was cancelled because a new message was sent."

	// TicketReopened is posted in a ticket when it is reopened.
	TicketReopened = "This ticket has been reopened by <@%s>."

	// TicketRenamedFallback is sent to staff when the desired container name was rejected.
	TicketRenamedFallback = "The requested ticket name `%s` was rejected by Discord, a default name was used instead."

	// AutoCloseWarning is the warning sent before an inactivity close.
	AutoCloseWarning = "<@%s>, this ticket will be closed in %s if there is no response."

	// EscalationAlert is the alert sent when an unclaimed ticket waits too long.
	EscalationAlert = "Ticket <#%s> opened by <@%s> has been waiting %d minutes without being claimed."

	// DMTicketClosed is sent to the ticket owner when their ticket is closed.
	DMTicketClosed = "Your ticket `%s` in **%s** has been closed."

	// DMTicketOpened is sent to the ticket owner when their ticket is opened.
	DMTicketOpened = "Your ticket `%s` in **%s** has been opened."

	// UnansweredQuestion is recorded for a questionnaire field that was left empty.
	UnansweredQuestion = "Unanswered"

	// ClosingTicket acknowledges a close request before the ticket is finalized.
	ClosingTicket = "Closing the ticket."

	// CloseScheduled acknowledges a delayed close.
	CloseScheduled = "The ticket will close in %s unless someone sends a message."

	// ClaimedTicket confirms a claim to the member that made it.
	ClaimedTicket = "You have claimed <#%s>."

	// UnclaimedTicket confirms a claim was given up.
	UnclaimedTicket = "You are no longer handling <#%s>."

	// JoinedTicket confirms a staff member was added to a ticket.
	JoinedTicket = "You have been added to <#%s>."

	// ReopenedTicket confirms a ticket was reopened.
	ReopenedTicket = "The ticket has been reopened: <#%s>"
)
