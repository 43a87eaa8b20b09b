package tickets

import (
	"strings"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
)

const customIDPrefix = "tickets"

// Control actions encoded in custom IDs.
const (
	ControlOpen   = "open"
	ControlClose  = "close"
	ControlClaim  = "claim"
	ControlJoin   = "join"
	ControlReopen = "reopen"
	ControlModal  = "modal"
)

// CustomID builds the custom ID of a ticket control, e.g. "tickets:open:support".
func CustomID(action, arg string) string {
	if arg == "" {
		return customIDPrefix + ":" + action
	}
	return customIDPrefix + ":" + action + ":" + arg
}

// ParseCustomID splits a custom ID built by CustomID. ok is false for IDs that do not belong to
// the ticket engine.
func ParseCustomID(id string) (action, arg string, ok bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) < 2 || parts[0] != customIDPrefix {
		return "", "", false
	}
	if len(parts) == 3 {
		arg = parts[2]
	}
	return parts[1], arg, true
}

// ticketControls are attached to the welcome message of every ticket.
func ticketControls() [][]Control {
	return [][]Control{{
		{CustomID: CustomID(ControlClose, ""), Label: "Close", Style: entities.ButtonDanger, Emoji: "🔒"},
		{CustomID: CustomID(ControlClaim, ""), Label: "Claim", Style: entities.ButtonSuccess, Emoji: "🙋"},
	}}
}

func joinControls(containerID string, disabled bool) [][]Control {
	return [][]Control{{
		{CustomID: CustomID(ControlJoin, containerID), Label: "Join Ticket", Style: entities.ButtonPrimary, Disabled: disabled},
	}}
}

func reopenControls(containerID string) [][]Control {
	return [][]Control{{
		{CustomID: CustomID(ControlReopen, containerID), Label: "Reopen", Style: entities.ButtonSecondary, Emoji: "🔓"},
	}}
}
