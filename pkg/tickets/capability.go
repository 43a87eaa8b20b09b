package tickets

import "github.com/Jacobbrewer1/ticketwolf/pkg/entities"

// Action is something an actor may try to do to a ticket or the guild configuration.
type Action string

const (
	ActionClaim       Action = "claim"
	ActionUnclaim     Action = "unclaim"
	ActionTransfer    Action = "transfer"
	ActionJoin        Action = "join"
	ActionNote        Action = "note"
	ActionClose       Action = "close"
	ActionReopen      Action = "reopen"
	ActionRename      Action = "rename"
	ActionManageUsers Action = "manage_users"
	ActionQuickReply  Action = "quick_reply"
	ActionInfo        Action = "info"
	ActionAdmin       Action = "admin"
)

// IsStaff reports whether the member handles tickets: a guild support role, a panel sub-role, the
// guild owner or an administrator.
func IsStaff(m *Member, g *entities.Guild, p *entities.Panel) bool {
	if m == nil {
		return false
	}
	if m.Owner || m.Admin {
		return true
	}
	if g.IsSupport(m.Roles) {
		return true
	}
	return p != nil && p.HandledBy(m.Roles)
}

// Can decides whether the actor may perform the action. The ticket may be nil for guild-level
// actions. A nil error allows the action.
func Can(m *Member, action Action, g *entities.Guild, t *entities.Ticket) error {
	if m == nil {
		return denied("Unknown actor.")
	}

	var p *entities.Panel
	if t != nil {
		p = g.Panels[t.Panel]
	}
	staff := IsStaff(m, g, p)
	owner := t != nil && t.Owner == m.ID

	switch action {
	case ActionAdmin:
		if m.Admin || m.Owner {
			return nil
		}
		return denied("You must be an administrator to do that.")
	case ActionClaim, ActionUnclaim, ActionJoin, ActionNote, ActionQuickReply:
		if staff {
			return nil
		}
		return denied("Only support staff can %s tickets.", actionVerb(action))
	case ActionTransfer:
		if staff || (t != nil && t.ClaimedBy == m.ID) {
			return nil
		}
		return denied("Only support staff or the claimant can transfer this ticket.")
	case ActionClose:
		if staff || (owner && g.UserCanClose) {
			return nil
		}
		return denied("You are not allowed to close this ticket.")
	case ActionRename:
		if staff || (owner && g.UserCanRename) {
			return nil
		}
		return denied("You are not allowed to rename this ticket.")
	case ActionManageUsers:
		if staff || (owner && g.UserCanManage) {
			return nil
		}
		return denied("You are not allowed to manage the members of this ticket.")
	case ActionReopen, ActionInfo:
		if staff || owner {
			return nil
		}
		return denied("You are not allowed to do that on this ticket.")
	}
	return denied("Unknown action %q.", action)
}

func actionVerb(a Action) string {
	switch a {
	case ActionNote:
		return "add notes to"
	case ActionQuickReply:
		return "send quick replies in"
	}
	return string(a)
}
