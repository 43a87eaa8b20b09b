package entities

import "time"

// AuditAction is the kind of an audit entry.
type AuditAction string

const (
	AuditOpen            AuditAction = "open"
	AuditClose           AuditAction = "close"
	AuditReopen          AuditAction = "reopen"
	AuditRename          AuditAction = "rename"
	AuditAddUser         AuditAction = "add_user"
	AuditRemoveUser      AuditAction = "remove_user"
	AuditClaim           AuditAction = "claim"
	AuditUnclaim         AuditAction = "unclaim"
	AuditTransfer        AuditAction = "transfer"
	AuditEscalate        AuditAction = "escalate"
	AuditConfigChange    AuditAction = "config_change"
	AuditBlacklistAdd    AuditAction = "blacklist_add"
	AuditBlacklistRemove AuditAction = "blacklist_remove"
	AuditNoteAdd         AuditAction = "note_add"
)

// AuditActions lists every action in a stable order.
var AuditActions = []AuditAction{
	AuditOpen, AuditClose, AuditReopen, AuditRename, AuditAddUser, AuditRemoveUser, AuditClaim,
	AuditUnclaim, AuditTransfer, AuditEscalate, AuditConfigChange, AuditBlacklistAdd,
	AuditBlacklistRemove, AuditNoteAdd,
}

// Valid reports whether the action is a known one.
func (a AuditAction) Valid() bool {
	for _, v := range AuditActions {
		if v == a {
			return true
		}
	}
	return false
}

// AuditLogEntry is one append-only audit record.
type AuditLogEntry struct {
	ID          string      `json:"id" bson:"id"`
	Action      AuditAction `json:"action" bson:"action"`
	Actor       string      `json:"actor" bson:"actor"`
	Target      string      `json:"target,omitempty" bson:"target"`
	ContainerID string      `json:"container_id,omitempty" bson:"container_id"`
	Panel       string      `json:"panel,omitempty" bson:"panel"`
	Detail      string      `json:"detail,omitempty" bson:"detail"`
	Timestamp   time.Time   `json:"timestamp" bson:"timestamp"`
}
