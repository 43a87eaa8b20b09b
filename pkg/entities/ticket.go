package entities

import (
	"time"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusOpen          TicketStatus = "open"
	StatusClaimed       TicketStatus = "claimed"
	StatusAwaitingUser  TicketStatus = "awaiting_user"
	StatusAwaitingStaff TicketStatus = "awaiting_staff"
	StatusClosed        TicketStatus = "closed"
)

// Claimable reports whether a status may carry a claimant.
func (s TicketStatus) Claimable() bool {
	switch s {
	case StatusClaimed, StatusAwaitingUser, StatusAwaitingStaff:
		return true
	}
	return false
}

// Ticket is one active support conversation.
type Ticket struct {
	// Owner is the ID of the user that opened the ticket.
	Owner string `json:"owner" bson:"owner"`

	// Panel is the name of the panel the ticket was opened on.
	Panel string `json:"panel" bson:"panel"`

	// Number is the panel sequence number allocated to the ticket.
	Number int `json:"number" bson:"number"`

	// ContainerID is the channel or thread holding the conversation.
	ContainerID string `json:"container_id" bson:"container_id"`

	// Thread is true when the container is a thread.
	Thread bool `json:"thread" bson:"thread"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// Answers are the questionnaire answers in question order.
	Answers []Answer `json:"answers" bson:"answers"`

	Status TicketStatus `json:"status" bson:"status"`

	ClaimedBy string     `json:"claimed_by" bson:"claimed_by"`
	ClaimedAt *time.Time `json:"claimed_at" bson:"claimed_at"`

	// FirstClaimedAt is kept across unclaims for claim latency statistics.
	FirstClaimedAt *time.Time `json:"first_claimed_at" bson:"first_claimed_at"`

	// TransferredFrom is the previous claimant after a transfer.
	TransferredFrom string `json:"transferred_from" bson:"transferred_from"`

	LastUserMessage  *time.Time `json:"last_user_message" bson:"last_user_message"`
	LastStaffMessage *time.Time `json:"last_staff_message" bson:"last_staff_message"`

	// AutoCloseWarnings counts smart auto-close warnings since the owner last spoke.
	AutoCloseWarnings int `json:"auto_close_warnings" bson:"auto_close_warnings"`

	// LegacyWarnedAt is when the legacy inactivity warning was sent.
	LegacyWarnedAt *time.Time `json:"legacy_warned_at" bson:"legacy_warned_at"`

	Escalated       bool `json:"escalated" bson:"escalated"`
	EscalationLevel int  `json:"escalation_level" bson:"escalation_level"`

	// Joined are staff that joined through the log control.
	Joined []string `json:"joined" bson:"joined"`

	// LogMessageID is the log embed posted for the ticket.
	LogMessageID string `json:"log_message_id" bson:"log_message_id"`

	Notes []Note `json:"notes" bson:"notes"`

	// Summary is an optional closure summary.
	Summary string `json:"summary" bson:"summary"`
}

// Answer is one questionnaire answer.
type Answer struct {
	Question string `json:"question" bson:"question"`
	Value    string `json:"value" bson:"value"`
}

// Note is an internal staff note. Notes are never edited.
type Note struct {
	Author    string    `json:"author" bson:"author"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ClosedTicket is a recently closed ticket kept for the reopen window.
type ClosedTicket struct {
	Ticket   *Ticket   `json:"ticket" bson:"ticket"`
	ClosedAt time.Time `json:"closed_at" bson:"closed_at"`
	ClosedBy string    `json:"closed_by" bson:"closed_by"`
	Reason   string    `json:"reason" bson:"reason"`
}

// OwnerSpokeLast reports whether the owner's last message is newer than staff's last message.
// A ticket nobody has written in yet reports false.
func (t *Ticket) OwnerSpokeLast() bool {
	if t.LastUserMessage == nil {
		return false
	}
	return t.LastStaffMessage == nil || t.LastUserMessage.After(*t.LastStaffMessage)
}

// StaffSpokeLast reports whether staff's last message is newer than the owner's last message.
func (t *Ticket) StaffSpokeLast() bool {
	if t.LastStaffMessage == nil {
		return false
	}
	return t.LastUserMessage == nil || t.LastStaffMessage.After(*t.LastUserMessage)
}

// WaitingSince is the later of the owner's last message and the open time.
func (t *Ticket) WaitingSince() time.Time {
	if t.LastUserMessage != nil && t.LastUserMessage.After(t.CreatedAt) {
		return *t.LastUserMessage
	}
	return t.CreatedAt
}

// HasJoined reports whether a staff member joined through the log control.
func (t *Ticket) HasJoined(userID string) bool {
	for _, id := range t.Joined {
		if id == userID {
			return true
		}
	}
	return false
}
