package entities

import "github.com/Jacobbrewer1/ticketwolf/pkg/custom"

// QuickReply is a named response template staff can send into a ticket.
type QuickReply struct {
	Name    string `json:"name" bson:"name" yaml:"name"`
	Title   string `json:"title" bson:"title" yaml:"title"`
	Content string `json:"content" bson:"content" yaml:"content"`

	// CloseAfter closes the ticket once the reply has been sent.
	CloseAfter bool `json:"close_after" bson:"close_after" yaml:"close_after"`

	// Delay postpones the close. A message in the ticket during the delay cancels it.
	Delay custom.Duration `json:"delay" bson:"delay" yaml:"delay"`
}
