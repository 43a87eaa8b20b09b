package entities

import "time"

// BlacklistEntry bans a user or role from opening tickets.
type BlacklistEntry struct {
	// Subject is the user or role ID.
	Subject  string     `json:"subject" bson:"subject" yaml:"subject"`
	Reason   string     `json:"reason" bson:"reason" yaml:"reason"`
	IssuedBy string     `json:"issued_by" bson:"issued_by" yaml:"issued_by"`
	IssuedAt time.Time  `json:"issued_at" bson:"issued_at" yaml:"issued_at"`
	Expires  *time.Time `json:"expires_at" bson:"expires_at" yaml:"expires_at"`
}

// Active reports whether the entry is in force. An entry without expiry is permanent.
func (b *BlacklistEntry) Active(now time.Time) bool {
	return b.Expires == nil || now.Before(*b.Expires)
}
