package dataaccess

import (
	"errors"
)

const mongoDatabase = "ticketwolf"

const (
	guildsCollection  = "guilds"
	ticketsCollection = "tickets"
)

// ErrGuildIDRequired is returned when a store operation is given an empty guild ID.
var ErrGuildIDRequired = errors.New("guild id is required")
