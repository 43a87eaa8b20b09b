package dataaccess

import (
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/monitoring"
	"github.com/moby/locker"
)

// guildLocks serialises work per guild. The underlying locker reference counts its entries so it
// does not grow with every guild the bot has ever seen.
type guildLocks struct {
	l *locker.Locker
}

func newGuildLocks() *guildLocks {
	return &guildLocks{l: locker.New()}
}

// Lock locks the guild and returns the function that unlocks it.
func (g *guildLocks) Lock(id string) func() {
	start := time.Now()
	g.l.Lock(id)
	monitoring.GuildLockWait.Observe(time.Since(start).Seconds())

	return func() {
		// Unlock only fails for a name that is not held, which the closure rules out.
		_ = g.l.Unlock(id)
	}
}
