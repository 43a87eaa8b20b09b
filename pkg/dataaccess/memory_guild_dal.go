package dataaccess

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
)

const memoryGuildDalName = "memory_guild_dal"

type memoryGuildDal struct {
	l *slog.Logger

	mu     sync.RWMutex
	guilds map[string]*entities.Guild

	locks *guildLocks
}

// NewMemoryGuildDal creates a guild store that keeps documents in process memory. Documents are
// copied in and out so callers never share state with the store.
func NewMemoryGuildDal(l *slog.Logger) GuildDal {
	return &memoryGuildDal{
		l:      l.With(slog.String(logging.KeyDal, memoryGuildDalName)),
		guilds: make(map[string]*entities.Guild),
		locks:  newGuildLocks(),
	}
}

func (m *memoryGuildDal) GetGuildByID(_ context.Context, id string) (*entities.Guild, error) {
	if id == "" {
		return nil, ErrGuildIDRequired
	}

	m.mu.RLock()
	g, ok := m.guilds[id]
	m.mu.RUnlock()
	if !ok {
		return entities.NewGuild(id), nil
	}
	return g.Clone()
}

func (m *memoryGuildDal) SaveGuild(_ context.Context, guild *entities.Guild) error {
	if guild == nil || guild.ID == "" {
		return ErrGuildIDRequired
	}

	guild.SchemaVersion = entities.CurrentSchemaVersion
	c, err := guild.Clone()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.guilds[guild.ID] = c
	m.mu.Unlock()

	m.l.Debug("Saved guild", slog.String(logging.KeyGuild, guild.ID))
	return nil
}

func (m *memoryGuildDal) Atomic(ctx context.Context, id string, fn func(g *entities.Guild) error) error {
	unlock := m.locks.Lock(id)
	defer unlock()

	g, err := m.GetGuildByID(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(g); err != nil {
		return err
	}
	return m.SaveGuild(ctx, g)
}

func (m *memoryGuildDal) GuildIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.guilds))
	for id := range m.guilds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memoryGuildDal) Ping(context.Context) error {
	return nil
}
