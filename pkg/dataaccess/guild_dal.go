package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const guildDalName = "guild_dal"

// GuildDal is the persistent store for guild ticket documents.
type GuildDal interface {
	// GetGuildByID gets a guild by ID. A guild that has never been saved is returned with defaults.
	GetGuildByID(ctx context.Context, id string) (*entities.Guild, error)

	// SaveGuild saves a guild without taking the guild lock. Prefer Atomic for mutations.
	SaveGuild(ctx context.Context, guild *entities.Guild) error

	// Atomic runs fn on a fresh copy of the guild while holding the guild's lock and saves the
	// result. Nothing is saved when fn returns an error.
	Atomic(ctx context.Context, id string, fn func(g *entities.Guild) error) error

	// GuildIDs lists every stored guild.
	GuildIDs(ctx context.Context) ([]string, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}

type guildDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client

	// locks serialises read-modify-write cycles per guild.
	locks *guildLocks
}

// NewGuildDal creates a new guild data access layer backed by MongoDB.
func NewGuildDal(l *slog.Logger, client *mongo.Client) GuildDal {
	l = l.With(slog.String(logging.KeyDal, guildDalName))

	if client == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &guildDalImpl{
		l:      l,
		client: client,
		locks:  newGuildLocks(),
	}
}

func (g *guildDalImpl) collection() *mongo.Collection {
	return g.client.Database(mongoDatabase).Collection(guildsCollection)
}

func (g *guildDalImpl) SaveGuild(ctx context.Context, guild *entities.Guild) error {
	if guild == nil || guild.ID == "" {
		return ErrGuildIDRequired
	}

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(guildDalName, "save_guild", mongoDatabase, guildsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildDalName, "save_guild", mongoDatabase, guildsCollection))
	defer t.ObserveDuration()

	guild.SchemaVersion = entities.CurrentSchemaVersion

	// Save the guild.
	opts := options.Replace().SetUpsert(true)
	_, err := g.collection().ReplaceOne(ctx, bson.M{"id": guild.ID}, guild, opts)
	if err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}
	return nil
}

// GetGuildByID gets a guild by ID.
func (g *guildDalImpl) GetGuildByID(ctx context.Context, id string) (*entities.Guild, error) {
	if id == "" {
		return nil, ErrGuildIDRequired
	}

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(guildDalName, "get_guild_by_id", mongoDatabase, guildsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildDalName, "get_guild_by_id", mongoDatabase, guildsCollection))
	defer t.ObserveDuration()

	guild := new(entities.Guild)
	err := g.collection().FindOne(ctx, bson.M{"id": id}).Decode(guild)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entities.NewGuild(id), nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}

	if err := entities.Migrate(guild); err != nil {
		return nil, fmt.Errorf("error migrating guild %s: %w", id, err)
	}
	return guild, nil
}

func (g *guildDalImpl) Atomic(ctx context.Context, id string, fn func(g *entities.Guild) error) error {
	unlock := g.locks.Lock(id)
	defer unlock()

	guild, err := g.GetGuildByID(ctx, id)
	if err != nil {
		return err
	}

	if err := fn(guild); err != nil {
		return err
	}

	return g.SaveGuild(ctx, guild)
}

func (g *guildDalImpl) GuildIDs(ctx context.Context) ([]string, error) {
	monitoring.MongoTotalRequests.WithLabelValues(guildDalName, "guild_ids", mongoDatabase, guildsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(guildDalName, "guild_ids", mongoDatabase, guildsCollection))
	defer t.ObserveDuration()

	raw, err := g.collection().Distinct(ctx, "id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error listing guilds: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (g *guildDalImpl) Ping(ctx context.Context) error {
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues("health_check", "ping", "-", "-"))
	defer t.ObserveDuration()
	monitoring.MongoTotalRequests.WithLabelValues("health_check", "ping", "-", "-").Inc()

	if err := g.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return nil
}
