package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/cmd/bot/config"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/connection"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store holds the guild store and ticket archive.
type Store struct {
	Guilds  dataaccess.GuildDal
	Tickets dataaccess.TicketDal
}

// NewStore connects to the configured storage backend. The returned cleanup disconnects it.
func NewStore(l *slog.Logger, cfg *config.Config) (*Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		l.Warn("Using in-memory storage, guild configuration will not survive a restart")
		return &Store{
			Guilds:  dataaccess.NewMemoryGuildDal(l),
			Tickets: dataaccess.NewMemoryTicketDal(),
		}, func() {}, nil
	}

	mongoConn := new(connection.MongoDB)
	mongoConn.ConnectionString = cfg.MongoUri

	client, err := mongoConn.Connect(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to mongo: %w", err)
	} else if client == nil {
		return nil, nil, fmt.Errorf("mongo client came back nil")
	}
	l.Debug("Connected to MongoDB", slog.String("key", config.EnvMongoUri))

	cleanup := func() {
		disconnectMongo(l, client)
	}
	return &Store{
		Guilds:  dataaccess.NewGuildDal(l, client),
		Tickets: dataaccess.NewTicketDal(l, client),
	}, cleanup, nil
}

func disconnectMongo(l *slog.Logger, client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		l.Error("Error disconnecting from mongo", slog.String(logging.KeyError, err.Error()))
	}
}
