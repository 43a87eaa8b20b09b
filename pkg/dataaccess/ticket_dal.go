package dataaccess

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketDalName = "ticket_dal"

// TicketDal archives closed tickets for history lookups. Active tickets live in the guild document.
type TicketDal interface {
	// ArchiveTicket stores a closed ticket.
	ArchiveTicket(ctx context.Context, guildID string, closed *entities.ClosedTicket) error

	// ClosedTickets returns a user's closed tickets, newest first.
	ClosedTickets(ctx context.Context, guildID, ownerID string, limit int) ([]*entities.ClosedTicket, error)
}

// archivedTicket is the document stored in the tickets collection.
type archivedTicket struct {
	GuildID string                 `bson:"guild_id"`
	Owner   string                 `bson:"owner"`
	Closed  *entities.ClosedTicket `bson:"closed"`
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket archive backed by MongoDB.
func NewTicketDal(l *slog.Logger, client *mongo.Client) TicketDal {
	l = l.With(slog.String(logging.KeyDal, ticketDalName))

	if client == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &ticketDal{
		l:      l,
		client: client,
	}
}

func (d *ticketDal) ArchiveTicket(ctx context.Context, guildID string, closed *entities.ClosedTicket) error {
	collection := d.client.Database(mongoDatabase).Collection(ticketsCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "archive_ticket", mongoDatabase, ticketsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "archive_ticket", mongoDatabase, ticketsCollection))
	defer t.ObserveDuration()

	filter := bson.M{"guild_id": guildID, "closed.ticket.container_id": closed.Ticket.ContainerID}
	doc := archivedTicket{GuildID: guildID, Owner: closed.Ticket.Owner, Closed: closed}
	if _, err := collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("error archiving ticket: %w", err)
	}
	return nil
}

func (d *ticketDal) ClosedTickets(ctx context.Context, guildID, ownerID string, limit int) ([]*entities.ClosedTicket, error) {
	collection := d.client.Database(mongoDatabase).Collection(ticketsCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "closed_tickets", mongoDatabase, ticketsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "closed_tickets", mongoDatabase, ticketsCollection))
	defer t.ObserveDuration()

	// Set the options to get the latest tickets first.
	opts := options.Find().SetSort(bson.M{"closed.closed_at": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := collection.Find(ctx, bson.M{"guild_id": guildID, "owner": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding tickets: %w", err)
	}

	var docs []archivedTicket
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding tickets: %w", err)
	}

	out := make([]*entities.ClosedTicket, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Closed)
	}
	return out, nil
}

type memoryTicketDal struct {
	mu      sync.Mutex
	tickets map[string][]*entities.ClosedTicket
}

// NewMemoryTicketDal creates a ticket archive kept in process memory.
func NewMemoryTicketDal() TicketDal {
	return &memoryTicketDal{tickets: make(map[string][]*entities.ClosedTicket)}
}

func (m *memoryTicketDal) ArchiveTicket(_ context.Context, guildID string, closed *entities.ClosedTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[guildID] = append(m.tickets[guildID], closed)
	return nil
}

func (m *memoryTicketDal) ClosedTickets(_ context.Context, guildID, ownerID string, limit int) ([]*entities.ClosedTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entities.ClosedTicket
	all := m.tickets[guildID]
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Ticket.Owner != ownerID {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
