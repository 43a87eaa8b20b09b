package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryGuildDal_GetDefaults(t *testing.T) {
	d := NewMemoryGuildDal(testLogger())

	g, err := d.GetGuildByID(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, "g1", g.ID)
	require.Equal(t, 1, g.MaxTickets)
	require.NotNil(t, g.Panels)

	_, err = d.GetGuildByID(context.Background(), "")
	require.ErrorIs(t, err, ErrGuildIDRequired)
}

func TestMemoryGuildDal_AtomicRollback(t *testing.T) {
	d := NewMemoryGuildDal(testLogger())
	ctx := context.Background()

	require.NoError(t, d.Atomic(ctx, "g1", func(g *entities.Guild) error {
		g.MaxTickets = 3
		return nil
	}))

	boom := errors.New("boom")
	err := d.Atomic(ctx, "g1", func(g *entities.Guild) error {
		g.MaxTickets = 10
		return boom
	})
	require.ErrorIs(t, err, boom)

	g, err := d.GetGuildByID(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, 3, g.MaxTickets)
}

func TestMemoryGuildDal_AtomicSerialises(t *testing.T) {
	d := NewMemoryGuildDal(testLogger())
	ctx := context.Background()

	require.NoError(t, d.Atomic(ctx, "g1", func(g *entities.Guild) error {
		g.Panels["support"] = &entities.Panel{Name: "support"}
		return nil
	}))

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			require.NoError(t, d.Atomic(ctx, "g1", func(g *entities.Guild) error {
				g.Panels["support"].TicketNum++
				return nil
			}))
		}()
	}
	wg.Wait()

	g, err := d.GetGuildByID(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, 1+workers, g.Panels["support"].TicketNum)
}

func TestMemoryGuildDal_GuildIDs(t *testing.T) {
	d := NewMemoryGuildDal(testLogger())
	ctx := context.Background()

	for i := 3; i > 0; i-- {
		require.NoError(t, d.SaveGuild(ctx, entities.NewGuild(fmt.Sprintf("g%d", i))))
	}

	ids, err := d.GuildIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"g1", "g2", "g3"}, ids)
}

func TestMemoryTicketDal(t *testing.T) {
	d := NewMemoryTicketDal()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, d.ArchiveTicket(ctx, "g1", &entities.ClosedTicket{
			Ticket: &entities.Ticket{Owner: "u1", ContainerID: fmt.Sprintf("c%d", i)},
		}))
	}
	require.NoError(t, d.ArchiveTicket(ctx, "g1", &entities.ClosedTicket{
		Ticket: &entities.Ticket{Owner: "u2", ContainerID: "c9"},
	}))

	got, err := d.ClosedTickets(ctx, "g1", "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "c3", got[0].Ticket.ContainerID)
	require.Equal(t, "c2", got[1].Ticket.ContainerID)
}

func TestGuildLocks(t *testing.T) {
	k := newGuildLocks()

	unlockA := k.Lock("a")

	// Other guilds are not held up by a.
	unlockB := k.Lock("b")
	unlockB()

	acquired := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("guild a was locked twice")
	default:
	}

	unlockA()
	<-acquired

	// The entry is released, so the guild can be locked again.
	k.Lock("a")()
}
