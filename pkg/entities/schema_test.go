package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	tests := []struct {
		name    string
		in      *Guild
		wantErr error
		check   func(t *testing.T, g *Guild)
	}{
		{
			name: "legacy document",
			in: &Guild{
				ID:        "g1",
				Blacklist: []string{"u1"},
				Panels:    map[string]*Panel{"support": {}},
			},
			check: func(t *testing.T, g *Guild) {
				require.Equal(t, CurrentSchemaVersion, g.SchemaVersion)
				require.Empty(t, g.Blacklist)
				require.Contains(t, g.BlacklistAdvanced, "u1")
				require.Nil(t, g.BlacklistAdvanced["u1"].Expires)
				require.Equal(t, 1, g.Panels["support"].TicketNum)
				require.Equal(t, "support", g.Panels["support"].Name)
				require.Equal(t, 1, g.MaxTickets)
				require.NotNil(t, g.Opened)
			},
		},
		{
			name: "current document untouched",
			in: &Guild{
				ID:            "g1",
				SchemaVersion: CurrentSchemaVersion,
				MaxTickets:    3,
				Panels:        map[string]*Panel{"support": {TicketNum: 7}},
			},
			check: func(t *testing.T, g *Guild) {
				require.Equal(t, 3, g.MaxTickets)
				require.Equal(t, 7, g.Panels["support"].TicketNum)
			},
		},
		{
			name:    "newer document rejected",
			in:      &Guild{ID: "g1", SchemaVersion: CurrentSchemaVersion + 1},
			wantErr: ErrSchemaTooNew,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Migrate(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, tt.in)
		})
	}
}

func TestGuild_Clone(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewGuild("g1")
	g.Panels["support"] = &Panel{Name: "support", TicketNum: 4}
	g.AddTicket(&Ticket{Owner: "u1", ContainerID: "c1", Panel: "support", CreatedAt: now, Status: StatusOpen})

	c, err := g.Clone()
	require.NoError(t, err)

	c.Panels["support"].TicketNum = 9
	c.Opened["u1"]["c1"].Status = StatusClaimed

	require.Equal(t, 4, g.Panels["support"].TicketNum)
	require.Equal(t, StatusOpen, g.Opened["u1"]["c1"].Status)
	require.True(t, now.Equal(c.Opened["u1"]["c1"].CreatedAt))
}

func TestGuild_TicketIndex(t *testing.T) {
	g := NewGuild("g1")
	g.AddTicket(&Ticket{Owner: "u1", ContainerID: "c1", Panel: "support"})
	g.AddTicket(&Ticket{Owner: "u1", ContainerID: "c2", Panel: "billing"})
	g.AddTicket(&Ticket{Owner: "u2", ContainerID: "c3", Panel: "support"})

	tk, ok := g.TicketByContainer("c3")
	require.True(t, ok)
	require.Equal(t, "u2", tk.Owner)

	require.Len(t, g.UserTickets("u1"), 2)
	require.Equal(t, 2, g.PanelTickets("support"))

	_, ok = g.RemoveTicket("c3")
	require.True(t, ok)
	require.NotContains(t, g.Opened, "u2")
	_, ok = g.RemoveTicket("c3")
	require.False(t, ok)
}

func TestGuild_TicketIndexSources(t *testing.T) {
	tests := []struct {
		name  string
		guild func() *Guild
	}{
		{
			name: "decoded document",
			guild: func() *Guild {
				g := NewGuild("g1")
				g.AddTicket(&Ticket{Owner: "u1", ContainerID: "c1"})
				c, err := g.Clone()
				require.NoError(t, err)
				return c
			},
		},
		{
			name: "literal without defaults",
			guild: func() *Guild {
				return &Guild{Opened: map[string]map[string]*Ticket{"u1": {"c1": {Owner: "u1", ContainerID: "c1"}}}}
			},
		},
		{
			name: "edited then defaulted",
			guild: func() *Guild {
				g := NewGuild("g1")
				g.Opened["u1"] = map[string]*Ticket{"c1": {Owner: "u1", ContainerID: "c1"}}
				g.ApplyDefaults()
				return g
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.guild()

			tk, ok := g.TicketByContainer("c1")
			require.True(t, ok)
			require.Equal(t, "u1", tk.Owner)
			_, ok = g.TicketByContainer("c2")
			require.False(t, ok)

			_, ok = g.RemoveTicket("c1")
			require.True(t, ok)
			_, ok = g.TicketByContainer("c1")
			require.False(t, ok)
			require.Empty(t, g.Opened)
		})
	}
}

func TestBlacklistEntry_Active(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	require.True(t, (&BlacklistEntry{}).Active(now))
	require.True(t, (&BlacklistEntry{Expires: &future}).Active(now))
	require.False(t, (&BlacklistEntry{Expires: &past}).Active(now))
}

func TestTicket_Speakers(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	tk := &Ticket{CreatedAt: earlier}
	require.False(t, tk.OwnerSpokeLast())
	require.False(t, tk.StaffSpokeLast())
	require.True(t, tk.WaitingSince().Equal(earlier))

	tk.LastUserMessage = &now
	require.True(t, tk.OwnerSpokeLast())
	require.True(t, tk.WaitingSince().Equal(now))

	later := now.Add(time.Minute)
	tk.LastStaffMessage = &later
	require.True(t, tk.StaffSpokeLast())
	require.False(t, tk.OwnerSpokeLast())
}
