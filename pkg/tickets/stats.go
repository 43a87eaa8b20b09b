package tickets

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
)

// Report is a guild's ticket statistics.
type Report struct {
	OpenByStatus map[entities.TicketStatus]int `json:"open_by_status"`
	Open         int                           `json:"open"`
	Opened       int                           `json:"opened"`
	Closed       int                           `json:"closed"`

	AverageClaim time.Duration `json:"average_claim"`
	AverageClose time.Duration `json:"average_close"`

	Panels []PanelReport `json:"panels"`
	Staff  []StaffReport `json:"staff"`
}

// PanelReport is one panel's line in a Report.
type PanelReport struct {
	Name   string `json:"name"`
	Open   int    `json:"open"`
	Opened int    `json:"opened"`
	Closed int    `json:"closed"`
}

// StaffReport is one staff member's line in a Report.
type StaffReport struct {
	ID     string `json:"id"`
	Claims int    `json:"claims"`
	Closes int    `json:"closes"`
}

// Stats builds the statistics report of a guild.
func (m *Manager) Stats(ctx context.Context, guildID string) (*Report, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	return BuildReport(g), nil
}

// BuildReport computes the statistics report of a guild document.
func BuildReport(g *entities.Guild) *Report {
	r := &Report{
		OpenByStatus: make(map[entities.TicketStatus]int),
		Opened:       g.Stats.Opened,
		Closed:       g.Stats.Closed,
	}
	if g.Stats.Claims > 0 {
		r.AverageClaim = seconds(g.Stats.ClaimSeconds / float64(g.Stats.Claims))
	}
	if g.Stats.ClosesTimed > 0 {
		r.AverageClose = seconds(g.Stats.CloseSeconds / float64(g.Stats.ClosesTimed))
	}

	open := make(map[string]int)
	for _, t := range g.Tickets() {
		r.Open++
		r.OpenByStatus[t.Status]++
		open[t.Panel]++
	}

	names := make(map[string]struct{})
	for name := range g.Panels {
		names[name] = struct{}{}
	}
	for name := range g.Stats.ByPanel {
		names[name] = struct{}{}
	}
	for name := range names {
		pr := PanelReport{Name: name, Open: open[name]}
		if s, ok := g.Stats.ByPanel[name]; ok {
			pr.Opened = s.Opened
			pr.Closed = s.Closed
		}
		r.Panels = append(r.Panels, pr)
	}
	sort.Slice(r.Panels, func(i, j int) bool { return r.Panels[i].Name < r.Panels[j].Name })

	for id, s := range g.Stats.ByStaff {
		r.Staff = append(r.Staff, StaffReport{ID: id, Claims: s.Claims, Closes: s.Closes})
	}
	sort.Slice(r.Staff, func(i, j int) bool {
		if r.Staff[i].Claims != r.Staff[j].Claims {
			return r.Staff[i].Claims > r.Staff[j].Claims
		}
		return r.Staff[i].ID < r.Staff[j].ID
	})
	return r
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Second)
}
