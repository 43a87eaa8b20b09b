package tickets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/stretchr/testify/require"
)

func panelsNamed(n int, row int) []*entities.Panel {
	out := make([]*entities.Panel, 0, n)
	for i := 0; i < n; i++ {
		p := &entities.Panel{Name: fmt.Sprintf("p%02d", i), Priority: i, Row: row}
		p.ApplyDefaults()
		out = append(out, p)
	}
	return out
}

func rowNames(rows [][]Control) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		var names []string
		for _, c := range r {
			_, arg, _ := ParseCustomID(c.CustomID)
			names = append(names, arg)
		}
		out = append(out, names)
	}
	return out
}

func TestLayout(t *testing.T) {
	tests := []struct {
		name    string
		panels  func() []*entities.Panel
		rows    [][]string
		dropped []string
	}{
		{
			name:   "single row",
			panels: func() []*entities.Panel { return panelsNamed(3, 0) },
			rows:   [][]string{{"p00", "p01", "p02"}},
		},
		{
			name:   "wraps after five",
			panels: func() []*entities.Panel { return panelsNamed(6, 0) },
			rows:   [][]string{{"p00", "p01", "p02", "p03", "p04"}, {"p05"}},
		},
		{
			name: "priority orders controls",
			panels: func() []*entities.Panel {
				ps := panelsNamed(3, 0)
				ps[0].Priority = 10
				return ps
			},
			rows: [][]string{{"p01", "p02", "p00"}},
		},
		{
			name: "pinned row",
			panels: func() []*entities.Panel {
				ps := panelsNamed(3, 0)
				ps[0].Row = 3
				return ps
			},
			rows: [][]string{{"p01", "p02"}, {"p00"}},
		},
		{
			name:   "full pinned row falls back to the first free row",
			panels: func() []*entities.Panel { return panelsNamed(7, 2) },
			rows:   [][]string{{"p05", "p06"}, {"p00", "p01", "p02", "p03", "p04"}},
		},
		{
			name:    "overflow is dropped",
			panels:  func() []*entities.Panel { return panelsNamed(27, 0) },
			rows:    nil,
			dropped: []string{"p25", "p26"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, dropped := Layout(tt.panels())
			require.Equal(t, tt.dropped, dropped)
			if tt.rows != nil {
				require.Equal(t, tt.rows, rowNames(rows))
			} else {
				require.Len(t, rows, maxRows)
				for _, r := range rows {
					require.Len(t, r, maxControlsPerRow)
				}
			}
		})
	}
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    *entities.Schedule
		wantErr bool
	}{
		{name: "off", in: "off"},
		{
			name: "weekdays",
			in:   "Europe/London mon-fri 09:00-17:00",
			want: &entities.Schedule{Timezone: "Europe/London", Days: []time.Weekday{1, 2, 3, 4, 5}, Start: "09:00", End: "17:00"},
		},
		{
			name: "wrapping range",
			in:   "UTC fri-mon 22:00-02:00",
			want: &entities.Schedule{Timezone: "UTC", Days: []time.Weekday{5, 6, 0, 1}, Start: "22:00", End: "02:00"},
		},
		{
			name: "list",
			in:   "UTC mon,wed 08:00-12:00",
			want: &entities.Schedule{Timezone: "UTC", Days: []time.Weekday{1, 3}, Start: "08:00", End: "12:00"},
		},
		{
			name: "daily",
			in:   "UTC daily 00:00-00:00",
			want: &entities.Schedule{Timezone: "UTC", Start: "00:00", End: "00:00"},
		},
		{name: "unknown timezone", in: "Mars/Olympus daily 09:00-17:00", wantErr: true},
		{name: "unknown day", in: "UTC funday 09:00-17:00", wantErr: true},
		{name: "bad hours", in: "UTC daily 9-5", wantErr: true},
		{name: "missing fields", in: "UTC daily", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.in)
			if tt.wantErr {
				require.Equal(t, KindInvalid, KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleOpen(t *testing.T) {
	// base is Monday 12:00 UTC.
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

	tests := []struct {
		name  string
		sched entities.Schedule
		now   time.Time
		want  bool
	}{
		{name: "inside hours", sched: entities.Schedule{Timezone: "UTC", Days: weekdays, Start: "09:00", End: "17:00"}, now: base, want: true},
		{name: "at closing time", sched: entities.Schedule{Timezone: "UTC", Days: weekdays, Start: "09:00", End: "17:00"}, now: base.Add(5 * time.Hour)},
		{name: "weekend", sched: entities.Schedule{Timezone: "UTC", Days: weekdays, Start: "09:00", End: "17:00"}, now: base.Add(-48 * time.Hour)},
		{name: "timezone shifts the window", sched: entities.Schedule{Timezone: "America/New_York", Start: "09:00", End: "17:00"}, now: base.Add(3 * time.Hour), want: true},
		{name: "timezone outside", sched: entities.Schedule{Timezone: "Asia/Tokyo", Start: "09:00", End: "17:00"}, now: base},
		{name: "overnight evening", sched: entities.Schedule{Timezone: "UTC", Days: []time.Weekday{time.Friday}, Start: "22:00", End: "02:00"}, now: base.Add(-62 * time.Hour), want: true},
		{name: "overnight after midnight belongs to the start day", sched: entities.Schedule{Timezone: "UTC", Days: []time.Weekday{time.Friday}, Start: "22:00", End: "02:00"}, now: base.Add(-59 * time.Hour), want: true},
		{name: "overnight after midnight on another day", sched: entities.Schedule{Timezone: "UTC", Days: []time.Weekday{time.Saturday}, Start: "22:00", End: "02:00"}, now: base.Add(-59 * time.Hour)},
		{name: "all day", sched: entities.Schedule{Timezone: "UTC", Days: []time.Weekday{time.Monday}, Start: "00:00", End: "00:00"}, now: base, want: true},
		{name: "unknown timezone is utc", sched: entities.Schedule{Timezone: "Nowhere/Land", Start: "11:00", End: "13:00"}, now: base, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ScheduleOpen(&tt.sched, tt.now))
		})
	}
}

func TestRegisterPanel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := &entities.Panel{Name: " Billing ", CategoryID: "category", ChannelID: "panel-channel", ButtonText: "Billing", Priority: -1}
	require.NoError(t, h.m.RegisterPanel(ctx, testGuild, admin, p))

	g := h.guild(t)
	stored, ok := g.Panels["billing"]
	require.True(t, ok)
	require.NotEmpty(t, stored.MessageID)
	require.Equal(t, 1, stored.TicketNum)
	require.Equal(t, entities.AuditConfigChange, g.AuditLog[len(g.AuditLog)-1].Action)

	rows := h.adapter.attached[msgKey("panel-channel", stored.MessageID)]
	require.Equal(t, [][]string{{"billing"}}, rowNames(rows))
	require.Equal(t, [][]string{{"support"}}, rowNames(h.adapter.attached[msgKey("panel-channel", "panel-message")]))

	err := h.m.RegisterPanel(ctx, testGuild, admin, &entities.Panel{Name: "billing"})
	require.Equal(t, KindInvalid, KindOf(err))

	err = h.m.RegisterPanel(ctx, testGuild, staff, &entities.Panel{Name: "other"})
	require.Equal(t, KindPermissionDenied, KindOf(err))

	err = h.m.RegisterPanel(ctx, testGuild, admin, &entities.Panel{Name: "Not Valid!"})
	require.Equal(t, KindInvalid, KindOf(err))
}

// registeringAdapter runs register once a message has been posted. It stands in for another
// registration of the same panel that commits first.
type registeringAdapter struct {
	*fakeAdapter
	posted   string
	register func()
}

func (r *registeringAdapter) SendMessage(ctx context.Context, channelID string, msg *Message) (string, error) {
	id, err := r.fakeAdapter.SendMessage(ctx, channelID, msg)
	if err == nil && r.register != nil {
		r.posted = id
		r.register()
		r.register = nil
	}
	return id, err
}

func TestRegisterPanel_NameTakenWhilePosting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	adapter := &registeringAdapter{fakeAdapter: h.adapter}
	adapter.register = func() {
		h.update(t, func(g *entities.Guild) {
			g.Panels["billing"] = &entities.Panel{Name: "billing", CategoryID: "category"}
		})
	}
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)), h.guilds, h.archive, adapter,
		WithClock(h.clock),
		WithRateLimit(math.MaxFloat64),
	)

	err := m.RegisterPanel(ctx, testGuild, admin, &entities.Panel{Name: "billing", CategoryID: "category", ChannelID: "panel-channel", ButtonText: "Billing"})
	require.Equal(t, KindInvalid, KindOf(err))
	require.NotEmpty(t, adapter.posted)

	exists, err := h.adapter.MessageExists(ctx, "panel-channel", adapter.posted)
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = h.adapter.MessageExists(ctx, "panel-channel", "panel-message")
	require.NoError(t, err)
	require.True(t, exists)
	require.Empty(t, h.guild(t).Panels["billing"].MessageID)
}

func TestRebuildControls(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.update(t, func(g *entities.Guild) {
		g.Panels["sales"] = &entities.Panel{Name: "sales", Threads: true, ChannelID: "panel-channel", MessageID: "panel-message", Priority: -1}
		g.Panels["gone"] = &entities.Panel{Name: "gone", CategoryID: "category", ChannelID: "old-channel", MessageID: "deleted"}
		g.Panels["unplaced"] = &entities.Panel{Name: "unplaced", ChannelID: "panel-channel", MessageID: "panel-message"}
	})

	n, err := h.m.RebuildControls(ctx, testGuild)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, [][]string{{"sales", "support"}}, rowNames(h.adapter.attached[msgKey("panel-channel", "panel-message")]))
	require.NotContains(t, h.adapter.attached, msgKey("old-channel", "deleted"))

	require.NoError(t, h.m.RebuildAll(ctx))
}

func TestRemovePanel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tk := h.open(t, user)

	require.NoError(t, h.m.RemovePanel(ctx, testGuild, admin, testPanel))
	require.NotContains(t, h.guild(t).Panels, testPanel)
	require.Nil(t, h.adapter.attached[msgKey("panel-channel", "panel-message")])

	// Open tickets survive their panel.
	_, ok := h.ticket(t, tk.ContainerID)
	require.True(t, ok)

	err := h.m.RemovePanel(ctx, testGuild, admin, testPanel)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestSetPanelSetting(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		check   func(t *testing.T, p *entities.Panel)
		wantErr Kind
	}{
		{key: "button_style", value: "red", check: func(t *testing.T, p *entities.Panel) { require.Equal(t, entities.ButtonDanger, p.ButtonStyle) }},
		{key: "button_style", value: "purple", wantErr: KindInvalid},
		{key: "category", value: "<#123456789012345678>", check: func(t *testing.T, p *entities.Panel) { require.Equal(t, "123456789012345678", p.CategoryID) }},
		{key: "row", value: "6", wantErr: KindInvalid},
		{key: "max_claims", value: "3", check: func(t *testing.T, p *entities.Panel) { require.Equal(t, 3, p.MaxClaims) }},
		{key: "cooldown", value: "2h", check: func(t *testing.T, p *entities.Panel) { require.Equal(t, 2*time.Hour, p.Cooldown.Std()) }},
		{key: "welcome_section", value: "Rules | Be nice", check: func(t *testing.T, p *entities.Panel) {
			require.Equal(t, []entities.WelcomeSection{{Title: "Rules", Body: "Be nice"}}, p.WelcomeSections)
		}},
		{key: "welcome_section", value: "no separator", wantErr: KindInvalid},
		{key: "schedule", value: "UTC mon-fri 09:00-17:00", check: func(t *testing.T, p *entities.Panel) { require.NotNil(t, p.Schedule) }},
		{key: "colour", value: "#ff0000", check: func(t *testing.T, p *entities.Panel) { require.EqualValues(t, 0xff0000, p.EmbedColour) }},
		{key: "unknown", value: "x", wantErr: KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			h := newHarness(t)
			err := h.m.SetPanelSetting(context.Background(), testGuild, admin, testPanel, tt.key, tt.value)
			if tt.wantErr != KindUnknown {
				require.Equal(t, tt.wantErr, KindOf(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, h.guild(t).Panels[testPanel])
		})
	}

	h := newHarness(t)
	err := h.m.SetPanelSetting(context.Background(), testGuild, staff, testPanel, "disabled", "true")
	require.Equal(t, KindPermissionDenied, KindOf(err))
	err = h.m.SetPanelSetting(context.Background(), testGuild, admin, "missing", "disabled", "true")
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestQuestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < maxQuestions; i++ {
		require.NoError(t, h.m.AddQuestion(ctx, testGuild, admin, testPanel, entities.Question{Label: fmt.Sprintf("Question %d", i+1)}))
	}
	err := h.m.AddQuestion(ctx, testGuild, admin, testPanel, entities.Question{Label: "One too many"})
	require.Equal(t, KindInvalid, KindOf(err))

	err = h.m.AddQuestion(ctx, testGuild, admin, testPanel, entities.Question{Label: "Bounds", MinLength: 10, MaxLength: 5})
	require.Equal(t, KindInvalid, KindOf(err))

	require.NoError(t, h.m.RemoveQuestion(ctx, testGuild, admin, testPanel, 2))
	qs := h.guild(t).Panels[testPanel].Questions
	require.Len(t, qs, maxQuestions-1)
	require.Equal(t, "Question 3", qs[1].Label)
	require.Equal(t, entities.QuestionShort, qs[0].Style)

	err = h.m.RemoveQuestion(ctx, testGuild, admin, testPanel, 10)
	require.Equal(t, KindInvalid, KindOf(err))
}

func TestCollectAnswers(t *testing.T) {
	questions := []entities.Question{
		{Label: "Order", Required: true, MinLength: 3},
		{Label: "Details", MaxLength: 10},
	}

	tests := []struct {
		name    string
		values  []string
		want    []entities.Answer
		wantErr bool
	}{
		{
			name:   "all answered",
			values: []string{"A123", "broken"},
			want:   []entities.Answer{{Question: "Order", Value: "A123"}, {Question: "Details", Value: "broken"}},
		},
		{
			name:   "optional left empty",
			values: []string{"A123", "  "},
			want:   []entities.Answer{{Question: "Order", Value: "A123"}, {Question: "Details", Value: "Unanswered"}},
		},
		{
			name:   "missing values",
			values: []string{"A123"},
			want:   []entities.Answer{{Question: "Order", Value: "A123"}, {Question: "Details", Value: "Unanswered"}},
		},
		{name: "required left empty", values: []string{"", "x"}, wantErr: true},
		{name: "too short", values: []string{"A1", "x"}, wantErr: true},
		{name: "too long", values: []string{"A123", "this is far too long"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CollectAnswers(questions, tt.values)
			if tt.wantErr {
				require.Equal(t, KindInvalid, KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
