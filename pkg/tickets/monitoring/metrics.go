package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketsOpened is the total number of tickets opened.
	TicketsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_opened_total",
			Help: "Total number of tickets opened",
		},
		[]string{"panel"},
	)

	// TicketsClosed is the total number of tickets closed.
	TicketsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_closed_total",
			Help: "Total number of tickets closed",
		},
		[]string{"panel", "cause"},
	)

	// EligibilityDenials is the total number of refused ticket opens.
	EligibilityDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_eligibility_denials_total",
			Help: "Total number of refused ticket opens",
		},
		[]string{"reason"},
	)

	// EscalationsFired is the total number of escalation alerts sent.
	EscalationsFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_escalations_total",
			Help: "Total number of escalation alerts",
		},
	)

	// AutoCloseWarnings is the total number of inactivity warnings sent.
	AutoCloseWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_auto_close_warnings_total",
			Help: "Total number of inactivity warnings",
		},
		[]string{"policy"},
	)

	// SweepDuration is the duration of a scheduler pass over every guild.
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tickets_sweep_duration",
			Help: "Duration of a scheduler pass",
		},
		[]string{"worker"},
	)

	// SweepFailures is the total number of guilds a scheduler pass failed on.
	SweepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_sweep_failures_total",
			Help: "Total number of failed guild passes",
		},
		[]string{"worker"},
	)
)
