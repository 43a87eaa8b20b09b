package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker pass results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultPanic   = "panic"
)

var (
	// WorkerRuns is the total number of worker passes.
	WorkerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_worker_runs_total",
			Help: "Total number of worker passes",
		},
		[]string{"worker", "result"},
	)
)
