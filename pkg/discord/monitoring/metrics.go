package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Adapter request results.
const (
	ResultSuccess = "success"
	ResultGone    = "gone"
	ResultDenied  = "denied"
	ResultError   = "error"
)

var (
	// AdapterRequests is the total number of REST calls made by the chat adapter.
	AdapterRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discord_adapter_requests_total",
			Help: "Total number of Discord REST calls made by the ticket adapter",
		},
		[]string{"operation", "result"},
	)

	// AdapterLatency is the latency of REST calls made by the chat adapter.
	AdapterLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "discord_adapter_latency_seconds",
			Help: "Latency of Discord REST calls made by the ticket adapter",
		},
		[]string{"operation"},
	)
)
