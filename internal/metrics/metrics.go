package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trust_events_ingested_total",
		Help: "Events accepted and persisted.",
	})

	ScoreComputations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trust_score_computations_total",
		Help: "Successful score computations.",
	})

	ComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trust_score_compute_seconds",
		Help:    "Latency of the read-aggregate-persist sequence.",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trust_http_request_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
