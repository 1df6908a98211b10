package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	KeysPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_public_keys_published_total",
			Help: "Total public key submissions accepted",
		},
		[]string{"outcome"}, // "created" or "updated"
	)

	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_messages_relayed_total",
			Help: "Total ciphertext envelopes accepted",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_store_errors_total",
			Help: "Total storage operation failures",
		},
		[]string{"op"},
	)
)
