package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatstream_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatstream_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Delivery metrics
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatstream_messages_posted_total",
			Help: "Total messages persisted",
		},
		[]string{"conversation"}, // "room" or "dm"
	)

	BlankPosts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstream_blank_posts_total",
			Help: "Total blank submissions absorbed without a row",
		},
	)

	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatstream_streams_active",
			Help: "Open event streams",
		},
	)

	StreamEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstream_stream_events_total",
			Help: "Total events pushed to stream clients",
		},
	)

	// Presence metrics
	PresenceWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstream_presence_write_failures_total",
			Help: "Last-seen writes that failed and were dropped",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatstream_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
