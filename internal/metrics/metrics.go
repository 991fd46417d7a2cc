// Package metrics exposes Prometheus collectors for the lottery API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the service registers
var Registry = prometheus.NewRegistry()

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_http_requests_total",
			Help: "Total HTTP requests processed, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lottery_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	drawAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_draw_attempts_total",
			Help: "Ball draws resolved, by outcome (accepted, dead, duplicate, no_match).",
		},
		[]string{"outcome"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_status_transitions_total",
			Help: "Lottery session status transitions, by target status.",
		},
		[]string{"status"},
	)

	sessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lottery_sessions_created_total",
			Help: "Lottery sessions created.",
		},
	)

	liveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lottery_live_subscribers",
			Help: "Observers currently connected to live session feeds.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		drawAttempts,
		transitions,
		sessionsCreated,
		liveSubscribers,
	)
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordDrawAttempt counts one resolved ball draw
func RecordDrawAttempt(outcome string) {
	drawAttempts.WithLabelValues(outcome).Inc()
}

// RecordTransition counts a session entering a status
func RecordTransition(status string) {
	transitions.WithLabelValues(status).Inc()
}

// RecordSessionCreated counts a new session
func RecordSessionCreated() {
	sessionsCreated.Inc()
}

// LiveSubscriberAdded and LiveSubscriberRemoved track connected observers
func LiveSubscriberAdded()   { liveSubscribers.Inc() }
func LiveSubscriberRemoved() { liveSubscribers.Dec() }
