package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livechat_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "livechat_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// MessagesAppended counts successful ledger appends.
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livechat_messages_appended_total",
		Help: "Messages appended to the ledger.",
	})

	// ReactionUpdates counts reaction add/remove operations.
	ReactionUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livechat_reaction_updates_total",
		Help: "Reaction mutations by operation.",
	}, []string{"op"})

	// NotificationsSent / Failed / Dropped expose the fire-and-forget
	// pipeline's health without ever surfacing it to callers.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livechat_notifications_sent_total",
		Help: "Notifications handed to the outbound provider.",
	})
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livechat_notifications_failed_total",
		Help: "Notification publishes that failed (swallowed).",
	})
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livechat_notifications_dropped_total",
		Help: "Notifications dropped because the queue was full.",
	})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)
		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(srw.status)).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
