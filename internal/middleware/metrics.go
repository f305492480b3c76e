package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Command metrics
	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_bot_commands_executed_total",
		Help: "Total number of moderator commands received",
	}, []string{"command"})

	commandsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_bot_commands_processed_total",
		Help: "Total number of commands processed",
	}, []string{"status"})

	// Moderation metrics
	moderationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_bot_actions_total",
		Help: "Total number of moderation actions committed",
	}, []string{"action"})

	notificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_bot_notification_failures_total",
		Help: "Total number of failed outbound deliveries",
	}, []string{"kind"})

	// Dashboard metrics
	dashboardRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moderation_bot_dashboard_request_duration_seconds",
		Help:    "Duration of dashboard API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// State gauges, refreshed by the periodic task in main
	totalUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moderation_bot_users_total",
		Help: "Number of known users",
	})

	bannedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moderation_bot_banned_users",
		Help: "Number of banned users",
	})

	mutedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moderation_bot_muted_users",
		Help: "Number of muted users",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordCommandExecuted records a received moderator command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordCommandProcessed records the outcome of processing a command
func (m *Metrics) RecordCommandProcessed(status string) {
	commandsProcessed.WithLabelValues(status).Inc()
}

// RecordModerationAction records one committed enforcement action
func (m *Metrics) RecordModerationAction(action string) {
	moderationActions.WithLabelValues(action).Inc()
}

// RecordNotificationFailure records a failed outbound delivery
func (m *Metrics) RecordNotificationFailure(kind string) {
	notificationFailures.WithLabelValues(kind).Inc()
}

// RecordDashboardRequest records a dashboard API request
func (m *Metrics) RecordDashboardRequest(action string, duration time.Duration) {
	dashboardRequestDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// SetUserCounts sets the user state gauges
func (m *Metrics) SetUserCounts(total, banned, muted float64) {
	totalUsers.Set(total)
	bannedUsers.Set(banned)
	mutedUsers.Set(muted)
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
