package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hawk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hawk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hawk",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Backend gateway metrics
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hawk",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of requests issued against the hosted backend",
		},
		[]string{"kind", "target", "outcome"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hawk",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend requests in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind", "target"},
	)

	realtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hawk",
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Change events received over realtime subscriptions",
		},
		[]string{"table", "type"},
	)

	realtimeReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hawk",
			Subsystem: "realtime",
			Name:      "reconnects_total",
			Help:      "Realtime subscription reconnect attempts",
		},
		[]string{"table"},
	)

	activeSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hawk",
			Subsystem: "realtime",
			Name:      "active_subscriptions",
			Help:      "Number of open realtime subscriptions",
		},
	)

	// Dashboard state metrics
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hawk",
			Subsystem: "app",
			Name:      "active_sessions",
			Help:      "Number of signed-in dashboard sessions",
		},
	)

	unreadNotifications = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hawk",
			Subsystem: "notifications",
			Name:      "unread",
			Help:      "Unread notifications per session",
		},
		[]string{"user_id"},
	)

	alertsBySeverity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hawk",
			Subsystem: "alerts",
			Name:      "loaded",
			Help:      "Alerts held in memory by severity and status",
		},
		[]string{"severity", "status"},
	)

	// Scan metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hawk",
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of vulnerability scans",
		},
		[]string{"trigger", "status"},
	)

	scanFindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hawk",
			Subsystem: "scan",
			Name:      "findings_total",
			Help:      "Vulnerabilities returned by scans",
		},
		[]string{"severity"},
	)
)

// Middleware records request count, latency and in-flight requests per
// chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := strconv.Itoa(code)

		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordGatewayRequest records one backend call. kind is rest, function,
// auth; target is the table or function name.
func RecordGatewayRequest(kind, target string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	gatewayRequestsTotal.WithLabelValues(kind, target, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(kind, target).Observe(duration.Seconds())
}

// RecordRealtimeEvent counts a change event received for table
func RecordRealtimeEvent(table, eventType string) {
	realtimeEventsTotal.WithLabelValues(table, eventType).Inc()
}

// RecordRealtimeReconnect counts a reconnect attempt
func RecordRealtimeReconnect(table string) {
	realtimeReconnectsTotal.WithLabelValues(table).Inc()
}

// SubscriptionOpened increments the open subscription gauge
func SubscriptionOpened() {
	activeSubscriptions.Inc()
}

// SubscriptionClosed decrements the open subscription gauge
func SubscriptionClosed() {
	activeSubscriptions.Dec()
}

// SetActiveSessions sets the number of active sessions
func SetActiveSessions(count float64) {
	activeSessions.Set(count)
}

// SetUnreadNotifications sets the unread count for a user
func SetUnreadNotifications(userID string, count float64) {
	unreadNotifications.WithLabelValues(userID).Set(count)
}

// DeleteUnreadNotifications drops the gauge for a user whose session ended
func DeleteUnreadNotifications(userID string) {
	unreadNotifications.DeleteLabelValues(userID)
}

// SetAlertsLoaded sets the number of loaded alerts for a severity/status pair
func SetAlertsLoaded(severity, status string, count float64) {
	alertsBySeverity.WithLabelValues(severity, status).Set(count)
}

// RecordScan records a completed scan and its findings by severity
func RecordScan(trigger string, err error, findings map[string]int) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	scansTotal.WithLabelValues(trigger, status).Inc()
	for severity, n := range findings {
		scanFindingsTotal.WithLabelValues(severity).Add(float64(n))
	}
}
