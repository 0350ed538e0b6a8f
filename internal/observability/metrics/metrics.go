package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	reportTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_report_transitions_total",
		Help: "Count of report status transitions by action and resulting status",
	}, []string{"action", "to_status"})

	reportSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_report_submissions_total",
		Help: "Count of submitted reports",
	})

	overdueSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_overdue_sweeps_total",
		Help: "Count of overdue sweep runs by result",
	}, []string{"result"})

	overdueMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_reports_marked_overdue_total",
		Help: "Count of reports moved to overdue by the sweep",
	})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_login_attempts_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveTransition counts an applied report transition.
func ObserveTransition(action, toStatus string) {
	reportTransitions.WithLabelValues(action, toStatus).Inc()
}

func ObserveSubmission() {
	reportSubmissions.Inc()
}

// ObserveSweep records a sweep run and how many reports it moved.
func ObserveSweep(result string, marked int) {
	overdueSweeps.WithLabelValues(result).Inc()
	if marked > 0 {
		overdueMarked.Add(float64(marked))
	}
}

func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}
