package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exam_portal"

// Metrics holds the Prometheus collectors for the auth subsystem.
// All methods are safe to call on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginsTotal          *prometheus.CounterVec
	RefreshesTotal       *prometheus.CounterVec
	SessionsRevokedTotal *prometheus.CounterVec
	SweepRunsTotal       *prometheus.CounterVec
	SweptSessionsTotal   prometheus.Counter
}

func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Login attempts by principal kind and outcome",
			},
			[]string{"principal", "outcome"},
		),
		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Access token refreshes by outcome",
			},
			[]string{"outcome"},
		),
		SessionsRevokedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_revoked_total",
				Help:      "Revoked admin sessions by reason",
			},
			[]string{"reason"},
		),
		SweepRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_sweeps_total",
				Help:      "Expired session sweeps by status",
			},
			[]string{"status"},
		),
		SweptSessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swept_sessions_total",
				Help:      "Expired session rows deleted by the cleanup scheduler",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.RefreshesTotal,
		m.SessionsRevokedTotal,
		m.SweepRunsTotal,
		m.SweptSessionsTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method string, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordLogin(principal string, outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(principal, outcome).Inc()
}

func (m *Metrics) RecordRefresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordSessionsRevoked(reason string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.SessionsRevokedTotal.WithLabelValues(reason).Add(float64(count))
}

func (m *Metrics) RecordSweep(deleted int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SweepRunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.SweepRunsTotal.WithLabelValues("ok").Inc()
	if deleted > 0 {
		m.SweptSessionsTotal.Add(float64(deleted))
	}
}
