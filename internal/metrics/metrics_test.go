package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordLogin("admin", "success")
	m.RecordLogin("admin", "success")
	m.RecordLogin("user", "invalid_credentials")
	m.RecordRefresh("success")
	m.RecordSessionsRevoked("logout_all", 3)
	m.RecordSessionsRevoked("logout", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues("admin", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues("user", "invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshesTotal.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsRevokedTotal.WithLabelValues("logout_all")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsRevokedTotal.WithLabelValues("logout")))
}

func TestMetrics_RecordSweep(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordSweep(4, nil)
	m.RecordSweep(0, nil)
	m.RecordSweep(0, errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRunsTotal.WithLabelValues("error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SweptSessionsTotal))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordLogin("admin", "success")
		m.RecordRefresh("success")
		m.RecordSessionsRevoked("logout", 1)
		m.RecordSweep(1, nil)
		m.RecordHTTPRequest(http.MethodGet, "/health", 200, time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordHTTPRequest(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "exam_portal_http_requests_total")
}
