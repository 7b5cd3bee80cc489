package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_RecordsRequests(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(m, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	count := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/health", "GET", "2xx"))
	assert.Equal(t, float64(3), count)
}

func TestHTTPMetricsMiddleware_CapturesStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(m, "/missing")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/missing", nil))

	count := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/missing", "GET", "4xx"))
	assert.Equal(t, float64(1), count)
}

func TestHTTPMetricsMiddleware_NilMetrics(t *testing.T) {
	handler := HTTPMetricsMiddleware(nil, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordFeedStatus_Exclusive(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.RecordFeedStatus("connected")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.feedStatusGauge.WithLabelValues("connected")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.feedStatusGauge.WithLabelValues("connecting")))

	m.RecordFeedStatus("disconnected")
	assert.Equal(t, float64(0), testutil.ToFloat64(m.feedStatusGauge.WithLabelValues("connected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.feedStatusGauge.WithLabelValues("disconnected")))
}
