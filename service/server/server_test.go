package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestCORSMiddleware_Headers(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("OPTIONS", "/api/v1/stream/ledgers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called, "preflight requests short-circuit")
}

func TestVisualizerPage(t *testing.T) {
	renderer, err := NewTemplateRenderer(testLogger())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handleVisualizerPage(renderer)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	// The page carries the stage, the info panel, and the SSE wiring
	assert.Contains(t, body, `id="stage"`)
	assert.Contains(t, body, `id="info-panel"`)
	assert.Contains(t, body, `id="connection-status"`)
	assert.Contains(t, body, "/api/v1/stream/ledgers")
}

func TestFeedStatus(t *testing.T) {
	relay := &SSERelay{logger: testLogger(), status: "unknown"}

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	handleFeedStatus(relay)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"feed_status":"unknown"`)
	assert.NotContains(t, rec.Body.String(), "updated_at", "no timestamp before the first directive")

	relay.setFeedStatus("connected")
	rec = httptest.NewRecorder()
	handleFeedStatus(relay)(rec, req)
	assert.Contains(t, rec.Body.String(), `"feed_status":"connected"`)
	assert.Contains(t, rec.Body.String(), "updated_at")
}

func TestFavicon(t *testing.T) {
	req := httptest.NewRequest("GET", "/favicon.svg", nil)
	rec := httptest.NewRecorder()
	handleFavicon()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}
