package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	natspkg "github.com/xrpwalk/xrpwalk/service/nats"
	"github.com/xrpwalk/xrpwalk/service/presenter"
)

// writeSSE writes one SSE frame and flushes it.
func writeSSE(t *testing.T, w http.ResponseWriter, event string, payload any) {
	t.Helper()
	flusher, ok := w.(http.Flusher)
	require.True(t, ok, "ResponseWriter should support flushing")

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	_, err = w.Write([]byte("event: " + event + "\ndata: " + string(data) + "\n\n"))
	require.NoError(t, err)
	flusher.Flush()
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	require.NoError(t, c.Health(context.Background()))
}

func TestClient_Health_Unhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"nats unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

// TestClient_Stream_DeliversDirectives tests that Stream parses SSE frames
// into events and hands each one to the handler in order.
func TestClient_Stream_DeliversDirectives(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/stream/ledgers", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		sseHeaders(w)

		writeSSE(t, w, "connected", map[string]string{"message": "subscribed"})
		writeSSE(t, w, natspkg.KindStatus, natspkg.NewStatusDirective("connected"))
		writeSSE(t, w, natspkg.KindWalker, natspkg.NewWalkerDirective(presenter.WalkerSpec{
			ID:      7,
			Variant: presenter.VariantHappy,
			SizePx:  175,
		}))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)

	var types []string
	err := c.Stream(context.Background(), "", func(ev Event) error {
		types = append(types, ev.Type)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"connected", "status", "walker"}, types)
}

// TestClient_Stream_KindFilter tests that the kind filter is forwarded as a
// query parameter.
func TestClient_Stream_KindFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, natspkg.KindPanel, r.URL.Query().Get("kind"))
		sseHeaders(w)
		writeSSE(t, w, natspkg.KindPanel, natspkg.NewPanelDirective(presenter.PanelView{}))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	seen := 0
	err := c.Stream(context.Background(), natspkg.KindPanel, func(ev Event) error {
		seen++
		return ErrStopStream
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

// TestClient_Stream_HandlerError tests that a handler error ends the stream
// and is returned to the caller, while ErrStopStream ends it cleanly.
func TestClient_Stream_HandlerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeSSE(t, w, natspkg.KindStatus, natspkg.NewStatusDirective("connected"))
		writeSSE(t, w, natspkg.KindStatus, natspkg.NewStatusDirective("disconnected"))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	calls := 0
	err := c.Stream(context.Background(), "", func(ev Event) error {
		calls++
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls, "stream should stop after the first handler error")
}

// TestClient_AwaitWalker_Match tests that AwaitWalker returns the first
// walker directive accepted by the matcher and skips the rest.
func TestClient_AwaitWalker_Match(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeSSE(t, w, natspkg.KindWalker, natspkg.NewWalkerDirective(presenter.WalkerSpec{
			ID:      1,
			Variant: presenter.VariantDefault,
		}))
		writeSSE(t, w, natspkg.KindWalker, natspkg.NewWalkerDirective(presenter.WalkerSpec{
			ID:      2,
			Variant: presenter.VariantExactAmount,
			Memo:    "thanks",
		}))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	d, err := c.AwaitWalker(context.Background(), 5*time.Second, func(d *natspkg.Directive) bool {
		return d.Walker != nil && d.Walker.Variant == presenter.VariantExactAmount
	})
	require.NoError(t, err)
	require.NotNil(t, d.Walker)
	assert.Equal(t, int64(2), d.Walker.ID)
	assert.Equal(t, "thanks", d.Walker.Memo)
}

// TestClient_AwaitWalker_Timeout tests that AwaitWalker gives up when no
// matching walker arrives within the timeout.
func TestClient_AwaitWalker_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeSSE(t, w, natspkg.KindWalker, natspkg.NewWalkerDirective(presenter.WalkerSpec{
			ID:      1,
			Variant: presenter.VariantDefault,
		}))
		// Hold the stream open past the client timeout
		<-r.Context().Done()
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	_, err := c.AwaitWalker(context.Background(), 200*time.Millisecond, func(d *natspkg.Directive) bool {
		return false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching walker")
}
