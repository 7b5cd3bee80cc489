package xrpl

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestParseLedgerResponse_Success(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 1,
		"type": "response",
		"status": "success",
		"result": {
			"ledger": {
				"transactions": [
					{"TransactionType": "Payment", "hash": "ABC"},
					{"TransactionType": "OfferCreate", "hash": "DEF"}
				]
			}
		}
	}`)

	txs, err := parseLedgerResponse(raw)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "Payment", txs[0]["TransactionType"])
	assert.Equal(t, "DEF", txs[1]["hash"])
}

func TestParseLedgerResponse_Error(t *testing.T) {
	raw := json.RawMessage(`{"id":1,"type":"response","status":"error","error":"lgrNotFound"}`)
	_, err := parseLedgerResponse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lgrNotFound")
}

func TestParseLedgerResponse_Malformed(t *testing.T) {
	_, err := parseLedgerResponse(json.RawMessage(`{not json`))
	require.Error(t, err)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(1*time.Second))
	assert.Equal(t, 4*time.Second, nextBackoff(2*time.Second))
	assert.Equal(t, 5*time.Second, nextBackoff(4*time.Second), "capped at the maximum")
	assert.Equal(t, 5*time.Second, nextBackoff(5*time.Second))
}

func TestDispatch_LedgerClosed(t *testing.T) {
	c := NewClient("ws://unused", testLogger())

	var got LedgerClosed
	c.dispatch([]byte(`{
		"type": "ledgerClosed",
		"ledger_hash": "HASH123",
		"ledger_index": 90000000,
		"ledger_time": 0,
		"txn_count": 42
	}`), func(lc LedgerClosed) { got = lc })

	assert.Equal(t, "HASH123", got.LedgerHash)
	assert.Equal(t, int64(90000000), got.LedgerIndex)
	assert.Equal(t, 42, got.TxnCount)
}

func TestDispatch_ResponseRouting(t *testing.T) {
	c := NewClient("ws://unused", testLogger())
	ch := make(chan json.RawMessage, 1)
	c.pending[5] = ch

	c.dispatch([]byte(`{"type":"response","id":5,"status":"success"}`), func(LedgerClosed) {
		t.Fatal("responses must not reach the ledger handler")
	})

	select {
	case raw := <-ch:
		assert.Contains(t, string(raw), `"id":5`)
	default:
		t.Fatal("pending waiter did not receive the response")
	}
	assert.Empty(t, c.pending, "waiter is deregistered after delivery")
}

func TestDispatch_MalformedFrameSkipped(t *testing.T) {
	c := NewClient("ws://unused", testLogger())
	// Must not panic or call the handler
	c.dispatch([]byte(`not json at all`), func(LedgerClosed) {
		t.Fatal("handler must not run for malformed frames")
	})
}

func TestDispatch_UnknownTypeIgnored(t *testing.T) {
	c := NewClient("ws://unused", testLogger())
	c.dispatch([]byte(`{"type":"serverStatus","load_factor":256}`), func(LedgerClosed) {
		t.Fatal("handler must not run for other stream types")
	})
}

func TestSetStatus_DedupesTransitions(t *testing.T) {
	c := NewClient("ws://unused", testLogger())
	var transitions []Status
	c.OnStatusChange(func(s Status) { transitions = append(transitions, s) })

	c.setStatus(StatusConnecting)
	c.setStatus(StatusConnecting)
	c.setStatus(StatusConnected)
	c.setStatus(StatusConnected)
	c.setStatus(StatusDisconnected)

	assert.Equal(t, []Status{StatusConnecting, StatusConnected, StatusDisconnected}, transitions)
}

func TestLedgerTransactions_NotConnected(t *testing.T) {
	c := NewClient("ws://unused", testLogger())
	_, err := c.LedgerTransactions(context.Background(), "HASH")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestClearConn_FailsPendingRequests(t *testing.T) {
	c := NewClient("ws://unused", testLogger())
	ch := make(chan json.RawMessage, 1)
	c.pending[1] = ch

	c.clearConn()

	raw, open := <-ch
	assert.Nil(t, raw)
	assert.False(t, open, "pending channels are closed on disconnect")
	assert.Empty(t, c.pending)
}

// wsTestServer runs a fake XRPL node: it answers the subscribe command,
// pushes one ledgerClosed notification, and serves ledger requests.
func wsTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			var req map[string]any
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			switch req["command"] {
			case "subscribe":
				conn.WriteJSON(map[string]any{
					"id": req["id"], "type": "response", "status": "success",
				})
				conn.WriteJSON(map[string]any{
					"type":         "ledgerClosed",
					"ledger_hash":  "LEDGERHASH01",
					"ledger_index": 90000123,
					"ledger_time":  820000000,
					"txn_count":    2,
				})
			case "ledger":
				conn.WriteJSON(map[string]any{
					"id":     req["id"],
					"type":   "response",
					"status": "success",
					"result": map[string]any{
						"ledger": map[string]any{
							"transactions": []any{
								map[string]any{"TransactionType": "Payment", "hash": "TX1"},
								map[string]any{"TransactionType": "NFTokenMint", "hash": "TX2"},
							},
						},
					},
				})
			}
		}
	}))
}

func TestRun_SubscribeAndFetch(t *testing.T) {
	server := wsTestServer(t)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	c := NewClient(wsURL, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	closes := make(chan LedgerClosed, 1)
	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(ctx, func(lc LedgerClosed) {
			select {
			case closes <- lc:
			default:
			}
		})
	}()

	var lc LedgerClosed
	select {
	case lc = <-closes:
	case <-ctx.Done():
		t.Fatal("no ledger close received")
	}
	assert.Equal(t, "LEDGERHASH01", lc.LedgerHash)
	assert.Equal(t, 2, lc.TxnCount)
	assert.Equal(t, StatusConnected, c.Status())

	txs, err := c.LedgerTransactions(ctx, lc.LedgerHash)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "TX1", txs[0]["hash"])

	cancel()
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
