package xrpl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection policy: unbounded reconnection with backoff bounded between
// backoffMin and backoffMax, a hard connect timeout, and a liveness ping
// every pingInterval while connected.
const (
	connectTimeout = 20 * time.Second
	pingInterval   = 30 * time.Second
	backoffMin     = 1 * time.Second
	backoffMax     = 5 * time.Second
	readTimeout    = 90 * time.Second
	writeTimeout   = 10 * time.Second
	requestTimeout = 30 * time.Second
)

// Client maintains one logical websocket connection to an XRPL node,
// subscribes to the ledger stream, and answers request/response commands
// (the `ledger` request) over the same connection.
type Client struct {
	url    string
	logger *slog.Logger
	dialer *websocket.Dialer

	onStatus func(Status)

	mu      sync.Mutex
	status  Status
	conn    *websocket.Conn
	writeMu sync.Mutex
	pending map[int64]chan json.RawMessage
	nextID  int64
}

// NewClient creates a client for the given websocket URL. Dialing happens in
// Run, not here.
func NewClient(url string, logger *slog.Logger) *Client {
	return &Client{
		url:    url,
		logger: logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: connectTimeout,
		},
		status:  StatusDisconnected,
		pending: make(map[int64]chan json.RawMessage),
	}
}

// OnStatusChange registers a callback invoked on every status transition.
// Must be set before Run.
func (c *Client) OnStatusChange(fn func(Status)) {
	c.onStatus = fn
}

// Status returns the current connectivity state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Run connects, subscribes to the ledger stream, and delivers every ledger
// close to handler, reconnecting forever until the context is cancelled.
// Handler calls happen on the read goroutine, one at a time, in delivery
// order.
func (c *Client) Run(ctx context.Context, handler func(LedgerClosed)) error {
	backoff := backoffMin

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setStatus(StatusConnecting)
		c.logger.Info("connecting to XRPL", "url", c.url)

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.setStatus(StatusError)
			c.logger.Error("XRPL dial failed", "error", err, "retry_in", backoff)
			if err := sleepCtx(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = backoffMin

		c.setConn(conn)
		c.setStatus(StatusConnected)
		c.logger.Info("connected to XRPL", "url", c.url)

		err = c.serveConn(ctx, conn, handler)
		c.clearConn()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setStatus(StatusDisconnected)
		c.logger.Warn("XRPL connection lost", "error", err, "retry_in", backoff)
		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff)
	}
}

// serveConn subscribes and reads messages until the connection fails or the
// context ends. A ping loop runs alongside; a failed ping closes the
// connection so the read loop notices immediately instead of waiting for the
// websocket's own timeout.
func (c *Client) serveConn(ctx context.Context, conn *websocket.Conn, handler func(LedgerClosed)) error {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	if err := c.subscribe(conn); err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to ledger stream: %w", err)
	}
	c.logger.Info("subscribed to ledger stream")

	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.writeControl(conn, websocket.PingMessage); err != nil {
					c.logger.Warn("liveness ping failed, forcing reconnect", "error", err)
					conn.Close()
					return
				}
			case <-pingDone:
				return
			case <-ctx.Done():
				conn.Close()
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		c.dispatch(data, handler)
	}
}

// dispatch routes one incoming frame: stream notifications go to the ledger
// handler, command responses to their pending waiter. Malformed frames are
// logged and skipped.
func (c *Client) dispatch(data []byte, handler func(LedgerClosed)) {
	var envelope struct {
		Type string `json:"type"`
		ID   int64  `json:"id"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logger.Warn("malformed XRPL frame, skipping", "error", err)
		return
	}

	switch {
	case envelope.Type == "ledgerClosed":
		var lc LedgerClosed
		if err := json.Unmarshal(data, &lc); err != nil {
			c.logger.Warn("malformed ledgerClosed frame, skipping", "error", err)
			return
		}
		handler(lc)

	case envelope.Type == "response" && envelope.ID != 0:
		c.mu.Lock()
		ch, ok := c.pending[envelope.ID]
		delete(c.pending, envelope.ID)
		c.mu.Unlock()
		if ok {
			ch <- json.RawMessage(data)
		}
	}
}

// subscribe sends the ledger-stream subscription command.
func (c *Client) subscribe(conn *websocket.Conn) error {
	return c.writeJSON(conn, map[string]any{
		"command": "subscribe",
		"streams": []string{"ledger"},
	})
}

// LedgerTransactions fetches the expanded transaction list of a closed
// ledger over the active connection.
func (c *Client) LedgerTransactions(ctx context.Context, ledgerHash string) ([]map[string]any, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("not connected")
	}
	c.nextID++
	id := c.nextID
	ch := make(chan json.RawMessage, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := map[string]any{
		"id":           id,
		"command":      "ledger",
		"ledger_hash":  ledgerHash,
		"transactions": true,
		"expand":       true,
	}
	if err := c.writeJSON(conn, req); err != nil {
		return nil, fmt.Errorf("failed to send ledger request: %w", err)
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()

	select {
	case raw := <-ch:
		if raw == nil {
			// clearConn closed the channel: the connection went away
			return nil, fmt.Errorf("connection lost while awaiting ledger response")
		}
		return parseLedgerResponse(raw)
	case <-timer.C:
		return nil, fmt.Errorf("ledger request timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// parseLedgerResponse extracts the transaction list from a `ledger` command
// response.
func parseLedgerResponse(raw json.RawMessage) ([]map[string]any, error) {
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		Result struct {
			Ledger struct {
				Transactions []map[string]any `json:"transactions"`
			} `json:"ledger"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode ledger response: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("ledger request failed: %s", resp.Error)
	}
	return resp.Result.Ledger.Transactions, nil
}

func (c *Client) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

func (c *Client) writeControl(conn *websocket.Conn, messageType int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteControl(messageType, nil, time.Now().Add(writeTimeout))
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) clearConn() {
	c.mu.Lock()
	c.conn = nil
	// Fail any in-flight requests
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	fn := c.onStatus
	c.mu.Unlock()

	if changed && fn != nil {
		fn(s)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > backoffMax {
		d = backoffMax
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
