package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	natspkg "github.com/xrpwalk/xrpwalk/service/nats"
)

// ErrStopStream is returned by a stream handler to end the stream without
// reporting an error.
var ErrStopStream = errors.New("stop stream")

// Event is one server-sent event from the ledger stream.
type Event struct {
	Type string
	Data json.RawMessage
}

// Directive decodes the event payload as a presenter directive. Events that
// carry no directive (the initial "connected" handshake) return an error.
func (e Event) Directive() (*natspkg.Directive, error) {
	var d natspkg.Directive
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode directive: %w", err)
	}
	if d.Kind == "" {
		return nil, fmt.Errorf("event %q carries no directive", e.Type)
	}
	return &d, nil
}

// Client is the HTTP client for the xrpwalk visualizer service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new visualizer service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		// No timeout: the stream endpoint is long-lived.
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Health checks the server health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Stream connects to the SSE ledger stream and invokes handler for every
// event until the context is cancelled, the server closes the stream, or
// the handler returns an error. A kind filter ("panel", "walker",
// "walker_expired", "status") restricts the stream to one directive kind;
// empty streams everything. The handler may return ErrStopStream to end
// the stream cleanly.
func (c *Client) Stream(ctx context.Context, kind string, handler func(Event) error) error {
	streamURL := c.baseURL + "/api/v1/stream/ledgers"
	if kind != "" {
		streamURL += "?kind=" + url.QueryEscape(kind)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("stream request failed with status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("connected to ledger stream", "url", streamURL)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType, eventData string
	for scanner.Scan() {
		line := scanner.Text()

		// Blank line terminates one event
		if line == "" {
			if eventType != "" && eventData != "" {
				err := handler(Event{Type: eventType, Data: json.RawMessage(eventData)})
				if errors.Is(err, ErrStopStream) {
					return nil
				}
				if err != nil {
					return err
				}
			}
			eventType = ""
			eventData = ""
			continue
		}

		switch {
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			eventData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("error reading stream: %w", err)
	}
	return nil
}

// AwaitWalker streams walker directives until one matches, then returns it.
// A nil matcher accepts the first walker. Returns an error when the timeout
// elapses first.
func (c *Client) AwaitWalker(ctx context.Context, timeout time.Duration, matcher func(*natspkg.Directive) bool) (*natspkg.Directive, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var matched *natspkg.Directive
	err := c.Stream(ctx, natspkg.KindWalker, func(ev Event) error {
		if ev.Type != natspkg.KindWalker {
			return nil
		}
		d, err := ev.Directive()
		if err != nil {
			c.logger.Debug("skipping undecodable event", "error", err)
			return nil
		}
		if matcher == nil || matcher(d) {
			matched = d
			return ErrStopStream
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("no matching walker within %s", timeout)
		}
		return nil, err
	}
	if matched == nil {
		return nil, fmt.Errorf("stream ended before a matching walker arrived")
	}
	return matched, nil
}
