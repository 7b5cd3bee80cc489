package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/xrpwalk/xrpwalk/service/metrics"
	natspkg "github.com/xrpwalk/xrpwalk/service/nats"
)

// SSERelay manages Server-Sent Events connections for directive streaming.
// It also tracks the most recent feed status directive for the status
// endpoint.
type SSERelay struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger

	statusMu  sync.RWMutex
	status    string
	statusAt  time.Time
	statusSub *nats.Subscription
}

// NewSSERelay creates a new SSE relay that subscribes to NATS internally.
func NewSSERelay(natsURL string, logger *slog.Logger) (*SSERelay, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("xrpwalk-sse-relay"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	relay := &SSERelay{
		nc:     nc,
		js:     js,
		logger: logger,
		status: "unknown",
	}

	// Plain subscription on the status subject: the status endpoint only
	// needs the latest value, not JetStream replay.
	sub, err := nc.Subscribe("ledgers."+natspkg.KindStatus, func(msg *nats.Msg) {
		var d natspkg.Directive
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			logger.Warn("failed to unmarshal status directive", "error", err)
			return
		}
		relay.setFeedStatus(d.Status)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to status subject: %w", err)
	}
	relay.statusSub = sub

	logger.Info("SSE relay initialized", "nats_url", natsURL)
	return relay, nil
}

func (r *SSERelay) setFeedStatus(status string) {
	r.statusMu.Lock()
	r.status = status
	r.statusAt = time.Now().UTC()
	r.statusMu.Unlock()
}

// FeedStatus returns the last observed feed status and when it changed.
// Before any directive arrives the status is "unknown" with a zero time.
func (r *SSERelay) FeedStatus() (string, time.Time) {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status, r.statusAt
}

// Close closes the NATS connection.
func (r *SSERelay) Close() error {
	if r.statusSub != nil {
		r.statusSub.Unsubscribe()
	}
	if r.nc != nil {
		r.nc.Close()
		r.logger.Info("SSE relay closed")
	}
	return nil
}

// handleFeedStatus reports the last observed feed connectivity state.
func handleFeedStatus(relay *SSERelay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, at := relay.FeedStatus()

		resp := map[string]any{"feed_status": status}
		if !at.IsZero() {
			resp["updated_at"] = at.Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			relay.logger.Error("failed to encode status response", "error", err)
		}
	}
}

// handleStreamDirectives handles SSE streaming of presenter directives.
// An optional ?kind= query restricts the stream to one directive kind;
// the default relays everything.
func handleStreamDirectives(relay *SSERelay, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")

		subject := natspkg.StreamSubjects
		if kind != "" {
			subject = fmt.Sprintf("ledgers.%s", kind)
		}

		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		// Flush headers immediately
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		logger.DebugContext(r.Context(), "SSE client connected",
			"subject", subject,
			"remote_addr", r.RemoteAddr,
		)
		if m != nil {
			m.RecordSSEConnectionChange(1)
			defer m.RecordSSEConnectionChange(-1)
		}

		// Create ephemeral consumer for this connection
		cons, err := relay.js.CreateOrUpdateConsumer(r.Context(), natspkg.StreamName, jetstream.ConsumerConfig{
			FilterSubject: subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			DeliverPolicy: jetstream.DeliverNewPolicy, // Only deliver new directives after consumer creation
			// Ephemeral - will be deleted when connection closes
		})
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to create consumer",
				"subject", subject,
				"error", err,
			)
			fmt.Fprintf(w, "event: error\ndata: {\"error\": \"failed to subscribe\"}\n\n")
			return
		}

		// Create buffered channel for messages
		msgChan := make(chan jetstream.Msg, 10)
		doneChan := make(chan struct{})

		// Start consuming messages
		go func() {
			defer close(doneChan)
			cc, err := cons.Consume(func(msg jetstream.Msg) {
				select {
				case msgChan <- msg:
				case <-r.Context().Done():
					return
				}
			})
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to start consuming messages",
					"error", err,
				)
				return
			}
			// Wait for context to be done, then stop consuming
			<-r.Context().Done()
			cc.Stop()
		}()

		// Send initial connection event
		fmt.Fprintf(w, "event: connected\ndata: {\"subject\":%q}\n\n", subject)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		// Create ticker for keepalive comments (every 10 seconds)
		keepalive := time.NewTicker(10 * time.Second)
		defer keepalive.Stop()

		// Stream directives to the client
		for {
			select {
			case <-keepalive.C:
				// Send keepalive comment to prevent timeout
				fmt.Fprintf(w, ": keepalive\n\n")
				if flusher, ok := w.(http.Flusher); ok {
					flusher.Flush()
				}

			case msg := <-msgChan:
				var directive natspkg.Directive
				if err := json.Unmarshal(msg.Data(), &directive); err != nil {
					logger.WarnContext(r.Context(), "failed to unmarshal directive",
						"error", err,
					)
					msg.Ack()
					continue
				}

				// Relay the directive under its kind as the SSE event name
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", directive.Kind, msg.Data())
				if flusher, ok := w.(http.Flusher); ok {
					flusher.Flush()
				}

				msg.Ack()

				if m != nil {
					m.RecordSSEEventSent(directive.Kind)
				}
				logger.DebugContext(r.Context(), "sent directive",
					"kind", directive.Kind,
				)

			case <-r.Context().Done():
				// Client disconnected
				logger.DebugContext(r.Context(), "SSE client disconnected",
					"remote_addr", r.RemoteAddr,
				)
				return

			case <-doneChan:
				// Consumer closed
				return
			}
		}
	})
}
