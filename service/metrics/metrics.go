package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// XRPL Feed Metrics
	feedConnectsTotal    *prometheus.CounterVec
	feedStatusGauge      *prometheus.GaugeVec
	ledgersReceivedTotal prometheus.Counter
	ledgerFetchDuration  prometheus.Histogram

	// Ledger Analysis Metrics
	ledgersAnalyzedTotal    *prometheus.CounterVec
	analysisDuration        prometheus.Histogram
	transactionsParsedTotal prometheus.Counter
	specialDetectionsTotal  *prometheus.CounterVec

	// Presenter Metrics
	walkersSpawnedTotal   *prometheus.CounterVec
	walkersThrottledTotal prometheus.Counter
	memosDisplayedTotal   prometheus.Counter

	// HTTP Metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections prometheus.Gauge
	sseEventsSent        *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// XRPL Feed Metrics
		feedConnectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xrpl_feed_connects_total",
				Help: "Total number of XRPL feed connection attempts by outcome",
			},
			[]string{"outcome"},
		),
		feedStatusGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "xrpl_feed_status",
				Help: "Current feed connectivity state (1 for the active state, 0 otherwise)",
			},
			[]string{"status"},
		),
		ledgersReceivedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "xrpl_ledgers_received_total",
				Help: "Total number of ledger close notifications received",
			},
		),
		ledgerFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xrpl_ledger_fetch_duration_seconds",
				Help:    "Duration of ledger transaction fetches in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
		),

		// Ledger Analysis Metrics
		ledgersAnalyzedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgers_analyzed_total",
				Help: "Total number of ledgers analyzed by outcome",
			},
			[]string{"status"},
		),
		analysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledger_analysis_duration_seconds",
				Help:    "Duration of per-ledger transaction analysis in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
		),
		transactionsParsedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "transactions_parsed_total",
				Help: "Total number of transactions parsed",
			},
		),
		specialDetectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "special_wallet_detections_total",
				Help: "Total special-wallet payment detections by tier",
			},
			[]string{"tier"},
		),

		// Presenter Metrics
		walkersSpawnedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walkers_spawned_total",
				Help: "Total number of walker sprites spawned by variant",
			},
			[]string{"variant"},
		),
		walkersThrottledTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "walkers_throttled_total",
				Help: "Total number of walker spawns skipped by the spawn throttle",
			},
		),
		memosDisplayedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "memos_displayed_total",
				Help: "Total number of memo bubbles attached to walkers",
			},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		sseActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of currently connected SSE clients",
			},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent by event type",
			},
			[]string{"event_type"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published by subject and status",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"subject"},
		),
	}
}

// Feed metric helpers

// RecordFeedConnect records a feed connection attempt.
func (m *Metrics) RecordFeedConnect(outcome string) {
	m.feedConnectsTotal.WithLabelValues(outcome).Inc()
}

// RecordFeedStatus records a feed connectivity transition.
func (m *Metrics) RecordFeedStatus(status string) {
	for _, s := range []string{"connecting", "connected", "disconnected", "error"} {
		v := 0.0
		if s == status {
			v = 1.0
		}
		m.feedStatusGauge.WithLabelValues(s).Set(v)
	}
}

// RecordLedgerReceived records one ledger close notification.
func (m *Metrics) RecordLedgerReceived() {
	m.ledgersReceivedTotal.Inc()
}

// RecordLedgerFetch records a ledger transaction fetch with duration.
func (m *Metrics) RecordLedgerFetch(duration float64) {
	m.ledgerFetchDuration.Observe(duration)
}

// Analysis metric helpers

// RecordLedgerAnalyzed records one completed (or failed) ledger analysis.
func (m *Metrics) RecordLedgerAnalyzed(status string, duration float64, txCount int) {
	m.ledgersAnalyzedTotal.WithLabelValues(status).Inc()
	m.analysisDuration.Observe(duration)
	m.transactionsParsedTotal.Add(float64(txCount))
}

// RecordSpecialDetection records a special-wallet payment detection.
func (m *Metrics) RecordSpecialDetection(tier string) {
	m.specialDetectionsTotal.WithLabelValues(tier).Inc()
}

// Presenter metric helpers

// RecordWalkerSpawned records a spawned walker sprite.
func (m *Metrics) RecordWalkerSpawned(variant string, withMemo bool) {
	m.walkersSpawnedTotal.WithLabelValues(variant).Inc()
	if withMemo {
		m.memosDisplayedTotal.Inc()
	}
}

// RecordWalkerThrottled records a walker spawn skipped by the throttle.
func (m *Metrics) RecordWalkerThrottled() {
	m.walkersThrottledTotal.Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(delta float64) {
	m.sseActiveConnections.Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(eventType string) {
	m.sseEventsSent.WithLabelValues(eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
