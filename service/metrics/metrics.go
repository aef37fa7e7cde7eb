package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal    *prometheus.CounterVec
	solanaRPCCallDuration  *prometheus.HistogramVec
	solanaRPCRateLimitHits *prometheus.CounterVec
	solanaRPCRetries       *prometheus.CounterVec

	// Resolution Metrics
	lookupTablesTotal        *prometheus.CounterVec
	metadataResolutionsTotal *prometheus.CounterVec
	tokenAccountsListed      *prometheus.HistogramVec

	// Block Scan Metrics
	blocksScannedTotal   *prometheus.CounterVec
	blockComputeUnits    prometheus.Histogram
	blockTransactionsObs *prometheus.HistogramVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

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
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"endpoint"},
		),
		solanaRPCRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_retries_total",
				Help: "Total number of Solana RPC retry attempts",
			},
			[]string{"method", "reason"},
		),

		// Resolution Metrics
		lookupTablesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookup_table_resolutions_total",
				Help: "Address lookup table expansions by outcome",
			},
			[]string{"status"},
		),
		metadataResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_resolutions_total",
				Help: "Token symbol lookups by source and outcome",
			},
			[]string{"source", "status"},
		),
		tokenAccountsListed: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "token_accounts_listed",
				Help:    "Number of token accounts returned per owner listing",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
			},
			[]string{"program"},
		),

		// Block Scan Metrics
		blocksScannedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blocks_scanned_total",
				Help: "Total number of slots scanned by outcome",
			},
			[]string{"status"},
		),
		blockComputeUnits: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "block_compute_units",
				Help:    "Total compute units consumed per block",
				Buckets: prometheus.ExponentialBuckets(1e6, 2, 8),
			},
		),
		blockTransactionsObs: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "block_transactions",
				Help:    "Transactions per block by kind",
				Buckets: []float64{10, 100, 250, 500, 1000, 2000, 5000},
			},
			[]string{"kind"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
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

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	if m == nil {
		return
	}
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	if m == nil {
		return
	}
	m.solanaRPCRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	if m == nil {
		return
	}
	m.solanaRPCRetries.WithLabelValues(method, reason).Inc()
}

// Resolution metric helpers

// RecordLookupTable records one address lookup table expansion ("resolved" or "skipped").
func (m *Metrics) RecordLookupTable(status string) {
	if m == nil {
		return
	}
	m.lookupTablesTotal.WithLabelValues(status).Inc()
}

// RecordMetadataResolution records a symbol lookup against one source.
func (m *Metrics) RecordMetadataResolution(source, status string) {
	if m == nil {
		return
	}
	m.metadataResolutionsTotal.WithLabelValues(source, status).Inc()
}

// RecordTokenAccountsListed records the size of a token account listing.
func (m *Metrics) RecordTokenAccountsListed(program string, count int) {
	if m == nil {
		return
	}
	m.tokenAccountsListed.WithLabelValues(program).Observe(float64(count))
}

// Block scan metric helpers

// RecordBlockScanned records the outcome for one slot of a scan.
func (m *Metrics) RecordBlockScanned(status string) {
	if m == nil {
		return
	}
	m.blocksScannedTotal.WithLabelValues(status).Inc()
}

// RecordBlockSummary records the per-block totals of an aggregated block.
func (m *Metrics) RecordBlockSummary(vote, nonVote int, computeUnits uint64) {
	if m == nil {
		return
	}
	m.blockComputeUnits.Observe(float64(computeUnits))
	m.blockTransactionsObs.WithLabelValues("vote").Observe(float64(vote))
	m.blockTransactionsObs.WithLabelValues("nonvote").Observe(float64(nonVote))
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	if m == nil {
		return
	}
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
