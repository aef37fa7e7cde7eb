package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRPCCall("getBlock", "success", "mainnet", 0.1)
		m.RecordRateLimitHit("mainnet")
		m.RecordRPCRetry("getBlock", "timeout_or_error")
		m.RecordLookupTable("skipped")
		m.RecordMetadataResolution("metaplex", "hit")
		m.RecordTokenAccountsListed("tokenkeg", 3)
		m.RecordBlockScanned("ok")
		m.RecordBlockSummary(1, 2, 3)
		m.RecordHTTPRequest("/metrics", "GET", 200, 0.01)
		m.RecordNATSPublish("blocks.1", "success", 0.01)
	})
}

func TestRecordRPCCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRPCCall("getAccountInfo", "success", "mainnet", 0.2)
	m.RecordRPCCall("getAccountInfo", "success", "mainnet", 0.3)
	m.RecordRPCCall("getAccountInfo", "error", "mainnet", 0.1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.solanaRPCCallsTotal.WithLabelValues("getAccountInfo", "success", "mainnet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.solanaRPCCallsTotal.WithLabelValues("getAccountInfo", "error", "mainnet")))
}

func TestResolutionCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordLookupTable("resolved")
	m.RecordLookupTable("skipped")
	m.RecordLookupTable("skipped")
	m.RecordMetadataResolution("token2022", "miss")
	m.RecordBlockScanned("skipped")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookupTablesTotal.WithLabelValues("resolved")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookupTablesTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metadataResolutionsTotal.WithLabelValues("token2022", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.blocksScannedTotal.WithLabelValues("skipped")))
}

func TestStatusCodeToString(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{302, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{99, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCodeToString(tt.code))
	}
}

func TestHandlerServesAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RecordBlockScanned("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(m, reg).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "blocks_scanned_total"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/metrics", "GET", "2xx")))
}

func TestTimer(t *testing.T) {
	var got float64
	done := Timer(time.Now().Add(-time.Second), func(d float64) { got = d })
	done()
	assert.GreaterOrEqual(t, got, 1.0)
}
