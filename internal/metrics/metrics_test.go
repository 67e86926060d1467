package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/csvconvert/internal/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveIngest(t *testing.T) {
	m := New(nil, nil)

	m.ObserveIngest(core.IngestResult{Status: core.StatusParsed, Rows: 12, Duration: time.Millisecond})
	m.ObserveIngest(core.IngestResult{Status: core.StatusParsed, Rows: 3})
	m.ObserveIngest(core.IngestResult{Status: core.StatusFailed, Failure: core.FailureInvalidFormat})
	m.ObserveIngest(core.IngestResult{Status: core.StatusEmpty, Failure: core.FailureEmpty})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestsTotal.WithLabelValues("parsed", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestsTotal.WithLabelValues("failed", "invalid_format")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestsTotal.WithLabelValues("empty", "empty_result")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.rowsParsed))
	assert.Equal(t, 1, testutil.CollectAndCount(m.parseDuration))
}

func TestObserveExport(t *testing.T) {
	m := New(nil, nil)

	m.ObserveExport("json", OutcomeOK, 100)
	m.ObserveExport("json", OutcomeOK, 50)
	m.ObserveExport("xml", OutcomeEmpty, 0)
	m.ObserveExport("xml", OutcomeError, 999)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("json", OutcomeOK)))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.exportBytes.WithLabelValues("json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("xml", OutcomeEmpty)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.exportBytes.WithLabelValues("xml")))
}

func TestGauges(t *testing.T) {
	m := New(func() int { return 7 }, func() int { return 2 })

	expected := `
# HELP csvconvert_sessions Live conversion sessions.
# TYPE csvconvert_sessions gauge
csvconvert_sessions 7
# HELP csvconvert_parses_in_flight Parses holding a limiter slot.
# TYPE csvconvert_parses_in_flight gauge
csvconvert_parses_in_flight 2
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"csvconvert_sessions", "csvconvert_parses_in_flight")
	assert.NoError(t, err)
}

func TestHandler(t *testing.T) {
	m := New(nil, nil)
	m.ObserveRequest("/api/upload", http.MethodPost, http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest("", http.MethodGet, http.StatusNotFound, time.Millisecond)
	m.RateLimited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `csvconvert_http_requests_total{code="200",method="POST",route="/api/upload"} 1`)
	assert.Contains(t, string(body), `route="unmatched"`)
	assert.Contains(t, string(body), "csvconvert_rate_limited_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
