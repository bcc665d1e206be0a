package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HoursLoggedTotal)
	assert.NotNil(t, m.ThresholdCrossingsTotal)
	assert.NotNil(t, m.ViolationsIssuedTotal)
	assert.NotNil(t, m.AppealsFiledTotal)
	assert.NotNil(t, m.AppealsDecidedTotal)
	assert.NotNil(t, m.RegistrationsReviewedTotal)
	assert.NotNil(t, m.OverdueRegistrations)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordHTTPRequest(m, "POST", "/api/v1/hours", 201, 25*time.Millisecond)
	RecordHTTPRequest(m, "POST", "/api/v1/hours", 201, 30*time.Millisecond)
	RecordHTTPRequest(m, "GET", "/api/v1/violations", 404, 5*time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `lobbyreg_test_http_requests_total{method="POST",path="/api/v1/hours",status_code="201"} 2`)
	assert.Contains(t, output, `lobbyreg_test_http_requests_total{method="GET",path="/api/v1/violations",status_code="404"} 1`)
	assert.Contains(t, output, `lobbyreg_test_http_request_duration_seconds_count{method="POST",path="/api/v1/hours"} 2`)
}

func TestRecordThresholdCrossing(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordThresholdCrossing(m, "Q1")
	RecordThresholdCrossing(m, "Q1")
	RecordThresholdCrossing(m, "Q3")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `lobbyreg_test_threshold_crossings_total{quarter="Q1"} 2`)
	assert.Contains(t, output, `lobbyreg_test_threshold_crossings_total{quarter="Q3"} 1`)
}

func TestRecordViolationAndAppeal(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordViolationIssued(m, "LATE_REPORT")
	RecordViolationIssued(m, "UNREGISTERED_ACTIVITY")
	RecordAppealDecided(m, "UPHELD")
	RecordAppealDecided(m, "OVERTURNED")
	RecordAppealDecided(m, "OVERTURNED")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `lobbyreg_test_violations_issued_total{type="LATE_REPORT"} 1`)
	assert.Contains(t, output, `lobbyreg_test_appeals_decided_total{outcome="OVERTURNED"} 2`)
}

func TestRecordDBQuery(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordDBQuery(m, "postgres", "select", 2*time.Millisecond, nil)
	RecordDBQuery(m, "postgres", "insert", 5*time.Millisecond, errors.New("deadlock"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `lobbyreg_test_db_query_duration_seconds_count{db="postgres",operation="select"} 1`)
	assert.Contains(t, output, `lobbyreg_test_errors_total{component="postgres",error_type="query_error",severity="error"} 1`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordCacheAccess(m, "hours_summary", true)
	RecordCacheAccess(m, "hours_summary", true)
	RecordCacheAccess(m, "hours_summary", false)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `lobbyreg_test_cache_hits_total{cache="hours_summary"} 2`)
	assert.Contains(t, output, `lobbyreg_test_cache_misses_total{cache="hours_summary"} 1`)
}

func TestRecordError(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordError(m, "worker", "scan_failure", "warning")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `lobbyreg_test_errors_total{component="worker",error_type="scan_failure",severity="warning"} 1`)
}
