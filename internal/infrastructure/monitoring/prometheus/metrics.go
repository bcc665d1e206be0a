package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics for the registration service.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Compliance domain
	HoursLoggedTotal           CounterVec
	ThresholdCrossingsTotal    CounterVec
	ReportsSubmittedTotal      CounterVec
	ReceiptUploadsTotal        CounterVec
	ViolationsIssuedTotal      CounterVec
	AppealsFiledTotal          CounterVec
	AppealsDecidedTotal        CounterVec
	RegistrationsReviewedTotal CounterVec
	ComplianceScanDuration     HistogramVec
	OverdueRegistrations       GaugeVec

	// Infrastructure
	DBConnectionPoolSize   GaugeVec
	DBConnectionPoolActive GaugeVec
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	EventPublishDuration   HistogramVec
	EventProcessDuration   HistogramVec

	// System health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultScanDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics on the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	m.HoursLoggedTotal = collector.RegisterCounter("hours_logged_total", "Hour log entries accepted", "quarter")
	m.ThresholdCrossingsTotal = collector.RegisterCounter("threshold_crossings_total", "Quarterly registration threshold crossings", "quarter")
	m.ReportsSubmittedTotal = collector.RegisterCounter("reports_submitted_total", "Expense reports submitted", "status")
	m.ReceiptUploadsTotal = collector.RegisterCounter("receipt_uploads_total", "Receipt attachments uploaded", "content_type")
	m.ViolationsIssuedTotal = collector.RegisterCounter("violations_issued_total", "Violations issued", "type")
	m.AppealsFiledTotal = collector.RegisterCounter("appeals_filed_total", "Appeals filed")
	m.AppealsDecidedTotal = collector.RegisterCounter("appeals_decided_total", "Appeals decided", "outcome")
	m.RegistrationsReviewedTotal = collector.RegisterCounter("registrations_reviewed_total", "Registration reviews completed", "status")
	m.ComplianceScanDuration = collector.RegisterHistogram("compliance_scan_duration_seconds", "Compliance scan duration", DefaultScanDurationBuckets, "scan_type")
	m.OverdueRegistrations = collector.RegisterGauge("overdue_registrations", "Lobbyists past their registration deadline", "quarter")

	m.DBConnectionPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.EventPublishDuration = collector.RegisterHistogram("event_publish_duration_seconds", "Event publish duration", DefaultHTTPDurationBuckets, "topic")
	m.EventProcessDuration = collector.RegisterHistogram("event_process_duration_seconds", "Event processing duration", DefaultHTTPDurationBuckets, "topic")

	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type", "severity")

	return m
}

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordThresholdCrossing records a lobbyist crossing the quarterly
// registration threshold.
func RecordThresholdCrossing(metrics *AppMetrics, quarter string) {
	metrics.ThresholdCrossingsTotal.WithLabelValues(quarter).Inc()
}

// RecordViolationIssued records an issued violation by type.
func RecordViolationIssued(metrics *AppMetrics, violationType string) {
	metrics.ViolationsIssuedTotal.WithLabelValues(violationType).Inc()
}

// RecordAppealDecided records a decided appeal by outcome.
func RecordAppealDecided(metrics *AppMetrics, outcome string) {
	metrics.AppealsDecidedTotal.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records a database query duration; errors also bump the
// error counter.
func RecordDBQuery(metrics *AppMetrics, db, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(db, "query_error", "error").Inc()
	}
}

// RecordCacheAccess records a cache hit or miss.
func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordError records an application error by component and severity.
func RecordError(metrics *AppMetrics, component, errorType, severity string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType, severity).Inc()
}
