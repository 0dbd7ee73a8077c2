package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// ReportsGenerated counts generated reports by type and format
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesheet_reports_generated_total",
			Help: "Total number of hour reports generated",
		},
		[]string{"report", "format"}, // format: json, xlsx
	)

	// ImportedRows counts time-entry import rows by outcome
	ImportedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesheet_import_rows_total",
			Help: "Total number of time entry import rows processed",
		},
		[]string{"status"}, // status: success, error
	)

	// ReportQueryDuration tracks aggregation query latency in seconds
	ReportQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timesheet_report_query_duration_seconds",
			Help:    "Report aggregation query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"report"},
	)
)

// RecordHTTPRequest records the latency of a served request
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordReport increments the generated report counter
func RecordReport(report, format string) {
	ReportsGenerated.WithLabelValues(report, format).Inc()
}

// RecordImport adds the outcome of an import run to the row counters
func RecordImport(success, failed int) {
	ImportedRows.WithLabelValues("success").Add(float64(success))
	ImportedRows.WithLabelValues("error").Add(float64(failed))
}

// RecordReportQuery records how long a report query took
func RecordReportQuery(report string, duration time.Duration) {
	ReportQueryDuration.WithLabelValues(report).Observe(duration.Seconds())
}
