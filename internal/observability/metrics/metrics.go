package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "lottery_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	bookTransitionsTotal *prometheus.CounterVec

	countsRecordedTotal *prometheus.CounterVec
	countsRecordLatency *prometheus.HistogramVec
	countsFlaggedTotal  *prometheus.CounterVec
	soldOutTotal        prometheus.Counter

	settlementsTotal   *prometheus.CounterVec
	settlementLatency  *prometheus.HistogramVec
	settlementApproved prometheus.Counter

	exportsTotal  *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	onlineReportsTotal *prometheus.CounterVec

	alertsSentTotal *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by route and status class",
			},
			[]string{"route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		)

		bookTransitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "book_transitions_total",
				Help: "Total book lifecycle transitions by target status and result",
			},
			[]string{"status", "result"},
		)

		countsRecordedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "counts_recorded_total",
				Help: "Total daily counts recorded by result",
			},
			[]string{"result"},
		)
		countsRecordLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "counts_record_latency_seconds",
				Help:    "Daily count recording latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		countsFlaggedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "counts_flagged_total",
				Help: "Total flagged counts by kind",
			},
			[]string{"kind"},
		)
		soldOutTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sold_out_detected_total",
				Help: "Total sold-out detections from counts or manager action",
			},
		)

		settlementsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlements_total",
				Help: "Total settlement calculations by result",
			},
			[]string{"result"},
		)
		settlementLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_latency_seconds",
				Help:    "Settlement calculation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		settlementApproved = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlements_approved_total",
				Help: "Total settlements approved",
			},
		)

		exportsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "exports_total",
				Help: "Total settlement report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Settlement report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		onlineReportsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "online_reports_total",
				Help: "Total online sales reports submitted by result",
			},
			[]string{"result"},
		)

		alertsSentTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "count_alerts_total",
				Help: "Total count alerts by event type",
			},
			[]string{"event"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			bookTransitionsTotal,
			countsRecordedTotal,
			countsRecordLatency,
			countsFlaggedTotal,
			soldOutTotal,
			settlementsTotal,
			settlementLatency,
			settlementApproved,
			exportsTotal,
			exportLatency,
			onlineReportsTotal,
			alertsSentTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveHTTP records request duration and status class for a route.
func ObserveHTTP(route, status string, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(route, status).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(route).Observe(duration.Seconds())
	}
}

// IncBookTransition increments book transition counters.
func IncBookTransition(status, result string) {
	if status == "" {
		status = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if bookTransitionsTotal != nil {
		bookTransitionsTotal.WithLabelValues(status, result).Inc()
	}
}

// ObserveCountRecorded records count submission latency and result.
func ObserveCountRecorded(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if countsRecordedTotal != nil {
		countsRecordedTotal.WithLabelValues(result).Inc()
	}
	if countsRecordLatency != nil {
		countsRecordLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncCountFlagged increments flagged count counters by kind.
func IncCountFlagged(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if countsFlaggedTotal != nil {
		countsFlaggedTotal.WithLabelValues(kind).Inc()
	}
}

// IncSoldOutDetected increments the sold-out detection counter.
func IncSoldOutDetected() {
	if soldOutTotal != nil {
		soldOutTotal.Inc()
	}
}

// ObserveSettlement records settlement calculation latency and result.
func ObserveSettlement(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if settlementsTotal != nil {
		settlementsTotal.WithLabelValues(result).Inc()
	}
	if settlementLatency != nil {
		settlementLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncSettlementApproved increments the approval counter.
func IncSettlementApproved() {
	if settlementApproved != nil {
		settlementApproved.Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportsTotal != nil {
		exportsTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncOnlineReport increments online sales report counters.
func IncOnlineReport(result string) {
	if result == "" {
		result = resultSuccess
	}
	if onlineReportsTotal != nil {
		onlineReportsTotal.WithLabelValues(result).Inc()
	}
}

// IncAlertSent increments count alert counters by event type.
func IncAlertSent(event string) {
	if event == "" {
		event = "unknown"
	}
	if alertsSentTotal != nil {
		alertsSentTotal.WithLabelValues(event).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
