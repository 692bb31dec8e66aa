package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for ReadingsWritten.
const (
	ResultOK                = "ok"
	ResultValidationError   = "validation_error"
	ResultInvalidIdentifier = "invalid_identifier"
	ResultUnknownDevice     = "unknown_device"
	ResultStorageError      = "storage_error"
	ResultUnavailable       = "unavailable"
)

var (
	// Ingestion metrics
	ReadingsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempwatch_readings_written_total",
			Help: "Total number of write requests by result",
		},
		[]string{"result"},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tempwatch_ingest_duration_seconds",
			Help:    "Time from write request to durable append in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempwatch_sink_errors_total",
			Help: "Total number of failed mirror writes by sink",
		},
		[]string{"sink"},
	)

	// Live metrics
	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tempwatch_live_subscribers",
			Help: "Number of connected live subscribers",
		},
	)

	EventsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tempwatch_events_published_total",
			Help: "Total number of events published to the hub",
		},
	)

	DeliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tempwatch_delivery_failures_total",
			Help: "Total number of subscribers dropped after a failed delivery",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempwatch_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tempwatch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(ReadingsWritten)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(SinkErrors)
	prometheus.MustRegister(LiveSubscribers)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(DeliveryFailures)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation for a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since NewTimer.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed seconds in o.
func (t *Timer) ObserveDuration(o prometheus.Observer) {
	o.Observe(t.Duration().Seconds())
}
