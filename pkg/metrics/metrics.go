package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "monitor"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"

	Ingest   = "ingest"
	Archive  = "archive"
	Alerts   = "alerts"
	Snapshot = "snapshot"
	Consumer = "consumer"
)

// Labels holds constant labels applied to all metrics.
// These are useful for distinguishing metrics from multiple monitor instances.
type Labels struct {
	Instance      string // Instance identifier (e.g., "monitord-1")
	Environment   string // Deployment environment (e.g., "production", "staging", "development")
	Region        string // Cloud region (e.g., "us-east-1", "eu-west-1")
	CloudProvider string // Cloud provider (e.g., "aws", "oci", "gcp")
}

// toPrometheusLabels converts Labels to prometheus.Labels map.
// Only non-empty labels are included to avoid empty label values.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.Instance != "" {
		labels["instance_id"] = l.Instance
	}
	if l.Environment != "" {
		labels["environment"] = l.Environment
	}
	if l.Region != "" {
		labels["region"] = l.Region
	}
	if l.CloudProvider != "" {
		labels["cloud_provider"] = l.CloudProvider
	}
	return labels
}

type Metrics struct {
	// Store state
	eventCount       prometheus.Gauge
	lifetimeCaptured prometheus.Gauge
	currentBlock     prometheus.Gauge
	merkleLeaves     prometheus.Gauge
	applications     prometheus.Gauge

	// Ingestion counters
	eventsCaptured  *prometheus.CounterVec // by source_app
	eventsRejected  *prometheus.CounterVec // by reason
	batchesIngested prometheus.Counter
	errors          *prometheus.CounterVec

	// Archive (ClickHouse) metrics
	archiveRows     prometheus.Counter
	archiveFailures prometheus.Counter

	// Alert publishing metrics
	alertsPublished *prometheus.CounterVec // by severity, status

	// Snapshot persistence metrics
	snapshotWrites   *prometheus.CounterVec // by status
	snapshotDuration prometheus.Histogram

	// Consumer message processing metrics
	messagesReceived          *prometheus.CounterVec   // by type
	messagesProcessed         *prometheus.CounterVec   // by type, status
	messageProcessingDuration *prometheus.HistogramVec // by type
	messagesInFlight          prometheus.Gauge
	unknownMessages           prometheus.Counter
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
// Returns an error if any metric registration fails.
// For metrics with constant labels (e.g., instance_id), use NewWithLabels instead.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
// This is useful when running multiple monitor instances and needing to filter by instance or environment.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	// Wrap the registerer with constant labels if any are provided
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

// newMetrics is the internal constructor that creates and registers all metrics.
func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		eventCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "event_count",
			Help:      "Number of events currently held in the store",
		}),
		lifetimeCaptured: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "lifetime_captured",
			Help:      "Total events admitted since service start, surviving clears",
		}),
		currentBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "current_block",
			Help:      "Current rate-limiting block height",
		}),
		merkleLeaves: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "merkle_leaves",
			Help:      "Number of leaves in the integrity index",
		}),
		applications: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "applications",
			Help:      "Number of registered applications",
		}),
		eventsCaptured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Ingest,
			Name:      "events_captured_total",
			Help:      "Total events admitted by source application",
		}, []string{"source_app"}),
		eventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Ingest,
			Name:      "events_rejected_total",
			Help:      "Total events rejected by reason",
		}, []string{"reason"}),
		batchesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Ingest,
			Name:      "batches_total",
			Help:      "Total event batches processed",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"type"}),
		archiveRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Archive,
			Name:      "rows_written_total",
			Help:      "Total event rows handed to the ClickHouse archive",
		}),
		archiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Archive,
			Name:      "write_failures_total",
			Help:      "Total failed archive writes",
		}),
		alertsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Alerts,
			Name:      "published_total",
			Help:      "Total alerts published by severity and status",
		}, []string{"severity", "status"}),
		snapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Snapshot,
			Name:      "writes_total",
			Help:      "Total snapshot writes by status",
		}, []string{"status"}),
		snapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Snapshot,
			Name:      "write_duration_seconds",
			Help:      "Time to serialize and persist a state snapshot",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Consumer,
			Name:      "messages_received_total",
			Help:      "Total messages received by envelope type",
		}, []string{"type"}),
		messagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Consumer,
			Name:      "messages_processed_total",
			Help:      "Total messages processed by envelope type and status",
		}, []string{"type", "status"}),
		messageProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Consumer,
			Name:      "message_processing_duration_seconds",
			Help:      "Message processing duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"type"}),
		messagesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Consumer,
			Name:      "messages_in_flight",
			Help:      "Number of messages currently being processed",
		}),
		unknownMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Consumer,
			Name:      "unknown_messages_total",
			Help:      "Total messages with an unrecognized envelope type",
		}),
	}

	err := errors.Join(
		reg.Register(m.eventCount),
		reg.Register(m.lifetimeCaptured),
		reg.Register(m.currentBlock),
		reg.Register(m.merkleLeaves),
		reg.Register(m.applications),
		reg.Register(m.eventsCaptured),
		reg.Register(m.eventsRejected),
		reg.Register(m.batchesIngested),
		reg.Register(m.errors),
		reg.Register(m.archiveRows),
		reg.Register(m.archiveFailures),
		reg.Register(m.alertsPublished),
		reg.Register(m.snapshotWrites),
		reg.Register(m.snapshotDuration),
		reg.Register(m.messagesReceived),
		reg.Register(m.messagesProcessed),
		reg.Register(m.messageProcessingDuration),
		reg.Register(m.messagesInFlight),
		reg.Register(m.unknownMessages),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Rejection reason label values.
const (
	ReasonDuplicate       = "duplicate"
	ReasonAppRateLimit    = "app_rate_limit"
	ReasonGlobalRateLimit = "global_rate_limit"
	ReasonBlocked         = "blocked"
	ReasonPaused          = "paused"
	ReasonUnauthorized    = "unauthorized"
	ReasonInvalid         = "invalid"
	ReasonBatchRejected   = "batch_rejected"
)

// IncError increments the error counter for the given error type.
func (m *Metrics) IncError(errType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errType).Inc()
}

// RecordEventCaptured records an admitted event for a source application.
func (m *Metrics) RecordEventCaptured(sourceApp string) {
	if m == nil {
		return
	}
	m.eventsCaptured.WithLabelValues(sourceApp).Inc()
}

// RecordEventRejected records a rejected event by reason.
func (m *Metrics) RecordEventRejected(reason string) {
	if m == nil {
		return
	}
	m.eventsRejected.WithLabelValues(reason).Inc()
}

// RecordBatch records a processed event batch.
func (m *Metrics) RecordBatch() {
	if m == nil {
		return
	}
	m.batchesIngested.Inc()
}

// UpdateStoreMetrics updates the store state gauges.
func (m *Metrics) UpdateStoreMetrics(eventCount, lifetimeCaptured, currentBlock uint64, merkleLeaves, applications int) {
	if m == nil {
		return
	}
	m.eventCount.Set(float64(eventCount))
	m.lifetimeCaptured.Set(float64(lifetimeCaptured))
	m.currentBlock.Set(float64(currentBlock))
	m.merkleLeaves.Set(float64(merkleLeaves))
	m.applications.Set(float64(applications))
}

// RecordArchiveWrite records event rows handed to the archive.
func (m *Metrics) RecordArchiveWrite(rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.archiveFailures.Inc()
		return
	}
	m.archiveRows.Add(float64(rows))
}

// RecordAlertPublished records an alert publication outcome.
func (m *Metrics) RecordAlertPublished(severity string, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.alertsPublished.WithLabelValues(severity, status).Inc()
}

// RecordSnapshotWrite records a snapshot persistence outcome.
func (m *Metrics) RecordSnapshotWrite(err error, durationSeconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.snapshotWrites.WithLabelValues(status).Inc()
	m.snapshotDuration.Observe(durationSeconds)
}

// RecordMessageReceived records a consumed message by envelope type.
func (m *Metrics) RecordMessageReceived(msgType string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(msgType).Inc()
}

// RecordMessageProcessed records a message processing outcome.
func (m *Metrics) RecordMessageProcessed(msgType string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.messagesProcessed.WithLabelValues(msgType, status).Inc()
	m.messageProcessingDuration.WithLabelValues(msgType).Observe(durationSeconds)
}

// IncMessagesInFlight increments the in-flight message gauge.
func (m *Metrics) IncMessagesInFlight() {
	if m == nil {
		return
	}
	m.messagesInFlight.Inc()
}

// DecMessagesInFlight decrements the in-flight message gauge.
func (m *Metrics) DecMessagesInFlight() {
	if m == nil {
		return
	}
	m.messagesInFlight.Dec()
}

// IncreaseUnknownMessageCount counts a message whose envelope type is not recognized.
func (m *Metrics) IncreaseUnknownMessageCount() {
	if m == nil {
		return
	}
	m.unknownMessages.Inc()
}
