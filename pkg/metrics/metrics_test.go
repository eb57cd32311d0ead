package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLabels_toPrometheusLabels(t *testing.T) {
	tests := []struct {
		name     string
		labels   Labels
		expected prometheus.Labels
	}{
		{
			name:     "empty labels",
			labels:   Labels{},
			expected: prometheus.Labels{},
		},
		{
			name: "all labels set",
			labels: Labels{
				Instance:      "monitord-1",
				Environment:   "production",
				Region:        "us-east-1",
				CloudProvider: "aws",
			},
			expected: prometheus.Labels{
				"instance_id":    "monitord-1",
				"environment":    "production",
				"region":         "us-east-1",
				"cloud_provider": "aws",
			},
		},
		{
			name: "partial labels",
			labels: Labels{
				Instance:    "monitord-2",
				Environment: "staging",
			},
			expected: prometheus.Labels{
				"instance_id": "monitord-2",
				"environment": "staging",
			},
		},
		{
			name: "empty instance excluded",
			labels: Labels{
				Environment: "test",
			},
			expected: prometheus.Labels{
				"environment": "test",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.labels.toPrometheusLabels()
			require.Equal(t, tt.expected, result)
		})
	}
}

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := New(reg)
	require.NoError(t, err)
	require.NotNil(t, m)

	// Verify metrics are registered by checking the registry
	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metricFamilies)
}

func TestNewWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()

	labels := Labels{
		Instance:    "monitord-1",
		Environment: "test",
	}

	m, err := NewWithLabels(reg, labels)
	require.NoError(t, err)
	require.NotNil(t, m)

	// Update a metric and verify the constant labels are applied
	m.UpdateStoreMetrics(100, 200, 50, 100, 3)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metricFamilies)

	for _, mf := range metricFamilies {
		if mf.GetName() == "monitor_event_count" {
			require.NotEmpty(t, mf.GetMetric())
			metric := mf.GetMetric()[0]

			labelMap := make(map[string]string)
			for _, label := range metric.GetLabel() {
				labelMap[label.GetName()] = label.GetValue()
			}
			require.Equal(t, "monitord-1", labelMap["instance_id"])
			require.Equal(t, "test", labelMap["environment"])
		}
	}
}

func TestNew_RegistrationError(t *testing.T) {
	reg := prometheus.NewRegistry()

	// Register first instance
	_, err := New(reg)
	require.NoError(t, err)

	// Second registration should fail (duplicate metrics)
	m, err := New(reg)
	require.Nil(t, m, "expected nil metrics on duplicate registration")

	var alreadyRegistered prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &alreadyRegistered)
}

func TestMetrics_NilReceiver(t *testing.T) {
	// All methods should handle nil receiver gracefully (no panic)
	var m *Metrics

	require.NotPanics(t, func() {
		m.IncError("test")
		m.RecordEventCaptured("payments")
		m.RecordEventRejected(ReasonDuplicate)
		m.RecordBatch()
		m.UpdateStoreMetrics(1, 2, 3, 4, 5)
		m.RecordArchiveWrite(10, nil)
		m.RecordAlertPublished("critical", nil)
		m.RecordSnapshotWrite(nil, 0.1)
		m.RecordMessageReceived("event.capture")
		m.RecordMessageProcessed("event.capture", nil, 0.01)
		m.IncMessagesInFlight()
		m.DecMessagesInFlight()
		m.IncreaseUnknownMessageCount()
	})
}

func TestMetrics_Ingest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordEventCaptured("payments")
	m.RecordEventCaptured("payments")
	m.RecordEventCaptured("auth")
	m.RecordEventRejected(ReasonDuplicate)
	m.RecordEventRejected(ReasonAppRateLimit)
	m.RecordEventRejected(ReasonAppRateLimit)
	m.RecordBatch()

	require.Equal(t, float64(2), testutil.ToFloat64(m.eventsCaptured.WithLabelValues("payments")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.eventsCaptured.WithLabelValues("auth")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.eventsRejected.WithLabelValues(ReasonDuplicate)))
	require.Equal(t, float64(2), testutil.ToFloat64(m.eventsRejected.WithLabelValues(ReasonAppRateLimit)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.batchesIngested))
}

func TestMetrics_UpdateStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.UpdateStoreMetrics(100, 120, 55, 100, 3)

	require.Equal(t, float64(100), testutil.ToFloat64(m.eventCount))
	require.Equal(t, float64(120), testutil.ToFloat64(m.lifetimeCaptured))
	require.Equal(t, float64(55), testutil.ToFloat64(m.currentBlock))
	require.Equal(t, float64(100), testutil.ToFloat64(m.merkleLeaves))
	require.Equal(t, float64(3), testutil.ToFloat64(m.applications))
}

func TestMetrics_ArchiveWrite(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordArchiveWrite(10, nil)
	m.RecordArchiveWrite(5, nil)
	m.RecordArchiveWrite(3, errors.New("send failed"))

	require.Equal(t, float64(15), testutil.ToFloat64(m.archiveRows))
	require.Equal(t, float64(1), testutil.ToFloat64(m.archiveFailures))
}

func TestMetrics_AlertPublished(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordAlertPublished("error", nil)
	m.RecordAlertPublished("critical", nil)
	m.RecordAlertPublished("critical", errors.New("broker down"))

	require.Equal(t, float64(1), testutil.ToFloat64(m.alertsPublished.WithLabelValues("error", StatusSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.alertsPublished.WithLabelValues("critical", StatusSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.alertsPublished.WithLabelValues("critical", StatusError)))
}

func TestMetrics_SnapshotWrite(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordSnapshotWrite(nil, 0.05)
	m.RecordSnapshotWrite(errors.New("timeout"), 1.2)

	require.Equal(t, float64(1), testutil.ToFloat64(m.snapshotWrites.WithLabelValues(StatusSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.snapshotWrites.WithLabelValues(StatusError)))
}

func TestMetrics_MessageProcessing(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordMessageReceived("event.capture")
	m.IncMessagesInFlight()
	m.RecordMessageProcessed("event.capture", nil, 0.002)
	m.DecMessagesInFlight()

	m.RecordMessageReceived("role.assign")
	m.RecordMessageProcessed("role.assign", errors.New("unauthorized"), 0.001)

	m.IncreaseUnknownMessageCount()

	require.Equal(t, float64(1), testutil.ToFloat64(m.messagesReceived.WithLabelValues("event.capture")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.messagesProcessed.WithLabelValues("event.capture", StatusSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.messagesProcessed.WithLabelValues("role.assign", StatusError)))
	require.Equal(t, float64(0), testutil.ToFloat64(m.messagesInFlight))
	require.Equal(t, float64(1), testutil.ToFloat64(m.unknownMessages))
}
