package types

import (
	"encoding/json"
	"fmt"
)

// MetricKind discriminates the MetricValue variants.
type MetricKind uint8

const (
	MetricCounter MetricKind = iota
	MetricGauge
	MetricHistogram
	MetricSummary
)

var metricKindNames = map[MetricKind]string{
	MetricCounter:   "counter",
	MetricGauge:     "gauge",
	MetricHistogram: "histogram",
	MetricSummary:   "summary",
}

func (k MetricKind) String() string {
	if name, ok := metricKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("metric_kind(%d)", uint8(k))
}

// ParseMetricKind maps a kind name to its value.
func ParseMetricKind(name string) (MetricKind, error) {
	for kind, n := range metricKindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown metric kind: %q", name)
}

// MarshalJSON encodes the kind as its name string.
func (k MetricKind) MarshalJSON() ([]byte, error) {
	name, ok := metricKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown metric kind: %d", uint8(k))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a kind from its name string.
func (k *MetricKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, n := range metricKindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown metric kind: %q", name)
}

// SummaryValue is the payload of a summary metric.
type SummaryValue struct {
	Sum   float64 `json:"sum"`
	Count uint64  `json:"count"`
	Avg   float64 `json:"avg"`
}

// MetricValue is a tagged union over the four supported metric shapes.
// Exactly one variant is populated, selected by Kind.
type MetricValue struct {
	Kind    MetricKind
	Counter uint64
	Gauge   float64
	Samples []float64
	Summary SummaryValue
}

// NewCounter returns a counter metric value.
func NewCounter(v uint64) MetricValue {
	return MetricValue{Kind: MetricCounter, Counter: v}
}

// NewGauge returns a gauge metric value.
func NewGauge(v float64) MetricValue {
	return MetricValue{Kind: MetricGauge, Gauge: v}
}

// NewHistogram returns a histogram metric value over the given samples.
func NewHistogram(samples []float64) MetricValue {
	return MetricValue{Kind: MetricHistogram, Samples: samples}
}

// NewSummary returns a summary metric value.
func NewSummary(sum float64, count uint64, avg float64) MetricValue {
	return MetricValue{Kind: MetricSummary, Summary: SummaryValue{Sum: sum, Count: count, Avg: avg}}
}

// Float64 reduces the value to a single float: counters and gauges yield their
// value, histograms the mean of their samples (0 when empty), summaries the
// stored average.
func (m MetricValue) Float64() float64 {
	switch m.Kind {
	case MetricCounter:
		return float64(m.Counter)
	case MetricGauge:
		return m.Gauge
	case MetricHistogram:
		if len(m.Samples) == 0 {
			return 0
		}
		var sum float64
		for _, s := range m.Samples {
			sum += s
		}
		return sum / float64(len(m.Samples))
	case MetricSummary:
		return m.Summary.Avg
	default:
		return 0
	}
}

type metricValueJSON struct {
	Counter   *uint64       `json:"counter,omitempty"`
	Gauge     *float64      `json:"gauge,omitempty"`
	Histogram []float64     `json:"histogram,omitempty"`
	Summary   *SummaryValue `json:"summary,omitempty"`
}

// MarshalJSON encodes the populated variant under its tag key.
func (m MetricValue) MarshalJSON() ([]byte, error) {
	var out metricValueJSON
	switch m.Kind {
	case MetricCounter:
		out.Counter = &m.Counter
	case MetricGauge:
		out.Gauge = &m.Gauge
	case MetricHistogram:
		out.Histogram = m.Samples
		if out.Histogram == nil {
			out.Histogram = []float64{}
		}
	case MetricSummary:
		out.Summary = &m.Summary
	default:
		return nil, fmt.Errorf("unknown metric kind: %d", uint8(m.Kind))
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes whichever variant tag is present.
func (m *MetricValue) UnmarshalJSON(data []byte) error {
	var in struct {
		Counter   *uint64       `json:"counter"`
		Gauge     *float64      `json:"gauge"`
		Histogram *[]float64    `json:"histogram"`
		Summary   *SummaryValue `json:"summary"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch {
	case in.Counter != nil:
		*m = NewCounter(*in.Counter)
	case in.Gauge != nil:
		*m = NewGauge(*in.Gauge)
	case in.Histogram != nil:
		*m = NewHistogram(*in.Histogram)
	case in.Summary != nil:
		*m = MetricValue{Kind: MetricSummary, Summary: *in.Summary}
	default:
		return fmt.Errorf("metric value has no variant tag")
	}
	return nil
}

// AggregationMethod selects how a custom metric's samples collapse over time.
type AggregationMethod string

const (
	AggregationSum     AggregationMethod = "sum"
	AggregationAverage AggregationMethod = "average"
	AggregationMin     AggregationMethod = "min"
	AggregationMax     AggregationMethod = "max"
	AggregationLast    AggregationMethod = "last"
)

// MetricDefinition describes a custom metric extracted from event payloads.
type MetricDefinition struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Kind           MetricKind        `json:"kind"`
	ExtractionPath string            `json:"extraction_path"`
	Aggregation    AggregationMethod `json:"aggregation"`
}

// AppConfig is the registry entry for a monitored application.
type AppConfig struct {
	ApplicationID string             `json:"application_id"`
	ChainID       string             `json:"chain_id"`
	Endpoint      string             `json:"endpoint"`
	Enabled       bool               `json:"enabled"`
	CustomMetrics []MetricDefinition `json:"custom_metrics,omitempty"`
	Priority      uint8              `json:"priority"`
	Tags          []string           `json:"tags,omitempty"`
}

// NewAppConfig returns an enabled AppConfig with defaults.
func NewAppConfig(applicationID, chainID, endpoint string) AppConfig {
	return AppConfig{
		ApplicationID: applicationID,
		ChainID:       chainID,
		Endpoint:      endpoint,
		Enabled:       true,
	}
}
