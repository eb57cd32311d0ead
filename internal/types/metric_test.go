package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetricKind(t *testing.T) {
	tests := []struct {
		name    string
		want    MetricKind
		wantErr bool
	}{
		{name: "counter", want: MetricCounter},
		{name: "gauge", want: MetricGauge},
		{name: "histogram", want: MetricHistogram},
		{name: "summary", want: MetricSummary},
		{name: "timer", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := ParseMetricKind(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestMetricValue_Float64(t *testing.T) {
	tests := []struct {
		name  string
		value MetricValue
		want  float64
	}{
		{name: "counter", value: NewCounter(7), want: 7},
		{name: "gauge", value: NewGauge(2.5), want: 2.5},
		{name: "histogram mean", value: NewHistogram([]float64{1, 2, 3}), want: 2},
		{name: "empty histogram", value: NewHistogram(nil), want: 0},
		{name: "summary avg", value: NewSummary(10, 4, 2.5), want: 2.5},
		{name: "unknown kind", value: MetricValue{Kind: MetricKind(9)}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.value.Float64(), 1e-9)
		})
	}
}

func TestMetricValue_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value MetricValue
		json  string
	}{
		{name: "counter", value: NewCounter(3), json: `{"counter":3}`},
		{name: "gauge", value: NewGauge(1.5), json: `{"gauge":1.5}`},
		{name: "histogram", value: NewHistogram([]float64{1, 2}), json: `{"histogram":[1,2]}`},
		{
			name:  "summary",
			value: NewSummary(6, 3, 2),
			json:  `{"summary":{"sum":6,"count":3,"avg":2}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(data))

			var decoded MetricValue
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tt.value.Kind, decoded.Kind)
			assert.InDelta(t, tt.value.Float64(), decoded.Float64(), 1e-9)
		})
	}
}

func TestMetricValue_UnmarshalNoVariant(t *testing.T) {
	var value MetricValue
	err := json.Unmarshal([]byte(`{}`), &value)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no variant tag")
}

func TestMetricValue_MarshalEmptyHistogram(t *testing.T) {
	data, err := json.Marshal(NewHistogram(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"histogram":[]}`, string(data))
}

func TestNewAppConfig(t *testing.T) {
	app := NewAppConfig("dex-aggregator", "C", "https://dex.example")

	assert.Equal(t, "dex-aggregator", app.ApplicationID)
	assert.Equal(t, "C", app.ChainID)
	assert.Equal(t, "https://dex.example", app.Endpoint)
	assert.True(t, app.Enabled)
	assert.Empty(t, app.CustomMetrics)
	assert.Zero(t, app.Priority)
}
