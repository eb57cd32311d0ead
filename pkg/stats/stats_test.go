package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(values ...float64) []Point {
	pts := make([]Point, len(values))
	for i, v := range values {
		pts[i] = Point{Timestamp: uint64(i+1) * 1000, Value: v}
	}
	return pts
}

func TestMean(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Mean(nil))
	assert.Equal(t, 3.0, Mean([]float64{1, 2, 3, 4, 5}))
	assert.Equal(t, -2.0, Mean([]float64{-2}))
}

func TestStdDev(t *testing.T) {
	t.Parallel()

	assert.Zero(t, StdDev(nil))
	assert.Zero(t, StdDev([]float64{42}))
	assert.InDelta(t, 1.5811, StdDev([]float64{1, 2, 3, 4, 5}), 1e-4)
	assert.Zero(t, StdDev([]float64{7, 7, 7}))
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.5, 6},
		{0.95, 10},
		{1, 10},
		{-0.5, 1},  // clamped low
		{1.5, 10},  // clamped high
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentile(values, tt.p), "p=%v", tt.p)
	}

	assert.Zero(t, Percentile(nil, 0.5))

	// Input order must not matter.
	assert.Equal(t, 6.0, Percentile([]float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}, 0.5))
}

func TestMovingAverage(t *testing.T) {
	t.Parallel()

	pts := points(1, 2, 3, 4, 5)
	out := MovingAverage(pts, 3)
	require.Len(t, out, 3)

	// Each average is stamped at its window's last sample.
	assert.Equal(t, Point{Timestamp: 3000, Value: 2}, out[0])
	assert.Equal(t, Point{Timestamp: 4000, Value: 3}, out[1])
	assert.Equal(t, Point{Timestamp: 5000, Value: 4}, out[2])

	assert.Nil(t, MovingAverage(pts, 0))
	assert.Nil(t, MovingAverage(pts, 6))
	assert.Len(t, MovingAverage(pts, 5), 1)
}

func TestDetectAnomalies(t *testing.T) {
	t.Parallel()

	pts := points(1, 2, 3, 4, 100)
	anomalies := DetectAnomalies(pts, 1.5)
	require.Len(t, anomalies, 1)
	assert.Equal(t, 4, anomalies[0].Index)
	assert.Equal(t, uint64(5000), anomalies[0].Timestamp)
	assert.Equal(t, 100.0, anomalies[0].Value)
	assert.Greater(t, anomalies[0].ZScore, 1.5)

	// A flat series never produces anomalies.
	assert.Nil(t, DetectAnomalies(points(5, 5, 5, 5), 0.1))
	assert.Nil(t, DetectAnomalies(nil, 1))
}

func TestCorrelation(t *testing.T) {
	t.Parallel()

	xs := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, Correlation(xs, []float64{2, 4, 6, 8, 10}), 1e-9)
	assert.InDelta(t, -1.0, Correlation(xs, []float64{10, 8, 6, 4, 2}), 1e-9)

	// Degenerate inputs yield 0.
	assert.Zero(t, Correlation(xs, []float64{1, 2}))
	assert.Zero(t, Correlation([]float64{1}, []float64{1}))
	assert.Zero(t, Correlation(xs, []float64{3, 3, 3, 3, 3}))
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	values := []float64{4, 1, 3, 2}

	tests := []struct {
		kind AggregationKind
		want float64
	}{
		{Sum(), 10},
		{Average(), 2.5},
		{Min(), 1},
		{Max(), 4},
		{Count(), 4},
		{PercentileOf(0.5), 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Aggregate(tt.kind, values), tt.kind.String())
	}

	assert.InDelta(t, 1.29099, Aggregate(StandardDeviation(), values), 1e-4)
}

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Aggregate(Sum(), nil))
	assert.Zero(t, Aggregate(Average(), nil))
	assert.Zero(t, Aggregate(Count(), nil))
	assert.Zero(t, Aggregate(StandardDeviation(), nil))
	assert.Equal(t, math.MaxFloat64, Aggregate(Min(), nil))
	assert.Equal(t, -math.MaxFloat64, Aggregate(Max(), nil))
}

func TestAggregationKindJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Average())
	require.NoError(t, err)
	assert.JSONEq(t, `"average"`, string(data))

	data, err = json.Marshal(PercentileOf(0.95))
	require.NoError(t, err)
	assert.JSONEq(t, `{"percentile":0.95}`, string(data))

	var k AggregationKind
	require.NoError(t, json.Unmarshal([]byte(`"max"`), &k))
	assert.Equal(t, Max(), k)

	require.NoError(t, json.Unmarshal([]byte(`"std_dev"`), &k))
	assert.Equal(t, StandardDeviation(), k)

	require.NoError(t, json.Unmarshal([]byte(`{"percentile":0.5}`), &k))
	assert.Equal(t, PercentileOf(0.5), k)

	require.Error(t, json.Unmarshal([]byte(`"median"`), &k))
	require.Error(t, json.Unmarshal([]byte(`{"quantile":0.5}`), &k))
}

func TestBucketing(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(60000), BucketStart(60999, 60000))
	assert.Equal(t, uint64(60000), BucketStart(60000, 60000))
	assert.Equal(t, uint64(0), BucketStart(59999, 60000))
	assert.Equal(t, uint64(1234), BucketStart(1234, 0))

	b := BucketFor(61500, 60000)
	assert.Equal(t, Bucket{Start: 60000, End: 120000}, b)
}
