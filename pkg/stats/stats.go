// Package stats provides the pure numeric primitives behind monitor
// analytics: descriptive statistics, nearest-rank percentiles, moving
// averages, z-score anomaly detection and Pearson correlation. Every function
// is deterministic and allocation-light; degenerate inputs produce zero
// values instead of errors.
package stats

import (
	"math"
	"sort"
)

// Point is one timestamped sample.
type Point struct {
	Timestamp uint64  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Mean returns the arithmetic mean, 0 for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator), 0 for
// fewer than two samples.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// Percentile returns the nearest-rank percentile for p in [0, 1]: the sorted
// value at index round(p * (n-1)), clamped into range. Returns 0 for an
// empty input.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Round(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// MovingAverage computes a simple moving average of width window over
// points, stamping each output at the timestamp of its window's last sample.
// Returns nil when window is not positive or exceeds the input length.
func MovingAverage(points []Point, window int) []Point {
	if window <= 0 || len(points) < window {
		return nil
	}
	out := make([]Point, 0, len(points)-window+1)
	var sum float64
	for i, p := range points {
		sum += p.Value
		if i >= window {
			sum -= points[i-window].Value
		}
		if i >= window-1 {
			out = append(out, Point{
				Timestamp: p.Timestamp,
				Value:     sum / float64(window),
			})
		}
	}
	return out
}

// Anomaly flags one sample whose z-score magnitude exceeded the detection
// threshold.
type Anomaly struct {
	Index     int     `json:"index"`
	Timestamp uint64  `json:"timestamp"`
	Value     float64 `json:"value"`
	ZScore    float64 `json:"z_score"`
}

// DetectAnomalies flags every point whose z-score magnitude exceeds
// threshold. The z-score uses the sample standard deviation over the whole
// series; a zero deviation yields no anomalies.
func DetectAnomalies(points []Point, threshold float64) []Anomaly {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	stdDev := StdDev(values)
	if stdDev == 0 {
		return nil
	}
	mean := Mean(values)

	var anomalies []Anomaly
	for i, p := range points {
		z := (p.Value - mean) / stdDev
		if math.Abs(z) > threshold {
			anomalies = append(anomalies, Anomaly{
				Index:     i,
				Timestamp: p.Timestamp,
				Value:     p.Value,
				ZScore:    z,
			})
		}
	}
	return anomalies
}

// Correlation returns the Pearson correlation coefficient between xs and ys.
// Mismatched lengths, fewer than two samples, or a zero deviation in either
// series all yield 0.
func Correlation(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	meanX, meanY := Mean(xs), Mean(ys)

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// BucketStart floors ts onto the bucket grid of the given granularity.
// A zero granularity leaves ts unchanged.
func BucketStart(ts, granularity uint64) uint64 {
	if granularity == 0 {
		return ts
	}
	return ts / granularity * granularity
}

// Bucket is one granularity-aligned time window, inclusive of Start and
// exclusive of End.
type Bucket struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// BucketFor returns the bucket containing ts at the given granularity.
func BucketFor(ts, granularity uint64) Bucket {
	start := BucketStart(ts, granularity)
	return Bucket{Start: start, End: start + granularity}
}
