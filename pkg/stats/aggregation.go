package stats

import (
	"encoding/json"
	"fmt"
	"math"
)

// AggregationKind selects how a set of samples folds into one value. Plain
// kinds serialize as their name; the percentile kind carries its rank and
// serializes as {"percentile": p}.
type AggregationKind struct {
	op         string
	percentile float64
}

const (
	opSum        = "sum"
	opAverage    = "average"
	opMin        = "min"
	opMax        = "max"
	opCount      = "count"
	opPercentile = "percentile"
	opStdDev     = "std_dev"
)

// Sum adds every sample.
func Sum() AggregationKind { return AggregationKind{op: opSum} }

// Average takes the arithmetic mean.
func Average() AggregationKind { return AggregationKind{op: opAverage} }

// Min takes the smallest sample; the empty fold is +MaxFloat64.
func Min() AggregationKind { return AggregationKind{op: opMin} }

// Max takes the largest sample; the empty fold is -MaxFloat64.
func Max() AggregationKind { return AggregationKind{op: opMax} }

// Count reports the number of samples.
func Count() AggregationKind { return AggregationKind{op: opCount} }

// StandardDeviation takes the sample standard deviation.
func StandardDeviation() AggregationKind { return AggregationKind{op: opStdDev} }

// PercentileOf takes the nearest-rank percentile at p in [0, 1].
func PercentileOf(p float64) AggregationKind {
	return AggregationKind{op: opPercentile, percentile: p}
}

func (k AggregationKind) String() string {
	if k.op == opPercentile {
		return fmt.Sprintf("percentile(%g)", k.percentile)
	}
	return k.op
}

func (k AggregationKind) MarshalJSON() ([]byte, error) {
	switch k.op {
	case opSum, opAverage, opMin, opMax, opCount, opStdDev:
		return json.Marshal(k.op)
	case opPercentile:
		return json.Marshal(map[string]float64{opPercentile: k.percentile})
	default:
		return nil, fmt.Errorf("unknown aggregation kind %q", k.op)
	}
}

func (k *AggregationKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		switch name {
		case opSum, opAverage, opMin, opMax, opCount, opStdDev:
			*k = AggregationKind{op: name}
			return nil
		default:
			return fmt.Errorf("unknown aggregation kind %q", name)
		}
	}

	var tagged map[string]float64
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("failed to decode aggregation kind: %w", err)
	}
	p, ok := tagged[opPercentile]
	if !ok || len(tagged) != 1 {
		return fmt.Errorf("malformed aggregation kind %s", data)
	}
	*k = AggregationKind{op: opPercentile, percentile: p}
	return nil
}

// Aggregate folds values according to kind. Min and Max of an empty input
// return their fold identities (+MaxFloat64 and -MaxFloat64 respectively);
// every other kind returns 0.
func Aggregate(kind AggregationKind, values []float64) float64 {
	switch kind.op {
	case opSum:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	case opAverage:
		return Mean(values)
	case opMin:
		min := math.MaxFloat64
		for _, v := range values {
			if v < min {
				min = v
			}
		}
		return min
	case opMax:
		max := -math.MaxFloat64
		for _, v := range values {
			if v > max {
				max = v
			}
		}
		return max
	case opCount:
		return float64(len(values))
	case opPercentile:
		return Percentile(values, kind.percentile)
	case opStdDev:
		return StdDev(values)
	default:
		return 0
	}
}
