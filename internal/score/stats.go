package score

import (
	"math"
	"sort"
)

// Stats summarizes a set of chart values
type Stats struct {
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

// Median returns the middle value, or the mean of the two middle values for
// an even count. An empty slice yields 0.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	m := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[m-1] + sorted[m]) / 2
	}
	return sorted[m]
}

// Summarize computes average, median, min and max over values, skipping NaN.
func Summarize(values []float64) Stats {
	vals := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return Stats{}
	}

	sum := 0.0
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	return Stats{
		Average: sum / float64(len(vals)),
		Median:  Median(vals),
		Min:     lo,
		Max:     hi,
		Count:   len(vals),
	}
}
