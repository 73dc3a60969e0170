// Package metrics reduces stress tensors to per-reporter summary statistics.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentile uses linear interpolation between order statistics.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// PercentileOf sorts a copy of values and returns the p-th percentile
// (p in 0..1). Any NaN in values makes the result NaN.
func PercentileOf(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	for _, v := range sorted {
		if math.IsNaN(v) {
			return math.NaN()
		}
	}
	sort.Float64s(sorted)
	return Percentile(sorted, p)
}

// NanPercentile returns the p-th percentile (p in 0..1) ignoring NaN.
// All-NaN or empty input gives NaN.
func NanPercentile(values []float64, p float64) float64 {
	finite := dropNaN(values)
	sort.Float64s(finite)
	return Percentile(finite, p)
}

// NanSum sums values, skipping NaN.
func NanSum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum
}

// NanMean averages values, skipping NaN. All-NaN or empty input gives NaN.
func NanMean(values []float64) float64 {
	finite := dropNaN(values)
	if len(finite) == 0 {
		return math.NaN()
	}
	return stat.Mean(finite, nil)
}

// NanMax returns the maximum, skipping NaN. All-NaN or empty input gives NaN.
func NanMax(values []float64) float64 {
	m := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(m) || v > m {
			m = v
		}
	}
	return m
}

// populationVariance is the ddof=0 variance; NaN propagates.
func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.PopVariance(values, nil)
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
