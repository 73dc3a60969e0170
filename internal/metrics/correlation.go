package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RankCorrelation returns the Spearman rank correlation of x and y.
// Pairs with NaN on either side are dropped; ties get average ranks.
// Undefined results (fewer than two pairs, a constant series) are reported as 0.
func RankCorrelation(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}

	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return 0
	}

	r := stat.Correlation(ranks(xs), ranks(ys), nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	// Clamp rounding noise.
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r
}

// ranks returns 1-based ranks with ties sharing their average rank.
func ranks(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[order[k]] = avg
		}
		i = j + 1
	}
	return out
}
