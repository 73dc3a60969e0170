// Package spatial computes latitude-weighted sums and regional averages of
// gridded response fields under a region mask.
package spatial

import (
	"fmt"
	"math"

	"crop-stress-lab/internal/domain"
)

// Weights returns cos(latitude) per latitude row.
func Weights(g domain.Grid) []float64 {
	w := make([]float64, len(g.Lat))
	for i, lat := range g.Lat {
		w[i] = math.Cos(lat * math.Pi / 180)
	}
	return w
}

// Sum returns the latitude-weighted sum of values*mask over the grid.
// Cells whose product is NaN are skipped, so an all-NaN input sums to 0.
func Sum(values, mask []float64, g domain.Grid) (float64, error) {
	cells := g.Cells()
	if len(values) != cells || len(mask) != cells {
		return 0, fmt.Errorf("%w: %d values and %d mask cells for %d grid cells",
			domain.ErrShapeMismatch, len(values), len(mask), cells)
	}
	w := Weights(g)
	nlon := g.NLon()
	var sum float64
	for c := 0; c < cells; c++ {
		p := values[c] * mask[c] * w[c/nlon]
		if math.IsNaN(p) {
			continue
		}
		sum += p
	}
	return sum, nil
}

// Aggregator averages response samples under one mask. The weighted mask
// support is computed once and reused for every sample.
type Aggregator struct {
	cells   []int
	weights []float64 // mask * cos(lat) at cells
	total   float64
}

// NewAggregator prepares the weighted support of mask on grid. The
// normaliser is the weighted Sum of the mask itself.
func NewAggregator(mask domain.Field2D) (*Aggregator, error) {
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	ones := make([]float64, len(mask.Values))
	for i := range ones {
		ones[i] = 1
	}
	total, err := Sum(ones, mask.Values, mask.Grid)
	if err != nil {
		return nil, err
	}
	w := Weights(mask.Grid)
	nlon := mask.Grid.NLon()
	a := &Aggregator{total: total}
	for c, m := range mask.Values {
		wm := m * w[c/nlon]
		if wm == 0 || math.IsNaN(wm) {
			continue
		}
		a.cells = append(a.cells, c)
		a.weights = append(a.weights, wm)
	}
	return a, nil
}

// Empty reports whether the mask carries no weight.
func (a *Aggregator) Empty() bool { return a.total == 0 }

// Average returns Sum(sample*mask)/Sum(mask) for one lat x lon sample.
// An empty mask gives NaN.
func (a *Aggregator) Average(sample []float64) float64 {
	if a.Empty() {
		return math.NaN()
	}
	var sum float64
	for i, c := range a.cells {
		p := sample[c] * a.weights[i]
		if math.IsNaN(p) {
			continue
		}
		sum += p
	}
	return sum / a.total
}

// RegionalAverage returns the masked area-weighted mean of every sample of
// field. When the mask has zero weight every entry is NaN.
func RegionalAverage(field *domain.ResponseField, mask domain.Field2D) ([]float64, error) {
	if err := domain.CheckSameGrid(field.Grid, mask.Grid); err != nil {
		return nil, err
	}
	agg, err := NewAggregator(mask)
	if err != nil {
		return nil, err
	}
	out := make([]float64, field.Samples())
	for s := range out {
		out[s] = agg.Average(field.Sample(s))
	}
	return out, nil
}
