// Package detector converts monthly climate ensembles into per-window stress
// response fields: binary extreme-event indicators or continuous anomalies.
package detector

import (
	"fmt"
	"math"

	"crop-stress-lab/internal/domain"
)

// MonthlyBaseline averages the field over members and over the time steps
// inside years, grouped by calendar month. NaN values are skipped; a month
// without finite values stays NaN.
func MonthlyBaseline(f *domain.EnsembleField, years domain.YearRange) (*domain.MonthlyBaseline, error) {
	cells := f.Grid.Cells()
	sums := make([]float64, 12*cells)
	counts := make([]int, 12*cells)

	matched := 0
	for t, stamp := range f.Times {
		if !years.Contains(stamp.Year) {
			continue
		}
		matched++
		off := (stamp.Month - 1) * cells
		for m := 0; m < f.Members; m++ {
			layer := f.Layer(m, t)
			for c, v := range layer {
				if math.IsNaN(v) {
					continue
				}
				sums[off+c] += v
				counts[off+c]++
			}
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("%w: no %s time steps in baseline years %s", domain.ErrInsufficientData, f.Variable, years)
	}

	b := domain.NewMonthlyBaseline(f.Grid)
	for i := range sums {
		if counts[i] > 0 {
			b.Values[i] = sums[i] / float64(counts[i])
		}
	}
	return b, nil
}

// Anomalies subtracts the baseline of each time step's month.
func Anomalies(f *domain.EnsembleField, b *domain.MonthlyBaseline) (*domain.EnsembleField, error) {
	if err := domain.CheckSameGrid(f.Grid, b.Grid); err != nil {
		return nil, err
	}
	values := make([]float64, len(f.Values))
	for m := 0; m < f.Members; m++ {
		for t, stamp := range f.Times {
			in := f.Layer(m, t)
			base := b.Month(stamp.Month)
			off := (m*len(f.Times) + t) * f.Grid.Cells()
			for c, v := range in {
				values[off+c] = v - base[c]
			}
		}
	}
	return f.WithValues(values), nil
}
