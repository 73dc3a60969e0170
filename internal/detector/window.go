package detector

import (
	"fmt"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/metrics"
)

// Reducer collapses the values of one cell across a window's time steps.
type Reducer func(values []float64) float64

// Windowed restricts f to the response years and reduces non-overlapping
// windows of windowLen years. Windows start at the first present year; a
// window running past the last present year is dropped.
func Windowed(f *domain.EnsembleField, years domain.YearRange, windowLen int, reduce Reducer) (*domain.ResponseField, error) {
	if windowLen < 1 {
		return nil, fmt.Errorf("%w: window length %d", domain.ErrUnsupportedConfig, windowLen)
	}
	sel := f.SelectYears(years)
	present := sel.Years()
	if len(present) == 0 {
		return nil, fmt.Errorf("%w: no %s data in response years %s", domain.ErrInsufficientData, f.Variable, years)
	}
	first, last := present[0], present[len(present)-1]

	var windows []int
	var steps [][]int
	for start := first; start+windowLen-1 <= last; start += windowLen {
		span := domain.YearRange{First: start, Last: start + windowLen - 1}
		var idx []int
		for t, stamp := range sel.Times {
			if span.Contains(stamp.Year) {
				idx = append(idx, t)
			}
		}
		windows = append(windows, start)
		steps = append(steps, idx)
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: %d response years cannot fill a %d-year window", domain.ErrInsufficientData, len(present), windowLen)
	}

	cells := sel.Grid.Cells()
	out := &domain.ResponseField{
		Grid:    sel.Grid,
		Members: sel.Members,
		Windows: windows,
		Values:  make([]float64, sel.Members*len(windows)*cells),
	}

	buf := make([]float64, 0, len(sel.Times))
	for m := 0; m < sel.Members; m++ {
		for w, idx := range steps {
			dst := out.Sample(out.SampleIndex(m, w))
			for c := 0; c < cells; c++ {
				buf = buf[:0]
				for _, t := range idx {
					buf = append(buf, sel.Values[(m*len(sel.Times)+t)*cells+c])
				}
				dst[c] = reduce(buf)
			}
		}
	}
	return out, nil
}

// WindowMax is the NaN-skipping maximum used for event indicators.
func WindowMax(values []float64) float64 { return metrics.NanMax(values) }

// WindowMean is the NaN-skipping mean used for anomalies.
func WindowMean(values []float64) float64 { return metrics.NanMean(values) }
