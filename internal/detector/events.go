package detector

import (
	"fmt"
	"math"
	"sort"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/metrics"
)

// MonthlyThresholds returns, per calendar month and cell, the perc-th
// percentile (0..100) of anomalies over members and baseline-year time steps.
// A NaN among the inputs makes that threshold NaN, so no event can fire.
func MonthlyThresholds(anoms *domain.EnsembleField, years domain.YearRange, perc float64) *domain.MonthlyBaseline {
	cells := anoms.Grid.Cells()
	out := domain.NewMonthlyBaseline(anoms.Grid)

	for month := 1; month <= 12; month++ {
		var steps []int
		for t, stamp := range anoms.Times {
			if stamp.Month == month && years.Contains(stamp.Year) {
				steps = append(steps, t)
			}
		}
		if len(steps) == 0 {
			continue
		}

		sample := make([]float64, 0, anoms.Members*len(steps))
		layer := out.Month(month)
		for c := 0; c < cells; c++ {
			sample = sample[:0]
			for m := 0; m < anoms.Members; m++ {
				for _, t := range steps {
					sample = append(sample, anoms.Values[(m*len(anoms.Times)+t)*cells+c])
				}
			}
			layer[c] = percentileOf(sample, perc/100)
		}
	}
	return out
}

// percentileOf sorts sample in place.
func percentileOf(sample []float64, p float64) float64 {
	for _, v := range sample {
		if math.IsNaN(v) {
			return math.NaN()
		}
	}
	sort.Float64s(sample)
	return metrics.Percentile(sample, p)
}

// Events flags each anomaly against the monthly thresholds of its tail.
// The result has the anomaly field's layout with values 0 or 1.
func Events(anoms *domain.EnsembleField, years domain.YearRange, v domain.VariableThreshold) ([]float64, error) {
	lower := MonthlyThresholds(anoms, years, v.Percentile)
	var upper *domain.MonthlyBaseline

	switch v.Tail {
	case domain.TailAbove, domain.TailBelow:
	case domain.TailBelowAbove:
		upper = MonthlyThresholds(anoms, years, 100-v.Percentile)
	default:
		return nil, fmt.Errorf("%w: response tail %q", domain.ErrUnsupportedConfig, v.Tail)
	}

	out := make([]float64, len(anoms.Values))
	cells := anoms.Grid.Cells()
	for m := 0; m < anoms.Members; m++ {
		for t, stamp := range anoms.Times {
			off := (m*len(anoms.Times) + t) * cells
			thr := lower.Month(stamp.Month)
			for c := 0; c < cells; c++ {
				a := anoms.Values[off+c]
				var fire bool
				switch v.Tail {
				case domain.TailAbove:
					fire = a > thr[c]
				case domain.TailBelow:
					fire = a < thr[c]
				case domain.TailBelowAbove:
					fire = a < thr[c] || a > upper.Month(stamp.Month)[c]
				}
				if fire {
					out[off+c] = 1
				}
			}
		}
	}
	return out, nil
}
