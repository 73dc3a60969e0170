package domain

import "math"

// StressTensor is a reporter x sample x partner array allocated once.
// Every slot starts as NaN and unwritten. A (reporter, partner) pair is
// written only when the partner contributed to the reporter; Written is the
// exclusion marker, NaN inside a written slot is just an undefined value.
type StressTensor struct {
	Reporters int
	Samples   int
	Partners  int
	Values    []float64 // [reporter][sample][partner]
	Written   []bool    // [reporter][partner]
}

// NewStressTensor allocates a NaN-filled tensor.
func NewStressTensor(reporters, samples, partners int) *StressTensor {
	values := make([]float64, reporters*samples*partners)
	for i := range values {
		values[i] = math.NaN()
	}
	return &StressTensor{
		Reporters: reporters,
		Samples:   samples,
		Partners:  partners,
		Values:    values,
		Written:   make([]bool, reporters*partners),
	}
}

func (t *StressTensor) offset(r, s, p int) int {
	return (r*t.Samples+s)*t.Partners + p
}

// At returns the value at (reporter, sample, partner).
func (t *StressTensor) At(r, s, p int) float64 {
	return t.Values[t.offset(r, s, p)]
}

// IsWritten reports whether partner p contributed to reporter r.
func (t *StressTensor) IsWritten(r, p int) bool {
	return t.Written[r*t.Partners+p]
}

// Set stores series as the (reporter, partner) column and marks it written.
// Callers must only write the reporter they own.
func (t *StressTensor) Set(r, p int, series []float64) {
	for s := 0; s < t.Samples && s < len(series); s++ {
		t.Values[t.offset(r, s, p)] = series[s]
	}
	t.Written[r*t.Partners+p] = true
}

// Column returns a copy of the (reporter, partner) series.
func (t *StressTensor) Column(r, p int) []float64 {
	out := make([]float64, t.Samples)
	for s := range out {
		out[s] = t.Values[t.offset(r, s, p)]
	}
	return out
}

// RowSum returns the per-sample sum over written partners of reporter r,
// skipping NaN. A reporter with no contributions sums to zero.
func (t *StressTensor) RowSum(r int) []float64 {
	out := make([]float64, t.Samples)
	for p := 0; p < t.Partners; p++ {
		if !t.IsWritten(r, p) {
			continue
		}
		for s := range out {
			v := t.Values[t.offset(r, s, p)]
			if !math.IsNaN(v) {
				out[s] += v
			}
		}
	}
	return out
}
