// Package verification recomputes stored stress bundles and reports where
// they diverge.
package verification

import (
	"context"
	"math"

	"crop-stress-lab/internal/domain"
)

// FloatTolerance is the absolute tolerance for float64 comparisons.
const FloatTolerance = 1e-9

// MaxDivergences caps the divergences kept per comparison.
const MaxDivergences = 100

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	Field    string // e.g. "Traded", "Written", "CorrTopTwo"
	Reporter string
	Partner  string // empty for reporter-level fields
	Sample   int    // -1 when not per sample
	Expected interface{}
	Actual   interface{}
}

// VerificationResult is the outcome of verifying one experiment.
type VerificationResult struct {
	Experiment  string
	ConfigHash  string
	Match       bool
	Compared    int // values compared
	Divergent   int // values that differ, including those past MaxDivergences
	Divergences []FieldDivergence
}

// Verifier recomputes an experiment and compares it to the stored bundle.
type Verifier interface {
	Verify(ctx context.Context, exp domain.Experiment) (*VerificationResult, error)
}

// comparison accumulates the divergences of one CompareBundles call.
type comparison struct {
	compared    int
	divergent   int
	divergences []FieldDivergence
}

func (c *comparison) add(d FieldDivergence) {
	c.divergent++
	if len(c.divergences) < MaxDivergences {
		c.divergences = append(c.divergences, d)
	}
}

func (c *comparison) float(field, reporter, partner string, sample int, want, got float64) {
	c.compared++
	if !floatEquals(want, got) {
		c.add(FieldDivergence{Field: field, Reporter: reporter, Partner: partner, Sample: sample, Expected: want, Actual: got})
	}
}

// CompareBundles compares a stored bundle to a recomputed one. Axes must
// match exactly; values are compared within FloatTolerance with NaN equal
// to NaN; written flags must match.
func CompareBundles(stored, recomputed *domain.StressBundle) *VerificationResult {
	c := &comparison{}
	res := &VerificationResult{Experiment: stored.Experiment, ConfigHash: stored.ConfigHash}

	if stored.ConfigHash != recomputed.ConfigHash {
		c.add(FieldDivergence{Field: "ConfigHash", Sample: -1, Expected: stored.ConfigHash, Actual: recomputed.ConfigHash})
	}
	if !sameCodes(stored.Reporters, recomputed.Reporters) {
		c.add(FieldDivergence{Field: "Reporters", Sample: -1, Expected: stored.Reporters, Actual: recomputed.Reporters})
	}
	if !sameCodes(stored.Partners, recomputed.Partners) {
		c.add(FieldDivergence{Field: "Partners", Sample: -1, Expected: stored.Partners, Actual: recomputed.Partners})
	}
	if stored.Samples != recomputed.Samples {
		c.add(FieldDivergence{Field: "Samples", Sample: -1, Expected: stored.Samples, Actual: recomputed.Samples})
	}
	if c.divergent > 0 {
		return finish(res, c)
	}

	for ri, reporter := range stored.Reporters {
		for pi, partner := range stored.Partners {
			c.compared++
			sw, rw := stored.Traded.IsWritten(ri, pi), recomputed.Traded.IsWritten(ri, pi)
			if sw != rw {
				c.add(FieldDivergence{Field: "Written", Reporter: reporter, Partner: partner, Sample: -1, Expected: sw, Actual: rw})
				continue
			}
			if !sw {
				continue
			}
			for s := 0; s < stored.Samples; s++ {
				c.float("Traded", reporter, partner, s, stored.Traded.At(ri, s, pi), recomputed.Traded.At(ri, s, pi))
				c.float("Unweighted", reporter, partner, s, stored.Unweighted.At(ri, s, pi), recomputed.Unweighted.At(ri, s, pi))
			}
		}
	}

	for i := range stored.Summaries {
		if i >= len(recomputed.Summaries) {
			c.add(FieldDivergence{Field: "Summaries", Sample: -1, Expected: len(stored.Summaries), Actual: len(recomputed.Summaries)})
			break
		}
		compareSummary(c, &stored.Summaries[i], &recomputed.Summaries[i])
	}

	return finish(res, c)
}

func compareSummary(c *comparison, want, got *domain.ReporterSummary) {
	r := want.Reporter
	c.float("ImportValue", r, "", -1, want.ImportValue, got.ImportValue)
	c.float("CorrLocalImports", r, "", -1, want.CorrLocalImports, got.CorrLocalImports)
	c.float("CorrTopTwo", r, "", -1, want.CorrTopTwo, got.CorrTopTwo)
	c.float("VarianceMeanRatio", r, "", -1, want.VarianceMeanRatio, got.VarianceMeanRatio)
	c.float("VarianceRatio", r, "", -1, want.VarianceRatio, got.VarianceRatio)
	c.float("FractionCountRatio", r, "", -1, want.FractionCountRatio, got.FractionCountRatio)
	c.float("FractionPercentileRatio", r, "", -1, want.FractionPercentileRatio, got.FractionPercentileRatio)

	c.compared++
	if want.Partners != got.Partners {
		c.add(FieldDivergence{Field: "Partners", Reporter: r, Sample: -1, Expected: want.Partners, Actual: got.Partners})
	}
	if len(want.TotalStress) != len(got.TotalStress) {
		c.add(FieldDivergence{Field: "TotalStress", Reporter: r, Sample: -1, Expected: len(want.TotalStress), Actual: len(got.TotalStress)})
		return
	}
	for s := range want.TotalStress {
		c.float("TotalStress", r, "", s, want.TotalStress[s], got.TotalStress[s])
	}
}

func finish(res *VerificationResult, c *comparison) *VerificationResult {
	res.Compared = c.compared
	res.Divergent = c.divergent
	res.Divergences = c.divergences
	res.Match = c.divergent == 0
	return res
}

func sameCodes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// floatEquals compares within FloatTolerance. NaN equals NaN.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if a == b {
		return true
	}
	return math.Abs(a-b) <= FloatTolerance
}
