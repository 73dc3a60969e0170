package domain

// ReporterSummary holds the per-reporter scalar metrics of one run.
type ReporterSummary struct {
	Reporter    string
	ImportValue float64   // total import value over the selected commodities
	Partners    int       // partners with a written stress column
	TotalStress []float64 // per sample, NaN-skipping sum over partners

	CorrLocalImports float64 // rank correlation, own production vs all imports
	CorrTopTwo       float64 // rank correlation, two largest partners

	// Diagnostics
	VarianceMeanRatio       float64 // mean(imports-only / total)
	VarianceRatio           float64 // var(imports-only) / var(total)
	FractionCountRatio      float64 // share of samples above the stress fraction, own vs total
	FractionPercentileRatio float64 // 75th percentile, own vs total
}

// StressBundle is the persisted output of one experiment run.
type StressBundle struct {
	Experiment string
	ConfigHash string
	Reporters  []string
	Partners   []string
	Samples    int
	Traded     *StressTensor // trade-fraction weighted partner stress
	Unweighted *StressTensor // raw partner stress
	Summaries  []ReporterSummary // aligned with Reporters
}

// ReporterIndex returns the position of a reporter code.
func (b *StressBundle) ReporterIndex(code string) (int, bool) {
	for i, r := range b.Reporters {
		if r == code {
			return i, true
		}
	}
	return -1, false
}

// Summary returns the summary of a reporter code.
func (b *StressBundle) Summary(code string) (*ReporterSummary, bool) {
	i, ok := b.ReporterIndex(code)
	if !ok || i >= len(b.Summaries) {
		return nil, false
	}
	return &b.Summaries[i], true
}
