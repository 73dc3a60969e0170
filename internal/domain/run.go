package domain

import "math"

// Run status values.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ExperimentRun records one pipeline execution of an experiment.
type ExperimentRun struct {
	RunID        string // uuid
	Experiment   string
	ConfigHash   string // full experiment hash
	ResponseHash string
	GCM          string
	Product      Product
	Reporters    []string // sorted reporter codes
	Partners     []string // sorted partner codes
	Samples      int
	StartedAt    int64 // Unix ms
	FinishedAt   int64 // Unix ms
	Status       string
	CacheHit     bool
}

// ReporterSummaryRecord is a ReporterSummary persisted under a run.
// TotalStress is stored separately as TotalStressPoint rows.
type ReporterSummaryRecord struct {
	RunID string
	ReporterSummary
}

// StressCell is one written (reporter, partner, sample) slot of a run.
type StressCell struct {
	RunID      string
	Reporter   string
	Partner    string
	Sample     int
	Traded     float64
	Unweighted float64
}

// TotalStressPoint is one sample of a reporter's total stress.
type TotalStressPoint struct {
	RunID    string
	Reporter string
	Sample   int
	Value    float64
}

// Flatten splits a bundle into the rows persisted for runID.
// Unwritten slots are not emitted.
func (b *StressBundle) Flatten(runID string) ([]*ReporterSummaryRecord, []*StressCell, []*TotalStressPoint) {
	summaries := make([]*ReporterSummaryRecord, 0, len(b.Summaries))
	var cells []*StressCell
	var totals []*TotalStressPoint

	for ri, reporter := range b.Reporters {
		if ri < len(b.Summaries) {
			s := b.Summaries[ri]
			for i, v := range s.TotalStress {
				totals = append(totals, &TotalStressPoint{RunID: runID, Reporter: reporter, Sample: i, Value: v})
			}
			s.TotalStress = nil
			summaries = append(summaries, &ReporterSummaryRecord{RunID: runID, ReporterSummary: s})
		}
		for pi, partner := range b.Partners {
			if !b.Traded.IsWritten(ri, pi) {
				continue
			}
			for s := 0; s < b.Samples; s++ {
				cells = append(cells, &StressCell{
					RunID:      runID,
					Reporter:   reporter,
					Partner:    partner,
					Sample:     s,
					Traded:     b.Traded.At(ri, s, pi),
					Unweighted: b.Unweighted.At(ri, s, pi),
				})
			}
		}
	}
	return summaries, cells, totals
}

// AssembleBundle rebuilds a bundle from persisted rows along the run's
// reporter and partner axes. Rows naming unknown codes are rejected with
// ErrShapeMismatch.
func AssembleBundle(run *ExperimentRun, summaries []*ReporterSummaryRecord, cells []*StressCell, totals []*TotalStressPoint) (*StressBundle, error) {
	reporters, partners := run.Reporters, run.Partners
	rIdx := indexOf(reporters)
	pIdx := indexOf(partners)

	b := &StressBundle{
		Experiment: run.Experiment,
		ConfigHash: run.ConfigHash,
		Reporters:  reporters,
		Partners:   partners,
		Samples:    run.Samples,
		Traded:     NewStressTensor(len(reporters), run.Samples, len(partners)),
		Unweighted: NewStressTensor(len(reporters), run.Samples, len(partners)),
		Summaries:  make([]ReporterSummary, len(reporters)),
	}
	for i, r := range reporters {
		b.Summaries[i] = ReporterSummary{
			Reporter:         r,
			TotalStress:      nanSeries(run.Samples),
			CorrLocalImports: math.NaN(),
			CorrTopTwo:       math.NaN(),
		}
	}

	for _, s := range summaries {
		ri, ok := rIdx[s.Reporter]
		if !ok {
			return nil, ErrShapeMismatch
		}
		total := b.Summaries[ri].TotalStress
		b.Summaries[ri] = s.ReporterSummary
		b.Summaries[ri].TotalStress = total
	}
	for _, c := range cells {
		ri, rok := rIdx[c.Reporter]
		pi, pok := pIdx[c.Partner]
		if !rok || !pok || c.Sample < 0 || c.Sample >= run.Samples {
			return nil, ErrShapeMismatch
		}
		off := b.Traded.offset(ri, c.Sample, pi)
		b.Traded.Values[off] = c.Traded
		b.Unweighted.Values[off] = c.Unweighted
		b.Traded.Written[ri*len(partners)+pi] = true
		b.Unweighted.Written[ri*len(partners)+pi] = true
	}
	for _, p := range totals {
		ri, ok := rIdx[p.Reporter]
		if !ok || p.Sample < 0 || p.Sample >= run.Samples {
			return nil, ErrShapeMismatch
		}
		b.Summaries[ri].TotalStress[p.Sample] = p.Value
	}
	return b, nil
}

func indexOf(codes []string) map[string]int {
	m := make(map[string]int, len(codes))
	for i, c := range codes {
		m[c] = i
	}
	return m
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
