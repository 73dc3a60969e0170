package reporting

import (
	"context"
	"math"
	"sort"
	"time"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/metrics"
	"crop-stress-lab/internal/regions"
	"crop-stress-lab/internal/storage"
)

// DefaultMostExposed is the length of the exposure ranking.
const DefaultMostExposed = 10

// Generator produces reports from stress bundles.
type Generator struct {
	names       *regions.Names
	mostExposed int
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator. names may be nil.
func NewGenerator(names *regions.Names) *Generator {
	return &Generator{
		names:       names,
		mostExposed: DefaultMostExposed,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithMostExposed sets the length of the exposure ranking.
func (g *Generator) WithMostExposed(n int) *Generator {
	g.mostExposed = n
	return g
}

// Generate builds the report of a run and its bundle.
func (g *Generator) Generate(run *domain.ExperimentRun, b *domain.StressBundle) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		RunID:       run.RunID,
		Experiment:  b.Experiment,
		ConfigHash:  b.ConfigHash,
		GCM:         run.GCM,
		Product:     string(run.Product),
		Samples:     b.Samples,
		CacheHit:    run.CacheHit,
		Reporters:   len(b.Reporters),
		Partners:    len(b.Partners),
	}

	r.ReporterMetrics = g.reporterMetrics(b)
	r.MostExposed = g.exposures(b)
	return r
}

// GenerateFromStore loads a stored run and builds its report.
func (g *Generator) GenerateFromStore(ctx context.Context, stores storage.Stores, runID string) (*Report, *domain.StressBundle, error) {
	run, b, err := stores.LoadBundle(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return g.Generate(run, b), b, nil
}

func (g *Generator) reporterMetrics(b *domain.StressBundle) []ReporterMetricRow {
	rows := make([]ReporterMetricRow, 0, len(b.Summaries))
	for _, s := range b.Summaries {
		rows = append(rows, ReporterMetricRow{
			Reporter:                s.Reporter,
			Name:                    g.names.Name(s.Reporter),
			ImportValue:             s.ImportValue,
			Partners:                s.Partners,
			MeanTotalStress:         metrics.NanMean(s.TotalStress),
			CorrLocalImports:        s.CorrLocalImports,
			CorrTopTwo:              s.CorrTopTwo,
			VarianceMeanRatio:       s.VarianceMeanRatio,
			VarianceRatio:           s.VarianceRatio,
			FractionCountRatio:      s.FractionCountRatio,
			FractionPercentileRatio: s.FractionPercentileRatio,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Reporter < rows[j].Reporter
	})
	return rows
}

func (g *Generator) exposures(b *domain.StressBundle) []ExposureRow {
	var rows []ExposureRow
	for ri, reporter := range b.Reporters {
		row := ExposureRow{Reporter: reporter, Name: g.names.Name(reporter), MeanTotalStress: math.NaN()}
		if s, ok := b.Summary(reporter); ok {
			row.MeanTotalStress = metrics.NanMean(s.TotalStress)
		}

		best := math.Inf(-1)
		for pi, partner := range b.Partners {
			if !b.Traded.IsWritten(ri, pi) {
				continue
			}
			m := metrics.NanMean(b.Traded.Column(ri, pi))
			if !math.IsNaN(m) && m > best {
				best = m
				row.TopPartner = partner
			}
		}
		if row.TopPartner != "" {
			row.TopPartnerName = g.names.Name(row.TopPartner)
			if row.MeanTotalStress != 0 && !math.IsNaN(row.MeanTotalStress) {
				row.TopPartnerShare = best / row.MeanTotalStress
			}
		}
		rows = append(rows, row)
	}

	// NaN sorts last, ties keep reporter order
	sort.SliceStable(rows, func(i, j int) bool {
		a, c := rows[i].MeanTotalStress, rows[j].MeanTotalStress
		if math.IsNaN(c) {
			return !math.IsNaN(a)
		}
		return a > c
	})
	if g.mostExposed > 0 && len(rows) > g.mostExposed {
		rows = rows[:g.mostExposed]
	}
	return rows
}
