package metrics

import (
	"math"
	"sort"

	"crop-stress-lab/internal/domain"
)

// Fraction-ratio defaults.
const (
	DefaultFractionPercentile = 75.0
	DefaultStressFraction     = 0.1
)

// PartnerSeries is one trade row of a reporter with its traded stress.
type PartnerSeries struct {
	Code   string
	Value  float64   // trade value of the row
	Stress []float64 // traded stress per sample; nil when the partner was skipped
}

func (p PartnerSeries) series(samples int) []float64 {
	if p.Stress != nil {
		return p.Stress
	}
	return nanSeries(samples)
}

// LocalVsImportCorrelation correlates the reporter's own traded stress with
// the summed stress of all other partners. Reporters without a self row get 0.
func LocalVsImportCorrelation(reporter string, partners []PartnerSeries, samples int) float64 {
	var self []float64
	imports := make([]float64, samples)
	for _, p := range partners {
		if p.Code == reporter {
			self = p.series(samples)
			continue
		}
		if p.Stress == nil {
			continue
		}
		for s := 0; s < samples && s < len(p.Stress); s++ {
			if !math.IsNaN(p.Stress[s]) {
				imports[s] += p.Stress[s]
			}
		}
	}
	if self == nil {
		return 0
	}
	return RankCorrelation(self, imports)
}

// TopTwoCorrelation correlates the traded stress of the two largest partners
// by trade value. Equal values keep row order. Fewer than two rows give 0.
func TopTwoCorrelation(partners []PartnerSeries, samples int) float64 {
	if len(partners) < 2 {
		return 0
	}
	order := make([]int, len(partners))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return partners[order[a]].Value > partners[order[b]].Value
	})
	first := partners[order[0]].series(samples)
	second := partners[order[1]].series(samples)
	return RankCorrelation(first, second)
}

// VarianceFraction compares the import-only stress (self row removed) with
// the total, both in percent: mean(imports/total) and var(imports)/var(total).
// Division by zero follows IEEE semantics.
func VarianceFraction(reporter string, partners []PartnerSeries, samples int) (meanRatio, varRatio float64) {
	total := make([]float64, samples)
	noSelf := make([]float64, samples)
	for _, p := range partners {
		if p.Stress == nil {
			continue
		}
		for s := 0; s < samples && s < len(p.Stress); s++ {
			v := p.Stress[s] * 100
			if math.IsNaN(v) {
				continue
			}
			total[s] += v
			if p.Code != reporter {
				noSelf[s] += v
			}
		}
	}
	if samples == 0 {
		return math.NaN(), math.NaN()
	}

	ratio := make([]float64, samples)
	for s := range ratio {
		ratio[s] = noSelf[s] / total[s]
	}
	sum := 0.0
	for _, r := range ratio {
		sum += r
	}
	meanRatio = sum / float64(samples)
	varRatio = populationVariance(noSelf) / populationVariance(total)
	return meanRatio, varRatio
}

// StressFractionRatios compares a reporter's own stress with its total stress:
// the ratio of samples at or above frac, and the ratio of the perc-th
// percentiles. Undefined ratios are reported as 0.
func StressFractionRatios(total, own []float64, perc, frac float64) (countRatio, percentileRatio float64) {
	percentileRatio = NanPercentile(own, perc/100) / NanPercentile(total, perc/100)
	if math.IsNaN(percentileRatio) || math.IsInf(percentileRatio, 0) {
		percentileRatio = 0
	}

	ownCount, totalCount := 0, 0
	for _, v := range own {
		if v >= frac {
			ownCount++
		}
	}
	for _, v := range total {
		if v >= frac {
			totalCount++
		}
	}
	if totalCount == 0 {
		return 0, percentileRatio
	}
	return float64(ownCount) / float64(totalCount), percentileRatio
}

// Summarize computes the reporter summary from its partner rows.
func Summarize(reporter string, partners []PartnerSeries, samples int) domain.ReporterSummary {
	summary := domain.ReporterSummary{
		Reporter:    reporter,
		TotalStress: make([]float64, samples),
	}

	var own []float64
	for _, p := range partners {
		summary.ImportValue += p.Value
		if p.Stress == nil {
			continue
		}
		summary.Partners++
		if p.Code == reporter {
			own = p.Stress
		}
		for s := 0; s < samples && s < len(p.Stress); s++ {
			if !math.IsNaN(p.Stress[s]) {
				summary.TotalStress[s] += p.Stress[s]
			}
		}
	}

	summary.CorrLocalImports = LocalVsImportCorrelation(reporter, partners, samples)
	summary.CorrTopTwo = TopTwoCorrelation(partners, samples)
	summary.VarianceMeanRatio, summary.VarianceRatio = VarianceFraction(reporter, partners, samples)
	if own != nil {
		summary.FractionCountRatio, summary.FractionPercentileRatio = StressFractionRatios(
			summary.TotalStress, own, DefaultFractionPercentile, DefaultStressFraction)
	}
	return summary
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
