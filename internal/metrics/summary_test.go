package metrics

import (
	"math"
	"testing"
)

func TestLocalVsImportCorrelation(t *testing.T) {
	partners := []PartnerSeries{
		{Code: "aaa", Value: 10, Stress: []float64{0.1, 0.2, 0.3, 0.4}},
		{Code: "bbb", Value: 5, Stress: []float64{0.4, 0.3, 0.2, 0.1}},
		{Code: "ccc", Value: 5, Stress: []float64{0.0, math.NaN(), 0.0, 0.0}},
		{Code: "ddd", Value: 1}, // skipped partner
	}

	got := LocalVsImportCorrelation("aaa", partners, 4)
	if math.Abs(got-(-1)) > 1e-12 {
		t.Errorf("LocalVsImportCorrelation = %v, want -1", got)
	}

	if got := LocalVsImportCorrelation("zzz", partners, 4); got != 0 {
		t.Errorf("reporter without self row = %v, want 0", got)
	}
}

func TestLocalVsImportCorrelation_SkippedSelf(t *testing.T) {
	partners := []PartnerSeries{
		{Code: "aaa", Value: 10},
		{Code: "bbb", Value: 5, Stress: []float64{0.4, 0.3, 0.2}},
	}
	if got := LocalVsImportCorrelation("aaa", partners, 3); got != 0 {
		t.Errorf("skipped self row = %v, want 0", got)
	}
}

func TestTopTwoCorrelation(t *testing.T) {
	partners := []PartnerSeries{
		{Code: "small", Value: 1, Stress: []float64{5, 4, 3}},
		{Code: "big", Value: 70, Stress: []float64{0.35, 0.14, 0.5}},
		{Code: "mid", Value: 30, Stress: []float64{0.03, 0, 0.04}},
	}
	got := TopTwoCorrelation(partners, 3)
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("TopTwoCorrelation = %v, want 1", got)
	}
}

func TestTopTwoCorrelation_TiesKeepRowOrder(t *testing.T) {
	partners := []PartnerSeries{
		{Code: "first", Value: 10, Stress: []float64{1, 2, 3}},
		{Code: "second", Value: 10, Stress: []float64{3, 2, 1}},
		{Code: "third", Value: 10, Stress: []float64{1, 2, 3}},
	}
	got := TopTwoCorrelation(partners, 3)
	if math.Abs(got-(-1)) > 1e-12 {
		t.Errorf("TopTwoCorrelation with ties = %v, want -1 (first vs second)", got)
	}
}

func TestTopTwoCorrelation_TooFewPartners(t *testing.T) {
	partners := []PartnerSeries{{Code: "only", Value: 1, Stress: []float64{1, 2}}}
	if got := TopTwoCorrelation(partners, 2); got != 0 {
		t.Errorf("single partner = %v, want 0", got)
	}
}

func TestVarianceFraction(t *testing.T) {
	partners := []PartnerSeries{
		{Code: "aaa", Stress: []float64{0.1, 0.1}},
		{Code: "bbb", Stress: []float64{0.1, 0.3}},
	}
	meanRatio, varRatio := VarianceFraction("aaa", partners, 2)

	// total = [20, 40], no self = [10, 30]
	wantMean := (10.0/20 + 30.0/40) / 2
	if math.Abs(meanRatio-wantMean) > 1e-12 {
		t.Errorf("meanRatio = %v, want %v", meanRatio, wantMean)
	}
	if math.Abs(varRatio-1) > 1e-12 {
		t.Errorf("varRatio = %v, want 1", varRatio)
	}
}

func TestVarianceFraction_ZeroTotalIsNaN(t *testing.T) {
	partners := []PartnerSeries{{Code: "bbb", Stress: []float64{0, 0}}}
	meanRatio, varRatio := VarianceFraction("aaa", partners, 2)
	if !math.IsNaN(meanRatio) || !math.IsNaN(varRatio) {
		t.Errorf("zero totals: got (%v, %v), want NaN", meanRatio, varRatio)
	}
}

func TestStressFractionRatios(t *testing.T) {
	total := []float64{0.2, 0.4, 0.05, 0.3}
	own := []float64{0.1, 0.2, 0.0, 0.05}

	count, perc := StressFractionRatios(total, own, 75, 0.1)
	if math.Abs(count-2.0/3) > 1e-12 {
		t.Errorf("count ratio = %v, want 2/3", count)
	}
	// p75(own) = 0.125, p75(total) = 0.325
	if math.Abs(perc-0.125/0.325) > 1e-12 {
		t.Errorf("percentile ratio = %v, want %v", perc, 0.125/0.325)
	}
}

func TestStressFractionRatios_UndefinedIsZero(t *testing.T) {
	count, perc := StressFractionRatios([]float64{0, 0}, []float64{0, 0}, 75, 0.1)
	if count != 0 || perc != 0 {
		t.Errorf("got (%v, %v), want (0, 0)", count, perc)
	}
}

func TestSummarize(t *testing.T) {
	partners := []PartnerSeries{
		{Code: "bbb", Value: 70, Stress: []float64{0.35, 0.14}},
		{Code: "ccc", Value: 30, Stress: []float64{0.03, 0}},
		{Code: "ddd", Value: 0},
	}
	s := Summarize("aaa", partners, 2)

	if s.Reporter != "aaa" || s.ImportValue != 100 || s.Partners != 2 {
		t.Errorf("summary header = %+v", s)
	}
	if math.Abs(s.TotalStress[0]-0.38) > 1e-12 || math.Abs(s.TotalStress[1]-0.14) > 1e-12 {
		t.Errorf("TotalStress = %v, want [0.38 0.14]", s.TotalStress)
	}
	if s.CorrLocalImports != 0 {
		t.Errorf("CorrLocalImports = %v, want 0 without self row", s.CorrLocalImports)
	}
	if math.Abs(s.CorrTopTwo-1) > 1e-12 {
		t.Errorf("CorrTopTwo = %v, want 1", s.CorrTopTwo)
	}
}
