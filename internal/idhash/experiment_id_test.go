package idhash

import (
	"testing"

	"crop-stress-lab/internal/domain"
)

func baseExperiment() domain.Experiment {
	return domain.Experiment{
		Name:          "exp601",
		GCM:           "mpi",
		Members:       100,
		DataYears:     domain.YearRange{First: 2014, Last: 2030},
		BaselineYears: domain.YearRange{First: 2015, Last: 2024},
		ResponseType:  domain.ResponseExtremes,
		Variables: []domain.VariableThreshold{
			{Variable: "tas", Tail: domain.TailAbove, Percentile: 95},
		},
		ResponseYears: domain.YearRange{First: 2025, Last: 2025},
		WindowLen:     1,
		Product:       domain.ProductMaize,
		TradeFile:     "gtap.csv",
		TradeYear:     2017,
	}
}

func TestComputeExperimentHash(t *testing.T) {
	got := ComputeExperimentHash(baseExperiment())
	if len(got) != 64 {
		t.Errorf("ComputeExperimentHash() length = %d, want 64", len(got))
	}
	if got2 := ComputeExperimentHash(baseExperiment()); got != got2 {
		t.Errorf("ComputeExperimentHash() not deterministic: %s != %s", got, got2)
	}
}

func TestComputeExperimentHash_DifferentInputs(t *testing.T) {
	base := ComputeExperimentHash(baseExperiment())

	mutations := map[string]func(*domain.Experiment){
		"name":         func(e *domain.Experiment) { e.Name = "exp602" },
		"members":      func(e *domain.Experiment) { e.Members = 10 },
		"threshold":    func(e *domain.Experiment) { e.Variables[0].Percentile = 90 },
		"include self": func(e *domain.Experiment) { e.IncludeSelf = true },
		"exclusions":   func(e *domain.Experiment) { e.ExcludeRegions = []string{"hkg"} },
		"calories":     func(e *domain.Experiment) { e.ConvertToCalories = true },
	}
	for name, mutate := range mutations {
		exp := baseExperiment()
		mutate(&exp)
		if ComputeExperimentHash(exp) == base {
			t.Errorf("changing %s should change the hash", name)
		}
	}
}

func TestComputeResponseHash_IgnoresTradeSettings(t *testing.T) {
	base := ComputeResponseHash(baseExperiment())

	exp := baseExperiment()
	exp.Name = "other"
	exp.IncludeSelf = true
	exp.ExcludeRegions = []string{"hkg"}
	exp.TradeFile = "other.csv"
	exp.Product = domain.ProductWheat // no growing-season mask, calendar unused
	if got := ComputeResponseHash(exp); got != base {
		t.Errorf("trade-only changes altered the response hash")
	}

	exp = baseExperiment()
	exp.GrowingSeasonOnly = true
	masked := ComputeResponseHash(exp)
	if masked == base {
		t.Error("growing-season masking should change the response hash")
	}
	exp.Product = domain.ProductWheat
	if ComputeResponseHash(exp) == masked {
		t.Error("calendar product should change the masked response hash")
	}
}

func TestShort(t *testing.T) {
	h := ComputeExperimentHash(baseExperiment())
	if got := Short(h); len(got) != ShortLen || got != h[:ShortLen] {
		t.Errorf("Short() = %q", got)
	}
	if got := Short("abc"); got != "abc" {
		t.Errorf("Short(abc) = %q", got)
	}
}
