package verification

import (
	"context"
	"errors"
	"math"
	"testing"

	"crop-stress-lab/internal/cache"
	"crop-stress-lab/internal/domain"
)

func testBundle() *domain.StressBundle {
	traded := domain.NewStressTensor(1, 2, 2)
	unweighted := domain.NewStressTensor(1, 2, 2)
	traded.Set(0, 0, []float64{0.35, math.NaN()})
	unweighted.Set(0, 0, []float64{0.5, math.NaN()})
	return &domain.StressBundle{
		Experiment: "exp601",
		ConfigHash: "abc",
		Reporters:  []string{"A"},
		Partners:   []string{"B", "C"},
		Samples:    2,
		Traded:     traded,
		Unweighted: unweighted,
		Summaries: []domain.ReporterSummary{
			{Reporter: "A", Partners: 1, TotalStress: []float64{0.35, 0}, CorrTopTwo: math.NaN()},
		},
	}
}

func TestCompareBundles_ExactMatch(t *testing.T) {
	res := CompareBundles(testBundle(), testBundle())
	if !res.Match {
		t.Fatalf("expected match, got divergences: %+v", res.Divergences)
	}
	if res.Compared == 0 {
		t.Error("nothing compared")
	}
}

func TestCompareBundles_WithinTolerance(t *testing.T) {
	other := testBundle()
	other.Traded.Values[0] += FloatTolerance / 2
	if res := CompareBundles(testBundle(), other); !res.Match {
		t.Errorf("expected match within tolerance, got %+v", res.Divergences)
	}
}

func TestCompareBundles_ValueDivergence(t *testing.T) {
	other := testBundle()
	other.Traded.Values[0] = 0.36

	res := CompareBundles(testBundle(), other)
	if res.Match {
		t.Fatal("expected divergence")
	}
	d := res.Divergences[0]
	if d.Field != "Traded" || d.Reporter != "A" || d.Partner != "B" || d.Sample != 0 {
		t.Errorf("divergence = %+v", d)
	}
}

func TestCompareBundles_WrittenFlagDivergence(t *testing.T) {
	other := testBundle()
	other.Traded.Set(0, 1, []float64{math.NaN(), math.NaN()})

	res := CompareBundles(testBundle(), other)
	if res.Match {
		t.Fatal("a written all-NaN column must differ from an unwritten one")
	}
	if res.Divergences[0].Field != "Written" || res.Divergences[0].Partner != "C" {
		t.Errorf("divergence = %+v", res.Divergences[0])
	}
}

func TestCompareBundles_AxisMismatch(t *testing.T) {
	other := testBundle()
	other.Partners = []string{"B", "D"}

	res := CompareBundles(testBundle(), other)
	if res.Match || res.Divergent != 1 || res.Divergences[0].Field != "Partners" {
		t.Errorf("result = %+v", res)
	}
}

func TestCompareBundles_CapsDivergences(t *testing.T) {
	n := MaxDivergences + 20
	stored := &domain.StressBundle{Reporters: []string{"A"}, Partners: []string{"B"}, Samples: n,
		Traded: domain.NewStressTensor(1, n, 1), Unweighted: domain.NewStressTensor(1, n, 1)}
	other := &domain.StressBundle{Reporters: []string{"A"}, Partners: []string{"B"}, Samples: n,
		Traded: domain.NewStressTensor(1, n, 1), Unweighted: domain.NewStressTensor(1, n, 1)}
	zeros := make([]float64, n)
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	stored.Traded.Set(0, 0, zeros)
	stored.Unweighted.Set(0, 0, zeros)
	other.Traded.Set(0, 0, ones)
	other.Unweighted.Set(0, 0, zeros)

	res := CompareBundles(stored, other)
	if res.Divergent != n {
		t.Errorf("Divergent = %d, want %d", res.Divergent, n)
	}
	if len(res.Divergences) != MaxDivergences {
		t.Errorf("kept %d divergences, want %d", len(res.Divergences), MaxDivergences)
	}
}

func TestBundleVerifier_Verify(t *testing.T) {
	ctx := context.Background()
	exp := domain.Experiment{Name: "exp601", WindowLen: 1}
	store := cache.NewMemoryStore()

	v := NewBundleVerifier(store, func(context.Context, domain.Experiment) (*domain.StressBundle, error) {
		return testBundle(), nil
	})

	if _, err := v.Verify(ctx, exp); !errors.Is(err, ErrBundleNotFound) {
		t.Fatalf("expected ErrBundleNotFound, got %v", err)
	}

	if err := store.SaveBundle(cache.BundleKey(exp), testBundle()); err != nil {
		t.Fatalf("SaveBundle failed: %v", err)
	}
	res, err := v.Verify(ctx, exp)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !res.Match {
		t.Errorf("expected match, got %+v", res.Divergences)
	}
}

func TestFloatEquals(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want bool
	}{
		{"exact match", 1.0, 1.0, true},
		{"within tolerance", 1.0, 1.0 + FloatTolerance/2, true},
		{"beyond tolerance", 1.0, 1.0 + FloatTolerance*2, false},
		{"nan equals nan", math.NaN(), math.NaN(), true},
		{"nan vs value", math.NaN(), 0, false},
		{"infinities", math.Inf(1), math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := floatEquals(tt.a, tt.b); got != tt.want {
				t.Errorf("floatEquals(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
