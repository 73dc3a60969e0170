package detector

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"

	"crop-stress-lab/internal/calendar"
	"crop-stress-lab/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// spikeField builds a one-cell, two-member monthly ensemble of zeros for
// the given years, then sets the listed (member, year, month) steps.
func spikeField(variable string, first, last int, spikes map[[3]int]float64) *domain.EnsembleField {
	f := &domain.EnsembleField{
		Variable: variable,
		Grid:     domain.Grid{Lat: []float64{10}, Lon: []float64{270}},
		Members:  2,
	}
	for y := first; y <= last; y++ {
		for m := 1; m <= 12; m++ {
			f.Times = append(f.Times, domain.MonthStamp{Year: y, Month: m})
		}
	}
	f.Values = make([]float64, f.Members*len(f.Times))
	for key, v := range spikes {
		member, year, month := key[0], key[1], key[2]
		t := (year-first)*12 + month - 1
		f.Values[member*len(f.Times)+t] = v
	}
	return f
}

func baseExperiment() domain.Experiment {
	return domain.Experiment{
		Name:          "test",
		Members:       2,
		BaselineYears: domain.YearRange{First: 2000, Last: 2002},
		ResponseType:  domain.ResponseExtremes,
		Variables:     []domain.VariableThreshold{{Variable: "tas", Tail: domain.TailAbove, Percentile: 90}},
		ResponseYears: domain.YearRange{First: 2000, Last: 2002},
		WindowLen:     2,
		Product:       domain.ProductMaize,
	}
}

func TestDetect_ExtremesAbove(t *testing.T) {
	exp := baseExperiment()
	field := spikeField("tas", 2000, 2002, map[[3]int]float64{{0, 2001, 7}: 10})

	resp, err := New(exp, Options{Logger: testLogger()}).Detect([]*domain.EnsembleField{field})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	// 3 years with a 2-year window leave exactly one window.
	if len(resp.Windows) != 1 || resp.Windows[0] != 2000 {
		t.Fatalf("Windows = %v, want [2000]", resp.Windows)
	}
	if resp.Samples() != 2 {
		t.Fatalf("Samples = %d, want 2", resp.Samples())
	}
	if resp.Sample(0)[0] != 1 || resp.Sample(1)[0] != 0 {
		t.Errorf("response = %v, want [1 0]", resp.Values)
	}
}

func TestDetect_WindowPerYear(t *testing.T) {
	exp := baseExperiment()
	exp.WindowLen = 1
	field := spikeField("tas", 2000, 2002, map[[3]int]float64{{0, 2001, 7}: 10})

	resp, err := New(exp, Options{Logger: testLogger()}).Detect([]*domain.EnsembleField{field})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	want := []float64{0, 1, 0, 0, 0, 0} // member 0 windows, then member 1
	if len(resp.Values) != len(want) {
		t.Fatalf("got %d values, want %d", len(resp.Values), len(want))
	}
	for i := range want {
		if resp.Values[i] != want[i] {
			t.Errorf("Values[%d] = %v, want %v", i, resp.Values[i], want[i])
		}
	}
}

func TestDetect_Below(t *testing.T) {
	exp := baseExperiment()
	exp.Variables = []domain.VariableThreshold{{Variable: "pr", Tail: domain.TailBelow, Percentile: 10}}
	field := spikeField("pr", 2000, 2002, map[[3]int]float64{{1, 2000, 3}: -10})

	resp, err := New(exp, Options{Logger: testLogger()}).Detect([]*domain.EnsembleField{field})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if resp.Sample(0)[0] != 0 || resp.Sample(1)[0] != 1 {
		t.Errorf("response = %v, want [0 1]", resp.Values)
	}
}

func TestDetect_BelowAbove(t *testing.T) {
	exp := baseExperiment()
	exp.Variables = []domain.VariableThreshold{{Variable: "pr", Tail: domain.TailBelowAbove, Percentile: 10}}
	field := spikeField("pr", 2000, 2002, map[[3]int]float64{
		{0, 2001, 7}: 10,
		{1, 2000, 7}: -10,
	})

	resp, err := New(exp, Options{Logger: testLogger()}).Detect([]*domain.EnsembleField{field})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if resp.Sample(0)[0] != 1 || resp.Sample(1)[0] != 1 {
		t.Errorf("response = %v, want both tails to fire", resp.Values)
	}
}

func jointExperiment() domain.Experiment {
	exp := baseExperiment()
	exp.Variables = []domain.VariableThreshold{
		{Variable: "tas", Tail: domain.TailAbove, Percentile: 90},
		{Variable: "pr", Tail: domain.TailAbove, Percentile: 90},
	}
	return exp
}

func TestDetect_JointVariables(t *testing.T) {
	tas := spikeField("tas", 2000, 2002, map[[3]int]float64{{0, 2001, 7}: 10})
	pr := spikeField("pr", 2000, 2002, map[[3]int]float64{{0, 2001, 7}: 10})

	resp, err := New(jointExperiment(), Options{Logger: testLogger()}).Detect([]*domain.EnsembleField{tas, pr})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if resp.Sample(0)[0] != 1 || resp.Sample(1)[0] != 0 {
		t.Errorf("response = %v, want only the joint event", resp.Values)
	}
}

func TestDetect_JointVariablesNeedBoth(t *testing.T) {
	// Each variable fires in a different member, so no joint event occurs.
	tas := spikeField("tas", 2000, 2002, map[[3]int]float64{{0, 2001, 7}: 10})
	pr := spikeField("pr", 2000, 2002, map[[3]int]float64{{1, 2001, 7}: 10})

	resp, err := New(jointExperiment(), Options{Logger: testLogger()}).Detect([]*domain.EnsembleField{tas, pr})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	for i, v := range resp.Values {
		if v != 0 {
			t.Errorf("Values[%d] = %v, want 0 when only one variable fires", i, v)
		}
	}
}

func TestDetect_GrowingSeasonMasksEvents(t *testing.T) {
	exp := baseExperiment()
	exp.GrowingSeasonOnly = true
	field := spikeField("tas", 2000, 2002, map[[3]int]float64{{0, 2001, 7}: 10})

	// Season Jan-Mar at the only calendar cell: the July spike cannot fire.
	seasons := calendar.Seasons{Primary: &domain.GrowingSeasonCalendar{
		Lat:     []float64{10},
		Lon:     []float64{-90},
		Plant:   []float64{1},
		Harvest: []float64{80},
	}}

	resp, err := New(exp, Options{Seasons: seasons, Logger: testLogger()}).Detect([]*domain.EnsembleField{field})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	for i, v := range resp.Values {
		if v != 0 {
			t.Errorf("Values[%d] = %v, want 0 outside the growing season", i, v)
		}
	}
}

func TestDetect_Idempotent(t *testing.T) {
	exp := baseExperiment()
	field := spikeField("tas", 2000, 2002, map[[3]int]float64{
		{0, 2001, 7}: 10,
		{1, 2002, 1}: 4,
		{0, 2000, 12}: 3,
	})
	det := New(exp, Options{Logger: testLogger()})

	a, err := det.Detect([]*domain.EnsembleField{field})
	if err != nil {
		t.Fatalf("first Detect: %v", err)
	}
	b, err := det.Detect([]*domain.EnsembleField{field})
	if err != nil {
		t.Fatalf("second Detect: %v", err)
	}
	for i := range a.Values {
		if math.Float64bits(a.Values[i]) != math.Float64bits(b.Values[i]) {
			t.Fatalf("Values[%d] differ: %v vs %v", i, a.Values[i], b.Values[i])
		}
	}
}

func TestDetect_UnknownTail(t *testing.T) {
	exp := baseExperiment()
	exp.Variables[0].Tail = domain.Tail("sideways")
	field := spikeField("tas", 2000, 2002, nil)

	_, err := New(exp, Options{Logger: testLogger()}).Detect([]*domain.EnsembleField{field})
	if !errors.Is(err, domain.ErrUnsupportedConfig) {
		t.Errorf("err = %v, want ErrUnsupportedConfig", err)
	}
}

func TestDetect_Anomalies(t *testing.T) {
	exp := baseExperiment()
	exp.ResponseType = domain.ResponseAnomalies
	exp.WindowLen = 3
	field := spikeField("tas", 2000, 2002, map[[3]int]float64{{0, 2001, 7}: 6})

	// July growing season only.
	seasons := calendar.Seasons{Primary: &domain.GrowingSeasonCalendar{
		Lat:     []float64{10},
		Lon:     []float64{-90},
		Plant:   []float64{190},
		Harvest: []float64{200},
	}}

	resp, err := New(exp, Options{Seasons: seasons, Logger: testLogger()}).Detect([]*domain.EnsembleField{field})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	// July baseline = 1; member 0 anomalies {-1, 5, -1}, member 1 {-1, -1, -1}.
	if got := resp.Sample(0)[0]; math.Abs(got-1) > 1e-12 {
		t.Errorf("member 0 mean anomaly = %v, want 1", got)
	}
	if got := resp.Sample(1)[0]; math.Abs(got-(-1)) > 1e-12 {
		t.Errorf("member 1 mean anomaly = %v, want -1", got)
	}
}

func TestWindowed_NoCompleteWindow(t *testing.T) {
	field := spikeField("tas", 2000, 2001, nil)
	_, err := Windowed(field, domain.YearRange{First: 2000, Last: 2001}, 3, WindowMax)
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestMonthlyBaseline_NoBaselineYears(t *testing.T) {
	field := spikeField("tas", 2000, 2001, nil)
	_, err := MonthlyBaseline(field, domain.YearRange{First: 1950, Last: 1960})
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}
