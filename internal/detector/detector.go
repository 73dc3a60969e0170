package detector

import (
	"fmt"
	"log/slog"

	"crop-stress-lab/internal/calendar"
	"crop-stress-lab/internal/domain"
)

// Detector builds the response field of one experiment. It is pure: the same
// inputs give a bit-identical result.
type Detector struct {
	exp     domain.Experiment
	seasons calendar.Seasons
	logger  *slog.Logger
}

// Options for creating a Detector.
type Options struct {
	// Seasons is required when the experiment masks to the growing season
	// or uses the anomalies response type.
	Seasons calendar.Seasons
	Logger  *slog.Logger
}

// New creates a Detector for exp.
func New(exp domain.Experiment, opts Options) *Detector {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		exp:     exp,
		seasons: opts.Seasons,
		logger:  logger.With(slog.String("component", "detector")),
	}
}

// Detect computes the response field. fields must hold one ensemble per
// configured variable, in configuration order, all on the same grid and time axis.
func (d *Detector) Detect(fields []*domain.EnsembleField) (*domain.ResponseField, error) {
	if len(fields) != len(d.exp.Variables) {
		return nil, fmt.Errorf("%w: %d ensemble fields for %d variables",
			domain.ErrShapeMismatch, len(fields), len(d.exp.Variables))
	}
	for i, f := range fields {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if f.Variable != d.exp.Variables[i].Variable {
			return nil, fmt.Errorf("%w: field %d is %q, want %q",
				domain.ErrShapeMismatch, i, f.Variable, d.exp.Variables[i].Variable)
		}
		if i > 0 {
			if err := sameLayout(fields[0], f); err != nil {
				return nil, err
			}
		}
	}

	switch d.exp.ResponseType {
	case domain.ResponseExtremes:
		return d.extremes(fields)
	case domain.ResponseAnomalies:
		return d.anomalies(fields)
	}
	return nil, fmt.Errorf("%w: response type %q", domain.ErrUnsupportedConfig, d.exp.ResponseType)
}

func (d *Detector) extremes(fields []*domain.EnsembleField) (*domain.ResponseField, error) {
	var hits []float64
	for i, f := range fields {
		v := d.exp.Variables[i]
		d.logger.Info("computing extremes",
			slog.String("variable", v.Variable),
			slog.String("tail", string(v.Tail)),
			slog.Float64("percentile", v.Percentile))

		anoms, err := d.anomalyField(f, d.exp.GrowingSeasonOnly)
		if err != nil {
			return nil, err
		}
		events, err := Events(anoms, d.exp.BaselineYears, v)
		if err != nil {
			return nil, err
		}
		if hits == nil {
			hits = events
			continue
		}
		for j := range hits {
			hits[j] += events[j]
		}
	}

	// joint occurrence: every variable must fire
	n := float64(len(fields))
	for j := range hits {
		if hits[j] == n {
			hits[j] = 1
		} else {
			hits[j] = 0
		}
	}

	return Windowed(fields[0].WithValues(hits), d.exp.ResponseYears, d.exp.WindowLen, WindowMax)
}

func (d *Detector) anomalies(fields []*domain.EnsembleField) (*domain.ResponseField, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("%w: anomalies need exactly one variable, got %d", domain.ErrUnsupportedConfig, len(fields))
	}
	d.logger.Info("computing anomalies", slog.String("variable", fields[0].Variable))

	anoms, err := d.anomalyField(fields[0], true)
	if err != nil {
		return nil, err
	}
	return Windowed(anoms, d.exp.ResponseYears, d.exp.WindowLen, WindowMean)
}

// anomalyField subtracts the monthly baseline, optionally masked to the growing season.
func (d *Detector) anomalyField(f *domain.EnsembleField, growingSeason bool) (*domain.EnsembleField, error) {
	baseline, err := MonthlyBaseline(f, d.exp.BaselineYears)
	if err != nil {
		return nil, err
	}
	if growingSeason {
		d.logger.Debug("masking baseline outside the growing season", slog.String("variable", f.Variable))
		baseline, err = calendar.MaskBaseline(baseline, d.seasons)
		if err != nil {
			return nil, err
		}
	}
	return Anomalies(f, baseline)
}

func sameLayout(a, b *domain.EnsembleField) error {
	if err := domain.CheckSameGrid(a.Grid, b.Grid); err != nil {
		return err
	}
	if a.Members != b.Members || len(a.Times) != len(b.Times) {
		return fmt.Errorf("%w: %s and %s differ in members or time steps", domain.ErrShapeMismatch, a.Variable, b.Variable)
	}
	for i := range a.Times {
		if a.Times[i] != b.Times[i] {
			return fmt.Errorf("%w: %s and %s time axes differ at %d", domain.ErrShapeMismatch, a.Variable, b.Variable, i)
		}
	}
	return nil
}
