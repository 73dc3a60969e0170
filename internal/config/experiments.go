// Package config loads experiment definitions from YAML and runtime settings
// from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"crop-stress-lab/internal/domain"
)

// ErrUnknownExperiment is returned by Registry.Get for a name not in the file.
var ErrUnknownExperiment = errors.New("unknown experiment")

// DefaultTradeYear is the only year the bundled GTAP tables cover.
const DefaultTradeYear = 2017

// ExperimentConfig is one experiment as written in YAML.
type ExperimentConfig struct {
	GCM               string    `yaml:"gcm" validate:"required"`
	Members           int       `yaml:"n_members" validate:"min=1"`
	DataYears         []int     `yaml:"data_years" validate:"len=2"`
	BaselineYears     []int     `yaml:"baseline_years" validate:"len=2"`
	ResponseType      string    `yaml:"response_type" validate:"required"`
	IncludeSelf       bool      `yaml:"include_self"`
	VarList           []string  `yaml:"var_list" validate:"min=1,dive,required"`
	ResponseTail      []string  `yaml:"response_tail"`
	ResponseThreshold []float64 `yaml:"response_threshold" validate:"dive,gt=0,lt=100"`
	ResponseYearRange []int     `yaml:"response_year_range" validate:"len=2"`
	WindowLen         int       `yaml:"window_len" validate:"min=1"`
	GrowingSeasonOnly bool      `yaml:"growing_season_only"`
	ExcludeRegions    []string  `yaml:"exclude_regions"`
	Product           string    `yaml:"product" validate:"required"`
	TradeFile         string    `yaml:"trade_file" validate:"required"`
	TradeYear         int       `yaml:"trade_data_year"`
	ConvertToCalories bool      `yaml:"convert_to_calories"`
	Subexperiments    []string  `yaml:"subexperiments"`
}

// File is the top-level YAML document.
type File struct {
	Experiments map[string]ExperimentConfig `yaml:"experiments" validate:"required,min=1,dive"`
}

// Registry holds every validated experiment of a file.
type Registry struct {
	experiments map[string]domain.Experiment
}

// Load reads and validates an experiment file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiments: %w", err)
	}
	return Parse(data)
}

// Parse validates an experiment document.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse experiments: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedConfig, err)
	}

	r := &Registry{experiments: make(map[string]domain.Experiment, len(f.Experiments))}
	for name, ec := range f.Experiments {
		exp, err := ec.toExperiment(name)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", name, err)
		}
		r.experiments[name] = exp
	}
	for name, exp := range r.experiments {
		for _, sub := range exp.Subexperiments {
			if _, ok := r.experiments[sub]; !ok {
				return nil, fmt.Errorf("experiment %s: %w: subexperiment %q", name, ErrUnknownExperiment, sub)
			}
		}
	}
	return r, nil
}

// Get returns the experiment called name.
func (r *Registry) Get(name string) (domain.Experiment, error) {
	exp, ok := r.experiments[name]
	if !ok {
		return domain.Experiment{}, fmt.Errorf("%w: %q", ErrUnknownExperiment, name)
	}
	return exp, nil
}

// Expand returns the subexperiments of name in declared order, or the
// experiment itself when it has none.
func (r *Registry) Expand(name string) ([]domain.Experiment, error) {
	exp, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if len(exp.Subexperiments) == 0 {
		return []domain.Experiment{exp}, nil
	}
	out := make([]domain.Experiment, 0, len(exp.Subexperiments))
	for _, sub := range exp.Subexperiments {
		child, err := r.Get(sub)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// Names returns every experiment name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.experiments))
	for n := range r.experiments {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c ExperimentConfig) toExperiment(name string) (domain.Experiment, error) {
	rt, err := domain.ParseResponseType(c.ResponseType)
	if err != nil {
		return domain.Experiment{}, err
	}
	product, err := domain.ParseProduct(c.Product)
	if err != nil {
		return domain.Experiment{}, err
	}

	exp := domain.Experiment{
		Name:              name,
		GCM:               c.GCM,
		Members:           c.Members,
		DataYears:         domain.YearRange{First: c.DataYears[0], Last: c.DataYears[1]},
		BaselineYears:     domain.YearRange{First: c.BaselineYears[0], Last: c.BaselineYears[1]},
		ResponseType:      rt,
		ResponseYears:     domain.YearRange{First: c.ResponseYearRange[0], Last: c.ResponseYearRange[1]},
		WindowLen:         c.WindowLen,
		GrowingSeasonOnly: c.GrowingSeasonOnly,
		IncludeSelf:       c.IncludeSelf,
		ExcludeRegions:    append([]string(nil), c.ExcludeRegions...),
		Product:           product,
		TradeFile:         c.TradeFile,
		TradeYear:         c.TradeYear,
		ConvertToCalories: c.ConvertToCalories,
		Subexperiments:    append([]string(nil), c.Subexperiments...),
	}
	if exp.TradeYear == 0 {
		exp.TradeYear = DefaultTradeYear
	}
	if exp.TradeYear != DefaultTradeYear {
		return domain.Experiment{}, fmt.Errorf("%w: trade_data_year %d, only %d is available",
			domain.ErrUnsupportedConfig, exp.TradeYear, DefaultTradeYear)
	}
	for label, yr := range map[string]domain.YearRange{
		"data_years":          exp.DataYears,
		"baseline_years":      exp.BaselineYears,
		"response_year_range": exp.ResponseYears,
	} {
		if yr.First > yr.Last {
			return domain.Experiment{}, fmt.Errorf("%w: %s %s is reversed", domain.ErrUnsupportedConfig, label, yr)
		}
	}

	switch rt {
	case domain.ResponseExtremes:
		if len(c.ResponseTail) != len(c.VarList) || len(c.ResponseThreshold) != len(c.VarList) {
			return domain.Experiment{}, fmt.Errorf("%w: %d variables, %d tails, %d thresholds",
				domain.ErrUnsupportedConfig, len(c.VarList), len(c.ResponseTail), len(c.ResponseThreshold))
		}
		for i, v := range c.VarList {
			tail, err := domain.ParseTail(c.ResponseTail[i])
			if err != nil {
				return domain.Experiment{}, err
			}
			exp.Variables = append(exp.Variables, domain.VariableThreshold{
				Variable:   v,
				Tail:       tail,
				Percentile: c.ResponseThreshold[i],
			})
		}
	case domain.ResponseAnomalies:
		if len(c.VarList) != 1 {
			return domain.Experiment{}, fmt.Errorf("%w: anomalies take one variable, got %d",
				domain.ErrUnsupportedConfig, len(c.VarList))
		}
		exp.Variables = []domain.VariableThreshold{{Variable: c.VarList[0]}}
	}
	return exp, nil
}
