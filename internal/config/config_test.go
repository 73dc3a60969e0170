package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-stress-lab/internal/domain"
)

const experimentsYAML = `
experiments:
  exp600:
    gcm: mpi
    n_members: 100
    data_years: [2014, 2030]
    baseline_years: [2015, 2024]
    response_type: extremes
    include_self: true
    var_list: [tas, pr]
    response_tail: [above, below_above]
    response_threshold: [95, 5]
    response_year_range: [2025, 2025]
    window_len: 1
    growing_season_only: true
    exclude_regions: [hkg, xtw]
    product: calories
    trade_file: 2024-01-04_GTAPdata_MUSD_v11b.csv
    subexperiments: [exp601, exp602]
  exp601:
    gcm: mpi
    n_members: 100
    data_years: [2014, 2030]
    baseline_years: [2015, 2024]
    response_type: extremes
    var_list: [tas]
    response_tail: [above]
    response_threshold: [95]
    response_year_range: [2025, 2025]
    window_len: 1
    product: gro
    trade_file: 2024-01-04_GTAPdata_MUSD_v11b.csv
  exp602:
    gcm: cesm2
    n_members: 10
    data_years: [2014, 2030]
    baseline_years: [2015, 2024]
    response_type: anomalies
    var_list: [tas]
    response_year_range: [2025, 2028]
    window_len: 2
    product: wht
    trade_file: 2024-01-04_GTAPdata_MUSD_v11b.csv
    trade_data_year: 2017
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(experimentsYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"exp600", "exp601", "exp602"}, reg.Names())

	exp, err := reg.Get("exp600")
	require.NoError(t, err)
	assert.Equal(t, "exp600", exp.Name)
	assert.Equal(t, domain.ProductCalories, exp.Product)
	assert.Equal(t, domain.YearRange{First: 2015, Last: 2024}, exp.BaselineYears)
	require.Len(t, exp.Variables, 2)
	assert.Equal(t, domain.VariableThreshold{Variable: "pr", Tail: domain.TailBelowAbove, Percentile: 5}, exp.Variables[1])
	assert.True(t, exp.Excluded("xtw"))
	assert.Equal(t, DefaultTradeYear, exp.TradeYear)

	anom, err := reg.Get("exp602")
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseAnomalies, anom.ResponseType)
	assert.Equal(t, []string{"tas"}, anom.VariableNames())
}

func TestRegistry_Expand(t *testing.T) {
	reg, err := Parse([]byte(experimentsYAML))
	require.NoError(t, err)

	subs, err := reg.Expand("exp600")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "exp601", subs[0].Name)
	assert.Equal(t, "exp602", subs[1].Name)

	single, err := reg.Expand("exp601")
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "exp601", single[0].Name)
}

func TestRegistry_UnknownExperiment(t *testing.T) {
	reg, err := Parse([]byte(experimentsYAML))
	require.NoError(t, err)

	_, err = reg.Get("exp999")
	assert.True(t, errors.Is(err, ErrUnknownExperiment))
}

func TestParse_Rejects(t *testing.T) {
	base := `
experiments:
  bad:
    gcm: mpi
    n_members: 1
    data_years: [2014, 2030]
    baseline_years: [2015, 2024]
    response_year_range: [2025, 2025]
    window_len: 1
    product: gro
    trade_file: t.csv
`
	tests := []struct {
		name  string
		extra string
	}{
		{"unknown tail", "    response_type: extremes\n    var_list: [tas]\n    response_tail: [sideways]\n    response_threshold: [90]\n"},
		{"unknown response type", "    response_type: moments\n    var_list: [tas]\n"},
		{"length mismatch", "    response_type: extremes\n    var_list: [tas, pr]\n    response_tail: [above]\n    response_threshold: [90]\n"},
		{"threshold out of range", "    response_type: extremes\n    var_list: [tas]\n    response_tail: [above]\n    response_threshold: [100]\n"},
		{"anomalies with two variables", "    response_type: anomalies\n    var_list: [tas, pr]\n"},
		{"trade year without data", "    response_type: anomalies\n    var_list: [tas]\n    trade_data_year: 2014\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(base + tt.extra))
			assert.True(t, errors.Is(err, domain.ErrUnsupportedConfig), "err = %v", err)
		})
	}
}

func TestParse_UnknownSubexperiment(t *testing.T) {
	doc := `
experiments:
  parent:
    gcm: mpi
    n_members: 1
    data_years: [2014, 2030]
    baseline_years: [2015, 2024]
    response_type: anomalies
    var_list: [tas]
    response_year_range: [2025, 2025]
    window_len: 1
    product: gro
    trade_file: t.csv
    subexperiments: [missing]
`
	_, err := Parse([]byte(doc))
	assert.True(t, errors.Is(err, ErrUnknownExperiment), "err = %v", err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(experimentsYAML), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, reg.Names(), 3)
}

func TestLoadRuntime(t *testing.T) {
	t.Setenv("CROPSTRESS_WORKERS", "8")
	t.Setenv("CROPSTRESS_DATA_DIR", "/data/climate")
	t.Setenv("CROPSTRESS_LOG_FORMAT", "json")

	rt, err := LoadRuntime()
	require.NoError(t, err)
	assert.Equal(t, 8, rt.Workers)
	assert.Equal(t, "processed_data", rt.ProcessedDir)

	exp := domain.Experiment{GCM: "mpi", Product: domain.ProductMaize}
	assert.Equal(t, filepath.Join("/data/climate", "mpi", "tas_mpi.nc"), rt.EnsemblePath(exp, "tas"))
	assert.Equal(t, filepath.Join(rt.CroplandDir, "gro_cropped_regrid_mpi.nc"), rt.CroplandPath(exp))

	primary, secondary, err := rt.CalendarPaths(domain.ProductSoy)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(rt.CalendarDir, "Soybeans.crop.calendar.fill.nc"), primary)
	assert.Empty(t, secondary)
}

func TestLoadRuntime_InvalidWorkers(t *testing.T) {
	t.Setenv("CROPSTRESS_WORKERS", "0")
	_, err := LoadRuntime()
	assert.Error(t, err)
}
