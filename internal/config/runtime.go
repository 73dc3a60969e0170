package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"crop-stress-lab/internal/calendar"
	"crop-stress-lab/internal/domain"
)

// EnvPrefix prefixes every runtime environment variable.
const EnvPrefix = "CROPSTRESS"

// Runtime holds machine-specific settings: input/output locations, workers
// and optional service endpoints.
type Runtime struct {
	DataDir      string `envconfig:"DATA_DIR" default:"data" validate:"required"`
	CalendarDir  string `envconfig:"CALENDAR_DIR" default:"data/crop_calendar" validate:"required"`
	CroplandDir  string `envconfig:"CROPLAND_DIR" default:"data/cropland/regridded_cropland" validate:"required"`
	ShapeDir     string `envconfig:"SHAPE_DIR" default:"shapefiles" validate:"required"`
	TradeDir     string `envconfig:"TRADE_DIR" default:"data/GTAP_data" validate:"required"`
	ProcessedDir string `envconfig:"PROCESSED_DIR" default:"processed_data" validate:"required"`
	OutputDir    string `envconfig:"OUTPUT_DIR" default:"output" validate:"required"`

	// Region lookups. RegionTable (CSV) takes precedence over Shapefile.
	Shapefile       string `envconfig:"SHAPEFILE" default:"20230301_gtapv11.shp"`
	RegionTable     string `envconfig:"REGION_TABLE"`
	RegionNamesFile string `envconfig:"REGION_NAMES"`

	Workers   int    `envconfig:"WORKERS" default:"4" validate:"min=1"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`

	MetricsAddr   string `envconfig:"METRICS_ADDR"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	ClickHouseDSN string `envconfig:"CLICKHOUSE_DSN"`
}

// LoadRuntime reads CROPSTRESS_* environment variables over the defaults.
func LoadRuntime() (*Runtime, error) {
	var rt Runtime
	if err := envconfig.Process(EnvPrefix, &rt); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	return &rt, nil
}

// Validate checks field constraints.
func (rt *Runtime) Validate() error {
	if err := validator.New().Struct(rt); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Logger builds the process logger from LogLevel and LogFormat.
func (rt *Runtime) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(rt.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if rt.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// EnsemblePath is the concatenated ensemble file of one variable.
func (rt *Runtime) EnsemblePath(exp domain.Experiment, variable string) string {
	return filepath.Join(rt.DataDir, exp.GCM, fmt.Sprintf("%s_%s.nc", variable, exp.GCM))
}

// CroplandPath is the regridded cropland fraction of the experiment's product.
func (rt *Runtime) CroplandPath(exp domain.Experiment) string {
	return filepath.Join(rt.CroplandDir, fmt.Sprintf("%s_cropped_regrid_%s.nc", exp.Product, exp.GCM))
}

// CountryRasterPath is the country-index raster on the model grid.
func (rt *Runtime) CountryRasterPath(exp domain.Experiment) string {
	return filepath.Join(rt.ShapeDir, fmt.Sprintf("countries_10m_%s.nc", exp.GCM))
}

// ShapefilePath is the trade-region shapefile.
func (rt *Runtime) ShapefilePath() string {
	return filepath.Join(rt.ShapeDir, rt.Shapefile)
}

// TradePath is the trade table of the experiment.
func (rt *Runtime) TradePath(exp domain.Experiment) string {
	return filepath.Join(rt.TradeDir, exp.TradeFile)
}

// CalendarPaths returns the primary and optional secondary calendar files.
func (rt *Runtime) CalendarPaths(p domain.Product) (primary, secondary string, err error) {
	a, b, err := calendar.Files(p)
	if err != nil {
		return "", "", err
	}
	primary = filepath.Join(rt.CalendarDir, a)
	if b != "" {
		secondary = filepath.Join(rt.CalendarDir, b)
	}
	return primary, secondary, nil
}
