package orchestrator

import (
	"fmt"
	"log/slog"
	"sync"

	"crop-stress-lab/internal/calendar"
	"crop-stress-lab/internal/config"
	"crop-stress-lab/internal/countrymask"
	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/geo"
	"crop-stress-lab/internal/gridio"
	"crop-stress-lab/internal/propagation"
	"crop-stress-lab/internal/trade"
)

// Loader reads the inputs of one experiment.
type Loader interface {
	// Ensembles returns one field per configured variable, in configuration order.
	Ensembles(exp domain.Experiment) ([]*domain.EnsembleField, error)
	Seasons(exp domain.Experiment) (calendar.Seasons, error)
	Cropland(exp domain.Experiment) (domain.Field2D, error)
	Trade(exp domain.Experiment) ([]domain.TradeEdge, error)
	Masks(exp domain.Experiment) (propagation.MaskResolver, error)
}

// FileLoader reads inputs from the directories of a runtime config.
// The region table is read once; resolvers are kept per GCM so that the
// subexperiments of one run share their rasterised masks.
type FileLoader struct {
	rt     *config.Runtime
	logger *slog.Logger

	tableOnce sync.Once
	table     *countrymask.Table
	tableErr  error

	mu        sync.Mutex
	resolvers map[string]*countrymask.Resolver
}

// NewFileLoader creates a FileLoader.
func NewFileLoader(rt *config.Runtime, logger *slog.Logger) *FileLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileLoader{
		rt:        rt,
		logger:    logger.With(slog.String("component", "loader")),
		resolvers: make(map[string]*countrymask.Resolver),
	}
}

func (l *FileLoader) Ensembles(exp domain.Experiment) ([]*domain.EnsembleField, error) {
	fields := make([]*domain.EnsembleField, 0, len(exp.Variables))
	for _, v := range exp.Variables {
		path := l.rt.EnsemblePath(exp, v.Variable)
		f, err := gridio.ReadEnsemble(path, v.Variable)
		if err != nil {
			return nil, fmt.Errorf("read ensemble %s: %w", path, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (l *FileLoader) Seasons(exp domain.Experiment) (calendar.Seasons, error) {
	primary, secondary, err := l.rt.CalendarPaths(exp.Product)
	if err != nil {
		return calendar.Seasons{}, err
	}
	var s calendar.Seasons
	if s.Primary, err = gridio.ReadCalendar(primary); err != nil {
		return calendar.Seasons{}, fmt.Errorf("read calendar %s: %w", primary, err)
	}
	if secondary != "" {
		if s.Secondary, err = gridio.ReadCalendar(secondary); err != nil {
			return calendar.Seasons{}, fmt.Errorf("read calendar %s: %w", secondary, err)
		}
	}
	return s, nil
}

func (l *FileLoader) Cropland(exp domain.Experiment) (domain.Field2D, error) {
	path := l.rt.CroplandPath(exp)
	f, err := gridio.ReadField(path, gridio.VarCropland)
	if err != nil {
		return domain.Field2D{}, fmt.Errorf("read cropland %s: %w", path, err)
	}
	return f, nil
}

func (l *FileLoader) Trade(exp domain.Experiment) ([]domain.TradeEdge, error) {
	path := l.rt.TradePath(exp)
	edges, err := trade.LoadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("read trade table %s: %w", path, err)
	}
	return edges, nil
}

func (l *FileLoader) Masks(exp domain.Experiment) (propagation.MaskResolver, error) {
	table, err := l.regionTable()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.resolvers[exp.GCM]; ok {
		return r, nil
	}

	path := l.rt.CountryRasterPath(exp)
	raster, err := gridio.ReadField(path, gridio.VarRegion)
	if err != nil {
		return nil, fmt.Errorf("read country raster %s: %w", path, err)
	}
	r, err := countrymask.NewResolver(raster, table, l.logger)
	if err != nil {
		return nil, err
	}
	l.resolvers[exp.GCM] = r
	return r, nil
}

func (l *FileLoader) regionTable() (*countrymask.Table, error) {
	l.tableOnce.Do(func() {
		if l.rt.RegionTable != "" {
			l.table, l.tableErr = countrymask.LoadCSV(l.rt.RegionTable)
			if l.tableErr != nil {
				l.tableErr = fmt.Errorf("read region table %s: %w", l.rt.RegionTable, l.tableErr)
			}
			return
		}
		path := l.rt.ShapefilePath()
		regions, err := geo.LoadShapefile(path)
		if err != nil {
			l.tableErr = fmt.Errorf("read shapefile %s: %w", path, err)
			return
		}
		l.table, l.tableErr = countrymask.FromRegions(regions)
		if l.tableErr == nil {
			l.logger.Debug("region table ready", slog.Int("regions", l.table.Len()))
		}
	})
	return l.table, l.tableErr
}

var _ Loader = (*FileLoader)(nil)
