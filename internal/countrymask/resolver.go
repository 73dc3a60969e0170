package countrymask

import (
	"log/slog"
	"math"
	"sync"

	"crop-stress-lab/internal/domain"
)

// Resolver turns region codes into masks on the country-index raster grid.
// Resolved masks are memoised; Resolve is safe for concurrent use.
type Resolver struct {
	raster domain.Field2D
	table  *Table
	logger *slog.Logger

	mu    sync.RWMutex
	masks map[string]domain.CountryMask
}

// NewResolver creates a resolver over a raster whose cells hold the table
// index of the region covering them and NaN elsewhere.
func NewResolver(raster domain.Field2D, table *Table, logger *slog.Logger) (*Resolver, error) {
	if err := raster.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		raster: raster,
		table:  table,
		logger: logger.With(slog.String("component", "countrymask")),
		masks:  make(map[string]domain.CountryMask),
	}, nil
}

// Grid returns the raster grid.
func (r *Resolver) Grid() domain.Grid { return r.raster.Grid }

// Resolve returns the mask of code: 1.0 on cells rasterised to the region,
// NaN elsewhere. A region too small to cover any cell gets the single cell
// nearest to its centroid.
func (r *Resolver) Resolve(code string) (domain.CountryMask, error) {
	r.mu.RLock()
	m, ok := r.masks[code]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	entry, err := r.table.Lookup(code)
	if err != nil {
		return domain.CountryMask{}, err
	}
	m = r.build(entry)

	r.mu.Lock()
	if existing, ok := r.masks[code]; ok {
		m = existing
	} else {
		r.masks[code] = m
	}
	r.mu.Unlock()
	return m, nil
}

func (r *Resolver) build(e Entry) domain.CountryMask {
	mask := domain.NewField2D(r.raster.Grid, math.NaN())
	target := float64(e.Index)
	set := 0
	for i, v := range r.raster.Values {
		if v == target {
			mask.Values[i] = 1
			set++
		}
	}
	if set > 0 {
		return domain.CountryMask{Code: e.Code, Mask: mask}
	}

	ilat := domain.NearestIndex(r.raster.Grid.Lat, e.CentroidLat)
	ilon := domain.NearestIndex(r.raster.Grid.Lon, PositiveLongitude(e.CentroidLon))
	mask.Values[r.raster.Grid.Index(ilat, ilon)] = 1
	r.logger.Debug("country not rasterised, using nearest grid point",
		slog.String("code", e.Code),
		slog.Int("ilat", ilat),
		slog.Int("ilon", ilon))
	return domain.CountryMask{Code: e.Code, Mask: mask, Fallback: true}
}

// PositiveLongitude maps a -180..180 longitude onto 0..360.
func PositiveLongitude(lon float64) float64 {
	if lon < 0 {
		return 360 + lon
	}
	return lon
}
