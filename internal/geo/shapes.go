// Package geo reads trade-region polygons and derives the region table used
// to resolve country masks.
package geo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// Attribute columns of the region shapefile.
const (
	RegionColumn = "REG"
	IDColumn     = "GTAPID"
)

// Region is one trade region after dissolving all of its shapefile rows.
type Region struct {
	Code  string
	ID    float64 // GTAPID of the first row of the region
	Shape geom.MultiPolygon
}

// Centroid returns the area-weighted centroid of the region as (lon, lat).
func (r Region) Centroid() (lon, lat float64) {
	c := r.Shape.Centroid()
	return c.X, c.Y
}

// LoadShapefile reads path and dissolves its rows by REG. The result is
// sorted by GTAPID, so a region's position in the slice is its raster index.
func LoadShapefile(path string) ([]Region, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer dec.Close()

	byCode := make(map[string]*Region)
	var order []string
	for {
		g, fields, more := dec.DecodeRowFields(RegionColumn, IDColumn)
		if !more {
			break
		}
		code := cleanField(fields[RegionColumn])
		if code == "" {
			return nil, fmt.Errorf("shapefile %s: row without %s", path, RegionColumn)
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("shapefile %s: region %s is %T, want polygons", path, code, g)
		}

		r, seen := byCode[code]
		if !seen {
			id, err := strconv.ParseFloat(cleanField(fields[IDColumn]), 64)
			if err != nil {
				return nil, fmt.Errorf("shapefile %s: region %s %s: %w", path, code, IDColumn, err)
			}
			r = &Region{Code: code, ID: id}
			byCode[code] = r
			order = append(order, code)
		}
		r.Shape = append(r.Shape, poly.Polygons()...)
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}

	regions := make([]Region, 0, len(order))
	for _, code := range order {
		regions = append(regions, *byCode[code])
	}
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	return regions, nil
}

// cleanField strips the space and NUL padding of dBase text fields.
func cleanField(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
