package domain

import (
	"fmt"
	"math"
)

// Grid is a regular latitude/longitude grid. Cells are stored row-major:
// latitude outer, longitude inner.
type Grid struct {
	Lat []float64 // degrees north
	Lon []float64 // degrees east, either -180..180 or 0..360
}

// NLat returns the number of latitude rows.
func (g Grid) NLat() int { return len(g.Lat) }

// NLon returns the number of longitude columns.
func (g Grid) NLon() int { return len(g.Lon) }

// Cells returns the number of grid cells.
func (g Grid) Cells() int { return len(g.Lat) * len(g.Lon) }

// Index returns the flat cell index of (ilat, ilon).
func (g Grid) Index(ilat, ilon int) int { return ilat*len(g.Lon) + ilon }

// Equal reports whether both grids have identical axes.
func (g Grid) Equal(o Grid) bool {
	return floatsEqual(g.Lat, o.Lat) && floatsEqual(g.Lon, o.Lon)
}

// CheckSameGrid returns ErrShapeMismatch when the grids differ.
func CheckSameGrid(a, b Grid) error {
	if !a.Equal(b) {
		return fmt.Errorf("%w: grid %dx%d vs %dx%d", ErrShapeMismatch, a.NLat(), a.NLon(), b.NLat(), b.NLon())
	}
	return nil
}

// NearestIndex returns the index of the axis value closest to v.
// Ties resolve to the first occurrence. Returns -1 for an empty axis.
func NearestIndex(axis []float64, v float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, a := range axis {
		d := math.Abs(a - v)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 && len(axis) > 0 {
		return 0
	}
	return best
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
