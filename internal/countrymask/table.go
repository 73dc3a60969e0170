// Package countrymask resolves trade-region codes to gridded country masks.
package countrymask

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/geo"
)

// Entry maps a region code to its value in the country-index raster and its centroid.
type Entry struct {
	Code        string
	Index       int
	CentroidLon float64
	CentroidLat float64
}

// Table is the region lookup used by the Resolver.
type Table struct {
	entries []Entry
	byCode  map[string]int
}

// NewTable builds a table. Codes must be unique.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{entries: entries, byCode: make(map[string]int, len(entries))}
	for i, e := range entries {
		if _, dup := t.byCode[e.Code]; dup {
			return nil, fmt.Errorf("region table: duplicate code %q", e.Code)
		}
		t.byCode[e.Code] = i
	}
	return t, nil
}

// FromRegions indexes dissolved shapefile regions by their sorted position.
func FromRegions(regions []geo.Region) (*Table, error) {
	entries := make([]Entry, len(regions))
	for i, r := range regions {
		lon, lat := r.Centroid()
		entries[i] = Entry{Code: r.Code, Index: i, CentroidLon: lon, CentroidLat: lat}
	}
	return NewTable(entries)
}

// Lookup returns the entry of code.
func (t *Table) Lookup(code string) (Entry, error) {
	i, ok := t.byCode[code]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", domain.ErrUnknownCountry, code)
	}
	return t.entries[i], nil
}

// Len returns the number of regions.
func (t *Table) Len() int { return len(t.entries) }

// LoadCSV reads a table with the header code,index,centroid_lon,centroid_lat.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open region table: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a region table from r.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read region table header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"code", "index", "centroid_lon", "centroid_lat"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("region table: missing column %q", name)
		}
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("region table line %d: %w", line, err)
		}
		idx, err := strconv.Atoi(rec[col["index"]])
		if err != nil {
			return nil, fmt.Errorf("region table line %d: index: %w", line, err)
		}
		lon, err := strconv.ParseFloat(rec[col["centroid_lon"]], 64)
		if err != nil {
			return nil, fmt.Errorf("region table line %d: centroid_lon: %w", line, err)
		}
		lat, err := strconv.ParseFloat(rec[col["centroid_lat"]], 64)
		if err != nil {
			return nil, fmt.Errorf("region table line %d: centroid_lat: %w", line, err)
		}
		entries = append(entries, Entry{
			Code:        strings.TrimSpace(rec[col["code"]]),
			Index:       idx,
			CentroidLon: lon,
			CentroidLat: lat,
		})
	}
	return NewTable(entries)
}
