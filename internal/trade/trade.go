// Package trade loads bilateral trade flows and aggregates them into the
// trade network consumed by the propagation engine.
package trade

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"crop-stress-lab/internal/domain"
)

// CSV column names.
const (
	ColSource      = "Source"
	ColDestination = "Destination"
	ColCommodity   = "COMM"
	ColValue       = "TotValue"
)

// LoadCSV reads trade flows from path.
func LoadCSV(path string) ([]domain.TradeEdge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trade file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// missingValues are the cell spellings read as a missing value, which
// counts as no trade.
var missingValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

// ReadCSV parses trade flows. Missing and NaN values read as 0.
func ReadCSV(r io.Reader) ([]domain.TradeEdge, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read trade header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range []string{ColSource, ColDestination, ColCommodity, ColValue} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("trade file: missing column %q", name)
		}
	}

	field := func(rec []string, name string) string {
		i := col[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var edges []domain.TradeEdge
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trade file line %d: %w", line, err)
		}
		var value float64
		if s := field(rec, ColValue); !missingValues[s] {
			value, err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("trade file line %d: %s: %w", line, ColValue, err)
			}
			if math.IsNaN(value) {
				value = 0
			}
		}
		edges = append(edges, domain.TradeEdge{
			Source:      field(rec, ColSource),
			Destination: field(rec, ColDestination),
			Commodity:   field(rec, ColCommodity),
			Value:       value,
		})
	}
	return edges, nil
}

// Prepare filters, converts and aggregates raw flows for exp.
func Prepare(edges []domain.TradeEdge, exp domain.Experiment) *domain.TradeTable {
	type pair struct{ src, dst string }
	sums := make(map[pair]float64)

	for _, e := range edges {
		if exp.Product.SingleCrop() && e.Commodity != string(exp.Product) {
			continue
		}
		v := e.Value
		if exp.ConvertToCalories {
			if f, ok := domain.NutritiveFactor(e.Commodity); ok {
				v *= f
			}
		}
		sums[pair{e.Source, e.Destination}] += v
	}

	table := &domain.TradeTable{Edges: make([]domain.TradeEdge, 0, len(sums))}
	for k, v := range sums {
		if !exp.IncludeSelf && k.src == k.dst {
			continue
		}
		table.Edges = append(table.Edges, domain.TradeEdge{Source: k.src, Destination: k.dst, Value: v})
	}
	sort.Slice(table.Edges, func(i, j int) bool {
		a, b := table.Edges[i], table.Edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Destination < b.Destination
	})

	sources := make(map[string]struct{})
	destinations := make(map[string]struct{})
	for _, e := range table.Edges {
		sources[e.Source] = struct{}{}
		destinations[e.Destination] = struct{}{}
	}
	for d := range destinations {
		if !exp.Excluded(d) {
			table.Reporters = append(table.Reporters, d)
		}
	}
	for s := range sources {
		table.Partners = append(table.Partners, s)
	}
	sort.Strings(table.Reporters)
	sort.Strings(table.Partners)
	return table
}
