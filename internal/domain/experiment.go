package domain

import (
	"fmt"
	"strings"
)

// Product is a GTAP commodity selector.
type Product string

const (
	ProductRice     Product = "pdr"
	ProductWheat    Product = "wht"
	ProductMaize    Product = "gro"
	ProductSoy      Product = "osd"
	ProductAll      Product = "all"
	ProductCalories Product = "calories"
)

// ParseProduct converts a commodity code into a Product.
func ParseProduct(s string) (Product, error) {
	switch p := Product(s); p {
	case ProductRice, ProductWheat, ProductMaize, ProductSoy, ProductAll, ProductCalories:
		return p, nil
	}
	return "", fmt.Errorf("%w: product %q", ErrUnsupportedConfig, s)
}

// CropName returns the human-readable crop name.
func (p Product) CropName() string {
	switch p {
	case ProductRice:
		return "rice"
	case ProductWheat:
		return "wheat"
	case ProductMaize:
		return "maize"
	case ProductSoy:
		return "soy"
	case ProductAll:
		return "all"
	case ProductCalories:
		return "calories"
	}
	return string(p)
}

// SingleCrop reports whether the product names one crop commodity.
func (p Product) SingleCrop() bool {
	switch p {
	case ProductRice, ProductWheat, ProductMaize, ProductSoy:
		return true
	}
	return false
}

// NutritiveFactor returns the calories-per-dollar factor of a crop commodity.
func NutritiveFactor(commodity string) (float64, bool) {
	switch Product(commodity) {
	case ProductWheat:
		return 13.14, true
	case ProductMaize:
		return 17.67, true
	case ProductRice:
		return 5.66, true
	case ProductSoy:
		return 8.08, true
	}
	return 0, false
}

// Tail selects which side of the percentile threshold counts as an event.
type Tail string

const (
	TailAbove      Tail = "above"
	TailBelow      Tail = "below"
	TailBelowAbove Tail = "below_above"
)

// ParseTail converts a tail name into a Tail.
func ParseTail(s string) (Tail, error) {
	switch t := Tail(s); t {
	case TailAbove, TailBelow, TailBelowAbove:
		return t, nil
	}
	return "", fmt.Errorf("%w: response tail %q", ErrUnsupportedConfig, s)
}

// ResponseType selects how the ensemble is turned into a stress signal.
type ResponseType string

const (
	ResponseExtremes  ResponseType = "extremes"
	ResponseAnomalies ResponseType = "anomalies"
)

// ParseResponseType converts a response type name into a ResponseType.
func ParseResponseType(s string) (ResponseType, error) {
	switch r := ResponseType(s); r {
	case ResponseExtremes, ResponseAnomalies:
		return r, nil
	}
	return "", fmt.Errorf("%w: response type %q", ErrUnsupportedConfig, s)
}

// YearRange is an inclusive range of calendar years.
type YearRange struct {
	First int
	Last  int
}

// Contains reports whether year lies in the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.First && year <= r.Last
}

// String renders the range as "first-last".
func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.First, r.Last)
}

// VariableThreshold configures event detection for one physical variable.
type VariableThreshold struct {
	Variable   string  // e.g. "tas", "pr"
	Tail       Tail    // which side of the threshold fires
	Percentile float64 // 0..100
}

// Experiment is one validated, immutable experiment configuration.
type Experiment struct {
	Name              string
	GCM               string // climate-model identifier used in input file names
	Members           int
	DataYears         YearRange
	BaselineYears     YearRange
	ResponseType      ResponseType
	Variables         []VariableThreshold
	ResponseYears     YearRange
	WindowLen         int
	GrowingSeasonOnly bool
	IncludeSelf       bool
	ExcludeRegions    []string
	Product           Product
	TradeFile         string
	TradeYear         int
	ConvertToCalories bool
	Subexperiments    []string
}

// Excluded reports whether a region code is in the exclusion list.
func (e Experiment) Excluded(code string) bool {
	for _, r := range e.ExcludeRegions {
		if r == code {
			return true
		}
	}
	return false
}

// VariableNames returns the configured variable names in order.
func (e Experiment) VariableNames() []string {
	names := make([]string, len(e.Variables))
	for i, v := range e.Variables {
		names[i] = v.Variable
	}
	return names
}

// Canonical renders every setting as one pipe-joined line.
// Two experiments with equal canonical strings produce identical outputs.
func (e Experiment) Canonical() string {
	vars := make([]string, len(e.Variables))
	for i, v := range e.Variables {
		vars[i] = fmt.Sprintf("%s:%s:%g", v.Variable, v.Tail, v.Percentile)
	}
	return strings.Join([]string{
		e.Name,
		e.GCM,
		fmt.Sprintf("%d", e.Members),
		e.DataYears.String(),
		e.BaselineYears.String(),
		string(e.ResponseType),
		strings.Join(vars, ","),
		e.ResponseYears.String(),
		fmt.Sprintf("%d", e.WindowLen),
		fmt.Sprintf("%t", e.GrowingSeasonOnly),
		fmt.Sprintf("%t", e.IncludeSelf),
		strings.Join(e.ExcludeRegions, ","),
		string(e.Product),
		e.TradeFile,
		fmt.Sprintf("%d", e.TradeYear),
		fmt.Sprintf("%t", e.ConvertToCalories),
	}, "|")
}
