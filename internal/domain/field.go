package domain

import (
	"fmt"
	"math"
	"sort"
)

// Field2D is a single lat x lon layer.
type Field2D struct {
	Grid   Grid
	Values []float64 // len = Grid.Cells()
}

// NewField2D allocates a field filled with v.
func NewField2D(g Grid, v float64) Field2D {
	values := make([]float64, g.Cells())
	for i := range values {
		values[i] = v
	}
	return Field2D{Grid: g, Values: values}
}

// At returns the value at (ilat, ilon).
func (f Field2D) At(ilat, ilon int) float64 {
	return f.Values[f.Grid.Index(ilat, ilon)]
}

// Validate checks that the value count matches the grid.
func (f Field2D) Validate() error {
	if len(f.Values) != f.Grid.Cells() {
		return fmt.Errorf("%w: field has %d values for %d cells", ErrShapeMismatch, len(f.Values), f.Grid.Cells())
	}
	return nil
}

// Mul returns the cell-wise product of two fields on the same grid.
func (f Field2D) Mul(o Field2D) (Field2D, error) {
	if err := CheckSameGrid(f.Grid, o.Grid); err != nil {
		return Field2D{}, err
	}
	out := make([]float64, len(f.Values))
	for i := range out {
		out[i] = f.Values[i] * o.Values[i]
	}
	return Field2D{Grid: f.Grid, Values: out}, nil
}

// MonthStamp identifies one monthly time step.
type MonthStamp struct {
	Year  int
	Month int // 1..12
}

// EnsembleField is a monthly climate-model ensemble for one physical variable.
// Values are laid out [member][time][lat][lon].
type EnsembleField struct {
	Variable string
	Grid     Grid
	Members  int
	Times    []MonthStamp
	Values   []float64
}

// Validate checks dimensions against the value count.
func (e *EnsembleField) Validate() error {
	if e.Members < 1 {
		return fmt.Errorf("%w: ensemble %s has no members", ErrShapeMismatch, e.Variable)
	}
	want := e.Members * len(e.Times) * e.Grid.Cells()
	if len(e.Values) != want {
		return fmt.Errorf("%w: ensemble %s has %d values, want %d", ErrShapeMismatch, e.Variable, len(e.Values), want)
	}
	for _, t := range e.Times {
		if t.Month < 1 || t.Month > 12 {
			return fmt.Errorf("%w: ensemble %s has month %d", ErrShapeMismatch, e.Variable, t.Month)
		}
	}
	return nil
}

// Layer returns the lat x lon slice for (member, time index). The slice aliases Values.
func (e *EnsembleField) Layer(member, t int) []float64 {
	cells := e.Grid.Cells()
	off := (member*len(e.Times) + t) * cells
	return e.Values[off : off+cells]
}

// WithValues returns a copy of the field metadata carrying new values.
func (e *EnsembleField) WithValues(values []float64) *EnsembleField {
	times := make([]MonthStamp, len(e.Times))
	copy(times, e.Times)
	return &EnsembleField{
		Variable: e.Variable,
		Grid:     e.Grid,
		Members:  e.Members,
		Times:    times,
		Values:   values,
	}
}

// FirstMembers keeps the first n members. A field with n or fewer members
// is returned as is.
func (e *EnsembleField) FirstMembers(n int) *EnsembleField {
	if n <= 0 || n >= e.Members {
		return e
	}
	out := e.WithValues(nil)
	out.Members = n
	out.Values = append([]float64(nil), e.Values[:n*len(e.Times)*e.Grid.Cells()]...)
	return out
}

// SelectYears keeps the time steps whose year lies in r.
func (e *EnsembleField) SelectYears(r YearRange) *EnsembleField {
	var keep []int
	for i, t := range e.Times {
		if r.Contains(t.Year) {
			keep = append(keep, i)
		}
	}
	cells := e.Grid.Cells()
	out := &EnsembleField{
		Variable: e.Variable,
		Grid:     e.Grid,
		Members:  e.Members,
		Times:    make([]MonthStamp, 0, len(keep)),
		Values:   make([]float64, 0, e.Members*len(keep)*cells),
	}
	for _, i := range keep {
		out.Times = append(out.Times, e.Times[i])
	}
	for m := 0; m < e.Members; m++ {
		for _, i := range keep {
			out.Values = append(out.Values, e.Layer(m, i)...)
		}
	}
	return out
}

// Years returns the sorted distinct years present in the field.
func (e *EnsembleField) Years() []int {
	seen := make(map[int]struct{})
	var years []int
	for _, t := range e.Times {
		if _, ok := seen[t.Year]; !ok {
			seen[t.Year] = struct{}{}
			years = append(years, t.Year)
		}
	}
	sort.Ints(years)
	return years
}

// MonthlyBaseline holds one climatological layer per calendar month.
// Values are laid out [month-1][lat][lon].
type MonthlyBaseline struct {
	Grid   Grid
	Values []float64
}

// NewMonthlyBaseline allocates a NaN-filled baseline.
func NewMonthlyBaseline(g Grid) *MonthlyBaseline {
	values := make([]float64, 12*g.Cells())
	for i := range values {
		values[i] = math.NaN()
	}
	return &MonthlyBaseline{Grid: g, Values: values}
}

// Month returns the layer of month m (1..12). The slice aliases Values.
func (b *MonthlyBaseline) Month(m int) []float64 {
	cells := b.Grid.Cells()
	return b.Values[(m-1)*cells : m*cells]
}

// Clone returns a deep copy.
func (b *MonthlyBaseline) Clone() *MonthlyBaseline {
	values := make([]float64, len(b.Values))
	copy(values, b.Values)
	return &MonthlyBaseline{Grid: b.Grid, Values: values}
}

// ResponseField is the per-window stress signal stacked over ensemble members.
// Values are laid out [member][window][lat][lon] so that sample s = member*W + window
// occupies one contiguous lat x lon block.
type ResponseField struct {
	Grid    Grid
	Members int
	Windows []int // start year of each window
	Values  []float64
}

// Samples returns the flattened member x window sample count.
func (r *ResponseField) Samples() int {
	return r.Members * len(r.Windows)
}

// Sample returns the lat x lon layer for sample s. The slice aliases Values.
func (r *ResponseField) Sample(s int) []float64 {
	cells := r.Grid.Cells()
	return r.Values[s*cells : (s+1)*cells]
}

// SampleIndex returns the sample number of (member, window index).
func (r *ResponseField) SampleIndex(member, window int) int {
	return member*len(r.Windows) + window
}

// Validate checks dimensions against the value count.
func (r *ResponseField) Validate() error {
	want := r.Samples() * r.Grid.Cells()
	if len(r.Values) != want {
		return fmt.Errorf("%w: response field has %d values, want %d", ErrShapeMismatch, len(r.Values), want)
	}
	return nil
}

// GrowingSeasonCalendar holds planting and harvest day-of-year per calendar cell.
// The calendar grid is independent of the model grid.
type GrowingSeasonCalendar struct {
	Lat     []float64
	Lon     []float64 // -180..180
	Plant   []float64 // day of year, NaN where no crop is grown
	Harvest []float64 // day of year, NaN where no crop is grown
}

// At returns (plant, harvest) at calendar cell (ilat, ilon).
func (c *GrowingSeasonCalendar) At(ilat, ilon int) (float64, float64) {
	i := ilat*len(c.Lon) + ilon
	return c.Plant[i], c.Harvest[i]
}

// Validate checks both layers against the axes.
func (c *GrowingSeasonCalendar) Validate() error {
	n := len(c.Lat) * len(c.Lon)
	if len(c.Plant) != n || len(c.Harvest) != n {
		return fmt.Errorf("%w: calendar layers %d/%d for %d cells", ErrShapeMismatch, len(c.Plant), len(c.Harvest), n)
	}
	return nil
}

// CountryMask is 1.0 inside a country and NaN elsewhere.
type CountryMask struct {
	Code     string
	Mask     Field2D
	Fallback bool // true when the country fell back to the single nearest cell
}
