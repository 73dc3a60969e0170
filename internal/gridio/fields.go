package gridio

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"

	"crop-stress-lab/internal/domain"
)

// Variable and dimension names of the canonical layouts.
const (
	DimMember = "member"
	DimTime   = "time"
	DimWindow = "window"
	DimLat    = "lat"
	DimLon    = "lon"

	VarYear     = "year"
	VarMonth    = "month"
	VarResponse = "response"
	VarCropland = "cropland"
	VarRegion   = "region"

	CalendarLat     = "latitude"
	CalendarLon     = "longitude"
	CalendarPlant   = "plant"
	CalendarHarvest = "harvest"
)

// ReadEnsemble reads the monthly ensemble of one physical variable from a
// file laid out (member, time, lat, lon) with per-step year and month variables.
func ReadEnsemble(path, variable string) (*domain.EnsembleField, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	grid, err := readGrid(ds, DimLat, DimLon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	years, err := readAxis(ds, VarYear)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	months, err := readAxis(ds, VarMonth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(years) != len(months) {
		return nil, fmt.Errorf("%s: %d years for %d months", path, len(years), len(months))
	}

	values, shape, err := readVar(ds, variable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(shape) != 4 {
		return nil, fmt.Errorf("%s: variable %s has %d dimensions, want 4", path, variable, len(shape))
	}
	if err := checkShape(variable, shape, int(shape[0]), len(years), grid.NLat(), grid.NLon()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f := &domain.EnsembleField{
		Variable: variable,
		Grid:     grid,
		Members:  int(shape[0]),
		Times:    make([]domain.MonthStamp, len(years)),
		Values:   values,
	}
	for i := range years {
		f.Times[i] = domain.MonthStamp{Year: int(years[i]), Month: int(months[i])}
	}
	return f, f.Validate()
}

// WriteEnsemble writes f in the layout read by ReadEnsemble.
func WriteEnsemble(path string, f *domain.EnsembleField) error {
	if err := f.Validate(); err != nil {
		return err
	}
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer ds.Close()

	dims, err := addDims(ds,
		dimSpec{DimMember, f.Members},
		dimSpec{DimTime, len(f.Times)},
		dimSpec{DimLat, f.Grid.NLat()},
		dimSpec{DimLon, f.Grid.NLon()})
	if err != nil {
		return err
	}
	vars := []varSpec{
		{DimLat, netcdf.DOUBLE, []netcdf.Dim{dims[2]}},
		{DimLon, netcdf.DOUBLE, []netcdf.Dim{dims[3]}},
		{VarYear, netcdf.INT, []netcdf.Dim{dims[1]}},
		{VarMonth, netcdf.INT, []netcdf.Dim{dims[1]}},
		{f.Variable, netcdf.DOUBLE, dims},
	}
	if err := addVars(ds, vars...); err != nil {
		return err
	}

	years := make([]int, len(f.Times))
	months := make([]int, len(f.Times))
	for i, t := range f.Times {
		years[i], months[i] = t.Year, t.Month
	}
	if err := writeVar(ds, DimLat, f.Grid.Lat); err != nil {
		return err
	}
	if err := writeVar(ds, DimLon, f.Grid.Lon); err != nil {
		return err
	}
	if err := writeInts(ds, VarYear, years); err != nil {
		return err
	}
	if err := writeInts(ds, VarMonth, months); err != nil {
		return err
	}
	return writeVar(ds, f.Variable, f.Values)
}

// ReadCalendar reads a crop calendar with (latitude, longitude) plant and harvest layers.
func ReadCalendar(path string) (*domain.GrowingSeasonCalendar, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	grid, err := readGrid(ds, CalendarLat, CalendarLon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	plant, shape, err := readVar(ds, CalendarPlant)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := checkShape(CalendarPlant, shape, grid.NLat(), grid.NLon()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	harvest, shape, err := readVar(ds, CalendarHarvest)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := checkShape(CalendarHarvest, shape, grid.NLat(), grid.NLon()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cal := &domain.GrowingSeasonCalendar{Lat: grid.Lat, Lon: grid.Lon, Plant: plant, Harvest: harvest}
	return cal, cal.Validate()
}

// ReadField reads a static (lat, lon) raster such as cropland or the country index.
func ReadField(path, variable string) (domain.Field2D, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return domain.Field2D{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	grid, err := readGrid(ds, DimLat, DimLon)
	if err != nil {
		return domain.Field2D{}, fmt.Errorf("%s: %w", path, err)
	}
	values, shape, err := readVar(ds, variable)
	if err != nil {
		return domain.Field2D{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := checkShape(variable, shape, grid.NLat(), grid.NLon()); err != nil {
		return domain.Field2D{}, fmt.Errorf("%s: %w", path, err)
	}
	return domain.Field2D{Grid: grid, Values: values}, nil
}

// WriteField writes a (lat, lon) raster readable by ReadField.
func WriteField(path, variable string, f domain.Field2D) error {
	if err := f.Validate(); err != nil {
		return err
	}
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer ds.Close()

	dims, err := addDims(ds, dimSpec{DimLat, f.Grid.NLat()}, dimSpec{DimLon, f.Grid.NLon()})
	if err != nil {
		return err
	}
	if err := addVars(ds,
		varSpec{DimLat, netcdf.DOUBLE, dims[:1]},
		varSpec{DimLon, netcdf.DOUBLE, dims[1:]},
		varSpec{variable, netcdf.DOUBLE, dims},
	); err != nil {
		return err
	}
	if err := writeVar(ds, DimLat, f.Grid.Lat); err != nil {
		return err
	}
	if err := writeVar(ds, DimLon, f.Grid.Lon); err != nil {
		return err
	}
	return writeVar(ds, variable, f.Values)
}

// ReadResponse reads a response field written by WriteResponse.
func ReadResponse(path string) (*domain.ResponseField, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	grid, err := readGrid(ds, DimLat, DimLon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	windows, err := readAxis(ds, DimWindow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	values, shape, err := readVar(ds, VarResponse)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(shape) != 4 {
		return nil, fmt.Errorf("%s: response has %d dimensions, want 4", path, len(shape))
	}
	if err := checkShape(VarResponse, shape, int(shape[0]), len(windows), grid.NLat(), grid.NLon()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	r := &domain.ResponseField{
		Grid:    grid,
		Members: int(shape[0]),
		Windows: make([]int, len(windows)),
		Values:  values,
	}
	for i, w := range windows {
		r.Windows[i] = int(w)
	}
	return r, r.Validate()
}

// WriteResponse writes r with dimensions (member, window, lat, lon).
func WriteResponse(path string, r *domain.ResponseField) error {
	if err := r.Validate(); err != nil {
		return err
	}
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer ds.Close()

	dims, err := addDims(ds,
		dimSpec{DimMember, r.Members},
		dimSpec{DimWindow, len(r.Windows)},
		dimSpec{DimLat, r.Grid.NLat()},
		dimSpec{DimLon, r.Grid.NLon()})
	if err != nil {
		return err
	}
	if err := addVars(ds,
		varSpec{DimWindow, netcdf.INT, []netcdf.Dim{dims[1]}},
		varSpec{DimLat, netcdf.DOUBLE, []netcdf.Dim{dims[2]}},
		varSpec{DimLon, netcdf.DOUBLE, []netcdf.Dim{dims[3]}},
		varSpec{VarResponse, netcdf.DOUBLE, dims},
	); err != nil {
		return err
	}
	if err := writeInts(ds, DimWindow, r.Windows); err != nil {
		return err
	}
	if err := writeVar(ds, DimLat, r.Grid.Lat); err != nil {
		return err
	}
	if err := writeVar(ds, DimLon, r.Grid.Lon); err != nil {
		return err
	}
	return writeVar(ds, VarResponse, r.Values)
}

func readGrid(ds netcdf.Dataset, latName, lonName string) (domain.Grid, error) {
	lat, err := readAxis(ds, latName)
	if err != nil {
		return domain.Grid{}, err
	}
	lon, err := readAxis(ds, lonName)
	if err != nil {
		return domain.Grid{}, err
	}
	return domain.Grid{Lat: lat, Lon: lon}, nil
}

type dimSpec struct {
	name string
	len  int
}

type varSpec struct {
	name string
	typ  netcdf.Type
	dims []netcdf.Dim
}

func addDims(ds netcdf.Dataset, specs ...dimSpec) ([]netcdf.Dim, error) {
	dims := make([]netcdf.Dim, len(specs))
	for i, s := range specs {
		d, err := ds.AddDim(s.name, uint64(s.len))
		if err != nil {
			return nil, fmt.Errorf("add dimension %s: %w", s.name, err)
		}
		dims[i] = d
	}
	return dims, nil
}

// addVars defines every variable and leaves define mode.
func addVars(ds netcdf.Dataset, specs ...varSpec) error {
	for _, s := range specs {
		if _, err := ds.AddVar(s.name, s.typ, s.dims); err != nil {
			return fmt.Errorf("add variable %s: %w", s.name, err)
		}
	}
	if err := ds.EndDef(); err != nil {
		return fmt.Errorf("end define mode: %w", err)
	}
	return nil
}
