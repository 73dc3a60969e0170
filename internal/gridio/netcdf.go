// Package gridio reads and writes the canonical NetCDF layouts of the
// pipeline: climate ensembles, crop calendars, static rasters and response fields.
package gridio

import (
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"
)

// readVar returns a variable as float64 regardless of its stored type.
// Cells equal to the variable's _FillValue become NaN.
func readVar(ds netcdf.Dataset, name string) ([]float64, []uint64, error) {
	v, err := ds.Var(name)
	if err != nil {
		return nil, nil, fmt.Errorf("variable %s: %w", name, err)
	}
	shape, err := varShape(v)
	if err != nil {
		return nil, nil, fmt.Errorf("variable %s: %w", name, err)
	}
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}

	t, err := v.Type()
	if err != nil {
		return nil, nil, fmt.Errorf("variable %s type: %w", name, err)
	}
	out := make([]float64, n)
	switch t {
	case netcdf.DOUBLE:
		err = v.ReadFloat64s(out)
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if err = v.ReadFloat32s(buf); err == nil {
			for i, x := range buf {
				out[i] = float64(x)
			}
		}
	case netcdf.INT:
		buf := make([]int32, n)
		if err = v.ReadInt32s(buf); err == nil {
			for i, x := range buf {
				out[i] = float64(x)
			}
		}
	case netcdf.SHORT:
		buf := make([]int16, n)
		if err = v.ReadInt16s(buf); err == nil {
			for i, x := range buf {
				out[i] = float64(x)
			}
		}
	default:
		return nil, nil, fmt.Errorf("variable %s: unsupported type %v", name, t)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", name, err)
	}

	if fill, ok := fillValue(v, t); ok {
		for i, x := range out {
			if x == fill {
				out[i] = math.NaN()
			}
		}
	}
	return out, shape, nil
}

func varShape(v netcdf.Var) ([]uint64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, err
	}
	shape := make([]uint64, len(dims))
	for i, d := range dims {
		if shape[i], err = d.Len(); err != nil {
			return nil, err
		}
	}
	return shape, nil
}

func fillValue(v netcdf.Var, t netcdf.Type) (float64, bool) {
	a := v.Attr("_FillValue")
	n, err := a.Len()
	if err != nil || n != 1 {
		return 0, false
	}
	switch t {
	case netcdf.DOUBLE:
		buf := make([]float64, 1)
		if a.ReadFloat64s(buf) == nil {
			return buf[0], true
		}
	case netcdf.FLOAT:
		buf := make([]float32, 1)
		if a.ReadFloat32s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.INT:
		buf := make([]int32, 1)
		if a.ReadInt32s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.SHORT:
		buf := make([]int16, 1)
		if a.ReadInt16s(buf) == nil {
			return float64(buf[0]), true
		}
	}
	return 0, false
}

// readAxis reads a 1-D coordinate variable.
func readAxis(ds netcdf.Dataset, name string) ([]float64, error) {
	values, shape, err := readVar(ds, name)
	if err != nil {
		return nil, err
	}
	if len(shape) != 1 {
		return nil, fmt.Errorf("axis %s has %d dimensions, want 1", name, len(shape))
	}
	return values, nil
}

func checkShape(name string, got []uint64, want ...int) error {
	if len(got) != len(want) {
		return fmt.Errorf("variable %s has %d dimensions, want %d", name, len(got), len(want))
	}
	for i := range want {
		if got[i] != uint64(want[i]) {
			return fmt.Errorf("variable %s dimension %d is %d, want %d", name, i, got[i], want[i])
		}
	}
	return nil
}

// writeVar writes data into an already defined variable.
func writeVar(ds netcdf.Dataset, name string, data []float64) error {
	v, err := ds.Var(name)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	if err := v.WriteFloat64s(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func writeInts(ds netcdf.Dataset, name string, data []int) error {
	v, err := ds.Var(name)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	buf := make([]int32, len(data))
	for i, x := range data {
		buf[i] = int32(x)
	}
	if err := v.WriteInt32s(buf); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
