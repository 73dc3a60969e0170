package calendar

import (
	"fmt"
	"math"

	"crop-stress-lab/internal/domain"
)

// Seasons is the primary and optional secondary calendar of one crop.
type Seasons struct {
	Primary   *domain.GrowingSeasonCalendar
	Secondary *domain.GrowingSeasonCalendar // nil for single-season crops
}

// Files returns the calendar file names of a crop product.
// Products spanning several crops have no calendar.
func Files(p domain.Product) (primary, secondary string, err error) {
	switch p {
	case domain.ProductRice:
		return "Rice.crop.calendar.fill.nc", "Rice.2.crop.calendar.fill.nc", nil
	case domain.ProductWheat:
		return "Wheat.Winter.crop.calendar.fill.nc", "Wheat.crop.calendar.fill.nc", nil
	case domain.ProductMaize:
		return "Maize.crop.calendar.fill.nc", "Maize.2.crop.calendar.fill.nc", nil
	case domain.ProductSoy:
		return "Soybeans.crop.calendar.fill.nc", "", nil
	case domain.ProductAll, domain.ProductCalories:
		return "", "", fmt.Errorf("%w: no growing season across multiple crops (%s)", domain.ErrUnsupportedConfig, p)
	}
	return "", "", fmt.Errorf("%w: no calendar for product %q", domain.ErrUnsupportedConfig, p)
}

// SeasonMonths returns the union of growing-season months at the calendar
// cell nearest to (lat, lon). lon must be in -180..180.
func (s Seasons) SeasonMonths(lat, lon float64) []int {
	ilat := domain.NearestIndex(s.Primary.Lat, lat)
	ilon := domain.NearestIndex(s.Primary.Lon, lon)
	plant, harvest := s.Primary.At(ilat, ilon)
	months := MonthList(plant, harvest)

	if s.Secondary != nil {
		jlat := domain.NearestIndex(s.Secondary.Lat, lat)
		jlon := domain.NearestIndex(s.Secondary.Lon, lon)
		plant2, harvest2 := s.Secondary.At(jlat, jlon)
		months = Union(months, MonthList(plant2, harvest2))
	}
	return months
}

// MaskBaseline returns a copy of b with every month outside the cell's
// growing season set to NaN. A cell with no growing season is masked entirely.
func MaskBaseline(b *domain.MonthlyBaseline, s Seasons) (*domain.MonthlyBaseline, error) {
	if s.Primary == nil {
		return nil, fmt.Errorf("%w: growing-season mask without a calendar", domain.ErrUnsupportedConfig)
	}
	if err := s.Primary.Validate(); err != nil {
		return nil, err
	}
	if s.Secondary != nil {
		if err := s.Secondary.Validate(); err != nil {
			return nil, err
		}
	}

	out := b.Clone()
	lons := CalendarLongitudes(b.Grid.Lon)
	cells := b.Grid.Cells()

	for ilat, lat := range b.Grid.Lat {
		for ilon, lon := range lons {
			var inSeason [13]bool
			for _, m := range s.SeasonMonths(lat, lon) {
				inSeason[m] = true
			}
			cell := b.Grid.Index(ilat, ilon)
			for m := 1; m <= 12; m++ {
				if !inSeason[m] {
					out.Values[(m-1)*cells+cell] = math.NaN()
				}
			}
		}
	}
	return out, nil
}

// CalendarLongitudes converts model longitudes to -180..180 when the model
// grid is entirely non-negative, and returns them unchanged otherwise.
func CalendarLongitudes(lon []float64) []float64 {
	out := make([]float64, len(lon))
	copy(out, lon)
	for _, v := range lon {
		if v < 0 {
			return out
		}
	}
	for i, v := range out {
		out[i] = math.Mod(v+180, 360) - 180
	}
	return out
}
