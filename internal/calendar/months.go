// Package calendar turns crop planting/harvest calendars into growing-season
// month sets and masks monthly climatologies outside the growing season.
package calendar

import (
	"math"
	"time"
)

// referenceYear is a non-leap year used to convert day-of-year into months.
const referenceYear = 2030

// MonthList returns the calendar months (1..12) of a season starting on day
// startDOY and ending on day endDOY, inclusive of both end months. A season
// whose end month precedes its start month wraps through December.
// Undefined inputs (NaN, Inf, or out-of-range dates) yield an empty list.
func MonthList(startDOY, endDOY float64) []int {
	start, ok := monthOfDay(startDOY)
	if !ok {
		return nil
	}
	end, ok := monthOfDay(endDOY)
	if !ok {
		return nil
	}

	months := []int{start}
	for m := start; m != end; {
		m = m%12 + 1
		months = append(months, m)
	}
	return months
}

// monthOfDay returns the month of referenceYear-01-01 + (doy-1) days.
func monthOfDay(doy float64) (int, bool) {
	if math.IsNaN(doy) || math.IsInf(doy, 0) {
		return 0, false
	}
	days := doy - 1
	// Anything this far out lands outside years 1..9999.
	if math.Abs(days) > 4e6 {
		return 0, false
	}

	whole := math.Floor(days)
	micros := math.RoundToEven((days - whole) * 86400e6)

	t := time.Date(referenceYear, time.January, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, int(whole)).
		Add(time.Duration(micros) * time.Microsecond)
	if t.Year() < 1 || t.Year() > 9999 {
		return 0, false
	}
	return int(t.Month()), true
}

// Union merges month lists into a sorted set.
func Union(lists ...[]int) []int {
	var seen [13]bool
	for _, l := range lists {
		for _, m := range l {
			if m >= 1 && m <= 12 {
				seen[m] = true
			}
		}
	}
	var out []int
	for m := 1; m <= 12; m++ {
		if seen[m] {
			out = append(out, m)
		}
	}
	return out
}
