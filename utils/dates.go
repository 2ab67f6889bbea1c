package utils

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used by every JSON and SQL boundary.
const DateLayout = "2006-01-02"

// DaysPerYear is the Actual/365 (fixed) denominator.
const DaysPerYear = 365.0

// ParseDate converts YYYY-MM-DD to a UTC time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %w", err)
	}
	return t, nil
}

// Days returns the calendar days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// WholeDays returns the calendar days between two dates, rounded to a whole day.
func WholeDays(start, end time.Time) int {
	return int(math.Round(Days(start, end)))
}

// YearFraction is the Actual/365 (fixed) year fraction from start to end.
func YearFraction(start, end time.Time) float64 {
	return Days(start, end) / DaysPerYear
}

// AddDays shifts t by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}
