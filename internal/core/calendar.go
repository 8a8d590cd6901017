package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is one calendar month in the fee schedule, identified by
// (year, month) only.
type Period struct {
	Year  int
	Month int // 1-12
}

// ErrInvalidPeriodKey is returned when a period key cannot be parsed.
var ErrInvalidPeriodKey = errors.New("invalid period key")

// Key returns the canonical "YYYY-MM" form used in stored payment maps.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// anchor is the generation anchor date. Day 2 avoids month-boundary and
// timezone drift; it never leaks into period identity.
func (p Period) anchor() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 2, 0, 0, 0, 0, time.UTC)
}

// Before reports whether p precedes other in calendar order.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// DueBy reports whether the period has begun at the reference date.
// Comparison is by calendar month, not exact day.
func (p Period) DueBy(ref time.Time) bool {
	if p.Year != ref.Year() {
		return p.Year < ref.Year()
	}
	return p.Month <= int(ref.Month())
}

// ParsePeriodKey parses a "YYYY-MM" key back into a Period.
func ParsePeriodKey(key string) (Period, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 2 {
		return Period{}, ErrInvalidPeriodKey
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return Period{}, ErrInvalidPeriodKey
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Period{}, ErrInvalidPeriodKey
	}
	return Period{Year: year, Month: month}, nil
}

// GenerateRange produces the ordered, inclusive sequence of billing
// periods from (startYear, startMonth) to (endYear, endMonth). An end
// that precedes the start, or an out-of-range month, yields an empty
// sequence rather than an error: the schedule is static configuration
// and callers treat it as read-only after startup.
func GenerateRange(startYear, startMonth, endYear, endMonth int) []Period {
	if startMonth < 1 || startMonth > 12 || endMonth < 1 || endMonth > 12 {
		return nil
	}
	current := Period{Year: startYear, Month: startMonth}.anchor()
	final := Period{Year: endYear, Month: endMonth}.anchor()

	var periods []Period
	for !current.After(final) {
		periods = append(periods, Period{Year: current.Year(), Month: int(current.Month())})
		current = current.AddDate(0, 1, 0)
	}
	return periods
}
