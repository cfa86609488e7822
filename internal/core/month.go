package core

import (
	"fmt"
	"strings"
	"time"
)

// Month is a calendar month key in YYYY-MM form.
type Month string

const monthLayout = "2006-01"

// ParseMonth validates a YYYY-MM key.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// MonthOf returns the month containing ref.
func MonthOf(ref time.Time) Month {
	return Month(ref.Format(monthLayout))
}

// NewMonth builds a key from a year and a 1-12 month number.
func NewMonth(year, month int) Month {
	return MonthOf(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
}

func (m Month) String() string { return string(m) }

func (m Month) start() time.Time {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Year returns the calendar year of the month, or 0 for a malformed key.
func (m Month) Year() int {
	t := m.start()
	if t.IsZero() {
		return 0
	}
	return t.Year()
}

// Number returns 1-12, or 0 for a malformed key.
func (m Month) Number() int {
	t := m.start()
	if t.IsZero() {
		return 0
	}
	return int(t.Month())
}

// Previous steps back one calendar month, rolling January into the prior December.
func (m Month) Previous() Month {
	t := m.start()
	if t.IsZero() {
		return ""
	}
	return MonthOf(t.AddDate(0, -1, 0))
}

// Days returns the number of calendar days in the month.
func (m Month) Days() int {
	t := m.start()
	if t.IsZero() {
		return 0
	}
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether an ISO date string belongs to the month.
// The match is on the string prefix, so the date itself is not calendar-validated.
func (m Month) Contains(date string) bool {
	return m != "" && strings.HasPrefix(date, string(m))
}

// MonthsOfYear returns January through December of year.
func MonthsOfYear(year int) [12]Month {
	var out [12]Month
	for i := range out {
		out[i] = NewMonth(year, i+1)
	}
	return out
}

// YearOf parses the calendar year from an ISO date string.
func YearOf(date string) (int, bool) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, false
	}
	return t.Year(), true
}
