package users

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used on the wire and in query strings
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day or zone
type Date struct {
	time.Time
}

// NewDate returns the date for the given year, month and day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether both dates denote the same day
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// YearsUntil returns the number of full years elapsed from d to other.
// The result is negative when other is before d.
func (d Date) YearsUntil(other Date) int {
	years := other.Year() - d.Year()
	if other.Month() < d.Month() || (other.Month() == d.Month() && other.Day() < d.Day()) {
		years--
	}
	return years
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("date must be a string in YYYY-MM-DD format")
	}

	parsed, err := ParseDate(str)
	if err != nil {
		return fmt.Errorf("date must be in YYYY-MM-DD format: %q", str)
	}

	*d = parsed
	return nil
}
