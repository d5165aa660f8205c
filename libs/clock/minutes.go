// Package clock holds the time vocabulary shared by slot generation and
// reminder timing: minutes since midnight, calendar dates and business zones.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SlotGranularity is the step between candidate slot starts, in minutes.
	SlotGranularity = 30
	MinutesPerDay   = 24 * 60
	DateLayout      = "2006-01-02"
)

var (
	ErrInvalidTime = errors.New("invalid time of day")
	ErrInvalidDate = errors.New("invalid date")
)

// ParseHHMM converts "HH:MM" (seconds are tolerated and dropped) to minutes
// since midnight. "24:00" is accepted as the end of the day.
func ParseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if h < 0 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

// FormatMinutes renders minutes since midnight as zero-padded "HH:MM".
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AlignUp rounds m up to the next multiple of SlotGranularity.
func AlignUp(m int) int {
	if r := m % SlotGranularity; r != 0 {
		return m + SlotGranularity - r
	}
	return m
}

// ParseDate parses "YYYY-MM-DD" as UTC midnight so the weekday does not
// depend on the host zone.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Date returns the calendar date of t in loc as "YYYY-MM-DD".
func Date(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// MinuteOfDay returns the wall-clock minute of t in loc.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	l := t.In(loc)
	return l.Hour()*60 + l.Minute()
}

// At combines a calendar date and a minute of day into an instant in loc.
func At(date time.Time, minute int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, minute, 0, 0, loc)
}
