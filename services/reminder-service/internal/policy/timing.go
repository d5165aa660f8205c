// Package policy decides whether a reminder for an appointment is due.
//
// A reminder targets either the previous evening (for appointments before
// the early threshold) or a fixed number of hours before the appointment.
// The worker runs periodically, so a target is due once it falls inside
// [now-LookBack, now+LookAhead]. The policy holds no state; the
// appointment's reminder_sent flag is what prevents a second send.
package policy

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/clock"
)

const (
	LookBack  = 2*time.Hour + 15*time.Minute
	LookAhead = 15 * time.Minute
)

const (
	ReasonDue         = "due"
	ReasonDisabled    = "reminders disabled"
	ReasonNotYet      = "target send time not reached"
	ReasonWindowEnded = "target send time passed"
)

// Config is the per-business reminder configuration. SameDayEnabled acts as
// the master switch: when false nothing is sent, previous-day included.
type Config struct {
	SameDayEnabled     bool
	SameDayHoursBefore int
	PreviousDayEnabled bool
	EarlyThreshold     string // HH:MM
	PreviousDayTime    string // HH:MM
}

func DefaultConfig() Config {
	return Config{
		SameDayEnabled:     true,
		SameDayHoursBefore: 2,
		PreviousDayEnabled: true,
		EarlyThreshold:     "09:00",
		PreviousDayTime:    "19:00",
	}
}

type Decision struct {
	Send   bool
	Reason string
	Target time.Time
}

// Target returns when the reminder for an appointment on date at hhmm (wall
// clock in loc) should go out.
func Target(date, hhmm string, cfg Config, loc *time.Location) (time.Time, error) {
	apptMinute, err := clock.ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointment time: %w", err)
	}
	threshold, err := clock.ParseHHMM(cfg.EarlyThreshold)
	if err != nil {
		return time.Time{}, fmt.Errorf("early threshold: %w", err)
	}
	day, err := clock.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	apptAt := clock.At(day, apptMinute, loc)

	if apptMinute < threshold && cfg.PreviousDayEnabled {
		prevMinute, err := clock.ParseHHMM(cfg.PreviousDayTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("previous day time: %w", err)
		}
		return clock.At(day.AddDate(0, 0, -1), prevMinute, loc), nil
	}
	return apptAt.Add(-time.Duration(cfg.SameDayHoursBefore) * time.Hour), nil
}

// Decide reports whether the reminder is due at now.
func Decide(date, hhmm string, cfg Config, now time.Time, loc *time.Location) (Decision, error) {
	if !cfg.SameDayEnabled {
		return Decision{Reason: ReasonDisabled}, nil
	}
	target, err := Target(date, hhmm, cfg, loc)
	if err != nil {
		return Decision{}, err
	}
	switch {
	case target.After(now.Add(LookAhead)):
		return Decision{Reason: ReasonNotYet, Target: target}, nil
	case target.Before(now.Add(-LookBack)):
		return Decision{Reason: ReasonWindowEnded, Target: target}, nil
	default:
		return Decision{Send: true, Reason: ReasonDue, Target: target}, nil
	}
}
