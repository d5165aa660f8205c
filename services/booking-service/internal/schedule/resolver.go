// Package schedule picks a professional's working intervals for one date.
package schedule

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Resolve returns the schedule entry for date's weekday. Dates are expected at
// UTC midnight (clock.ParseDate). A missing or inactive entry yields an
// inactive day with no intervals.
func Resolve(weekly model.WeeklySchedule, date time.Time) model.DaySchedule {
	want := int(date.Weekday())
	for _, day := range weekly {
		idx, ok := WeekdayIndex(day.Day)
		if !ok || idx != want {
			continue
		}
		if !day.Active {
			return model.DaySchedule{Day: day.Day, Active: false}
		}
		return day
	}
	return model.DaySchedule{Day: time.Weekday(want).String(), Active: false}
}
