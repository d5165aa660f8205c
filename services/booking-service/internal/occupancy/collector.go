// Package occupancy turns appointments and blocks into busy minute ranges.
package occupancy

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/slotbook/libs/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// DefaultDurationMinutes is assumed for appointments whose service is unknown.
const DefaultDurationMinutes = 30

// ErrUnknownDuration marks appointments that fell back to DefaultDurationMinutes.
var ErrUnknownDuration = errors.New("service duration unknown")

// Range is a half-open [Start, End) interval in minutes since midnight.
type Range struct {
	Start int
	End   int
}

func (r Range) Overlaps(start, end int) bool {
	return start < r.End && end > r.Start
}

var FullDay = Range{Start: 0, End: clock.MinutesPerDay}

// DurationLookup returns the duration of a service, false when unknown.
type DurationLookup func(serviceID string) (int, bool)

// Collect returns the busy ranges on date. Ranges are neither sorted nor
// merged. Bad items are reported in the joined error while the rest of the
// result is still returned.
func Collect(date string, appointments []model.Appointment, blocks []model.ProfessionalBlock, durationOf DurationLookup) ([]Range, error) {
	var (
		ranges []Range
		errs   []error
	)
	for _, a := range appointments {
		if !a.Occupies() {
			continue
		}
		start, err := clock.ParseHHMM(a.Time)
		if err != nil {
			errs = append(errs, fmt.Errorf("appointment %s: %w", a.ID, err))
			continue
		}
		d, ok := 0, false
		if durationOf != nil {
			d, ok = durationOf(a.ServiceID)
		}
		if !ok || d <= 0 {
			errs = append(errs, fmt.Errorf("appointment %s: %w: service %s", a.ID, ErrUnknownDuration, a.ServiceID))
			d = DefaultDurationMinutes
		}
		ranges = append(ranges, Range{Start: start, End: start + d})
	}

	for _, b := range blocks {
		r, covers, err := blockRange(date, b)
		if err != nil {
			errs = append(errs, fmt.Errorf("block %s: %w", b.ID, err))
		}
		if covers {
			ranges = append(ranges, r)
		}
	}
	return ranges, errors.Join(errs...)
}

// blockRange resolves what b occupies on date. Partial times apply only on
// StartDate; every other date in the block, and any block whose times cannot
// be used, is treated as a full day.
func blockRange(date string, b model.ProfessionalBlock) (Range, bool, error) {
	if _, err := clock.ParseDate(b.StartDate); err != nil {
		return Range{}, false, err
	}
	end := b.EndDate
	if end == "" {
		end = b.StartDate
	}
	if _, err := clock.ParseDate(end); err != nil {
		return Range{}, false, err
	}
	// YYYY-MM-DD compares chronologically as a string.
	if date < b.StartDate || date > end {
		return Range{}, false, nil
	}

	if b.StartTime == nil || b.EndTime == nil || *b.StartTime == "" || *b.EndTime == "" {
		return FullDay, true, nil
	}
	if date != b.StartDate {
		return FullDay, true, nil
	}
	start, err := clock.ParseHHMM(*b.StartTime)
	if err != nil {
		return FullDay, true, err
	}
	stop, err := clock.ParseHHMM(*b.EndTime)
	if err != nil {
		return FullDay, true, err
	}
	if stop <= start {
		return FullDay, true, fmt.Errorf("end %s not after start %s", *b.EndTime, *b.StartTime)
	}
	return Range{Start: start, End: stop}, true, nil
}
