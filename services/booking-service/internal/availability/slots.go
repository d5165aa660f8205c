package availability

import (
	"github.com/md-rashed-zaman/slotbook/libs/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/occupancy"
)

// GenerateSlots returns "HH:MM" starts where a booking of duration minutes
// fits inside a working interval without touching any busy range.
//
// Intervals are walked in their configured order, each from its start rounded
// up to the slot granularity. When isToday is set, starts at or before
// nowMinute are dropped. Malformed or empty intervals contribute nothing. A
// start offered by overlapping intervals appears once, at its first position.
func GenerateSlots(intervals []model.TimeInterval, duration int, busy []occupancy.Range, isToday bool, nowMinute int) []string {
	slots := []string{}
	if duration <= 0 {
		return slots
	}
	seen := make(map[int]struct{})
	for _, iv := range intervals {
		start, err := clock.ParseHHMM(iv.Start)
		if err != nil {
			continue
		}
		end, err := clock.ParseHHMM(iv.End)
		if err != nil {
			continue
		}
		for s := clock.AlignUp(start); s+duration <= end; s += clock.SlotGranularity {
			if isToday && s <= nowMinute {
				continue
			}
			if _, dup := seen[s]; dup || overlapsAny(s, s+duration, busy) {
				continue
			}
			seen[s] = struct{}{}
			slots = append(slots, clock.FormatMinutes(s))
		}
	}
	return slots
}

func overlapsAny(start, end int, busy []occupancy.Range) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
