package availability

import (
	"reflect"
	"testing"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/occupancy"
)

func iv(start, end string) model.TimeInterval {
	return model.TimeInterval{Start: start, End: end}
}

func TestGenerateSlotsAlignsStartUp(t *testing.T) {
	got := GenerateSlots([]model.TimeInterval{iv("09:10", "12:00")}, 30, nil, false, 0)
	if len(got) == 0 || got[0] != "09:30" {
		t.Fatalf("expected first slot 09:30, got %v", got)
	}
	want := []string{"09:30", "10:00", "10:30", "11:00", "11:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerateSlotsServiceMustFit(t *testing.T) {
	got := GenerateSlots([]model.TimeInterval{iv("09:00", "10:00")}, 45, nil, false, 0)
	if !reflect.DeepEqual(got, []string{"09:00"}) {
		t.Fatalf("got %v", got)
	}
}

func TestGenerateSlotsExcludesOverlapButKeepsAdjacent(t *testing.T) {
	busy := []occupancy.Range{{Start: 600, End: 630}}
	got := GenerateSlots([]model.TimeInterval{iv("09:00", "11:00")}, 30, busy, false, 0)
	want := []string{"09:00", "09:30", "10:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerateSlotsPartialOverlapRejected(t *testing.T) {
	// A 60 minute service at 09:30 would end 10:30 and clip the 10:15 booking.
	busy := []occupancy.Range{{Start: 615, End: 645}}
	got := GenerateSlots([]model.TimeInterval{iv("09:00", "12:00")}, 60, busy, false, 0)
	want := []string{"09:00", "11:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerateSlotsCancelledAppointmentFreesSlot(t *testing.T) {
	appts := []model.Appointment{{ID: "a1", ServiceID: "cut", Time: "10:00", Status: model.StatusConfirmed}}
	lookup := func(string) (int, bool) { return 30, true }
	intervals := []model.TimeInterval{iv("09:00", "11:00")}

	busy, _ := occupancy.Collect("2024-06-03", appts, nil, lookup)
	before := GenerateSlots(intervals, 30, busy, false, 0)
	if contains(before, "10:00") {
		t.Fatalf("10:00 should be taken: %v", before)
	}

	appts[0].Status = model.StatusCancelled
	busy, _ = occupancy.Collect("2024-06-03", appts, nil, lookup)
	after := GenerateSlots(intervals, 30, busy, false, 0)
	if !contains(after, "10:00") {
		t.Fatalf("10:00 should be free after cancelling: %v", after)
	}
}

func TestGenerateSlotsTodayCutoff(t *testing.T) {
	got := GenerateSlots([]model.TimeInterval{iv("09:00", "13:00")}, 30, nil, true, 661)
	want := []string{"11:30", "12:00", "12:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// Exactly on a slot boundary the slot itself is already gone.
	got = GenerateSlots([]model.TimeInterval{iv("09:00", "13:00")}, 30, nil, true, 690)
	if got[0] != "12:00" {
		t.Fatalf("got %v", got)
	}

	// The cutoff does not apply on other days.
	got = GenerateSlots([]model.TimeInterval{iv("09:00", "10:00")}, 30, nil, false, 661)
	if !reflect.DeepEqual(got, []string{"09:00", "09:30"}) {
		t.Fatalf("got %v", got)
	}
}

func TestGenerateSlotsIsDeterministic(t *testing.T) {
	intervals := []model.TimeInterval{iv("13:00", "15:00"), iv("08:15", "10:00")}
	busy := []occupancy.Range{{Start: 540, End: 570}, {Start: 800, End: 820}}
	first := GenerateSlots(intervals, 30, busy, true, 500)
	second := GenerateSlots(intervals, 30, busy, true, 500)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("outputs differ: %v vs %v", first, second)
	}
}

func TestGenerateSlotsFullDayBlock(t *testing.T) {
	busy := []occupancy.Range{occupancy.FullDay}
	got := GenerateSlots([]model.TimeInterval{iv("00:00", "23:59"), iv("09:00", "18:00")}, 30, busy, false, 0)
	if len(got) != 0 {
		t.Fatalf("expected no slots, got %v", got)
	}
}

func TestGenerateSlotsDeclarationOrder(t *testing.T) {
	intervals := []model.TimeInterval{iv("14:00", "15:00"), iv("09:00", "10:00")}
	got := GenerateSlots(intervals, 30, nil, false, 0)
	want := []string{"14:00", "14:30", "09:00", "09:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerateSlotsOverlappingIntervalsOfferEachStartOnce(t *testing.T) {
	intervals := []model.TimeInterval{iv("09:00", "12:00"), iv("11:00", "13:00")}
	got := GenerateSlots(intervals, 30, nil, false, 0)
	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// A later interval keeps its declared position for the starts it adds.
	intervals = []model.TimeInterval{iv("11:00", "13:00"), iv("09:00", "12:00")}
	got = GenerateSlots(intervals, 30, nil, false, 0)
	want = []string{"11:00", "11:30", "12:00", "12:30", "09:00", "09:30", "10:00", "10:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGenerateSlotsDegenerateInput(t *testing.T) {
	cases := map[string]struct {
		intervals []model.TimeInterval
		duration  int
	}{
		"inverted":             {[]model.TimeInterval{iv("12:00", "09:00")}, 30},
		"zero length":          {[]model.TimeInterval{iv("09:00", "09:00")}, 30},
		"empty after rounding": {[]model.TimeInterval{iv("09:10", "09:29")}, 15},
		"malformed":            {[]model.TimeInterval{iv("nine", "10:00")}, 30},
		"too long":             {[]model.TimeInterval{iv("09:00", "10:00"), iv("11:00", "12:00")}, 90},
		"zero duration":        {[]model.TimeInterval{iv("09:00", "10:00")}, 0},
		"no intervals":         {nil, 30},
	}
	for name, tc := range cases {
		got := GenerateSlots(tc.intervals, tc.duration, nil, false, 0)
		if got == nil || len(got) != 0 {
			t.Errorf("%s: expected empty non-nil result, got %#v", name, got)
		}
	}
}

func TestGenerateSlotsMondayScenario(t *testing.T) {
	intervals := []model.TimeInterval{iv("09:00", "12:00"), iv("13:00", "18:00")}
	got := GenerateSlots(intervals, 30, nil, false, 0)
	want := []string{
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
