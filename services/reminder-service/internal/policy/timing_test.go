package policy

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/clock"
)

func TestTargetEarlyThresholdRouting(t *testing.T) {
	cfg := DefaultConfig()
	loc := clock.Legacy

	early, err := Target("2024-06-03", "08:00", cfg, loc)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 6, 2, 19, 0, 0, 0, loc); !early.Equal(want) {
		t.Fatalf("early target = %v, want %v", early, want)
	}

	late, err := Target("2024-06-03", "14:00", cfg, loc)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 6, 3, 12, 0, 0, 0, loc); !late.Equal(want) {
		t.Fatalf("same-day target = %v, want %v", late, want)
	}
}

func TestTargetThresholdIsExclusive(t *testing.T) {
	target, err := Target("2024-06-03", "09:00", DefaultConfig(), clock.Legacy)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 6, 3, 7, 0, 0, 0, clock.Legacy); !target.Equal(want) {
		t.Fatalf("target = %v, want %v", target, want)
	}
}

func TestTargetEarlyWithoutPreviousDay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreviousDayEnabled = false
	target, err := Target("2024-06-03", "08:00", cfg, clock.Legacy)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 6, 3, 6, 0, 0, 0, clock.Legacy); !target.Equal(want) {
		t.Fatalf("target = %v, want %v", target, want)
	}
}

func TestTargetAcrossMonthBoundary(t *testing.T) {
	target, err := Target("2024-07-01", "07:30", DefaultConfig(), clock.Legacy)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 6, 30, 19, 0, 0, 0, clock.Legacy); !target.Equal(want) {
		t.Fatalf("target = %v, want %v", target, want)
	}
}

func TestDecideWindow(t *testing.T) {
	loc := clock.Legacy
	cfg := DefaultConfig()
	// 14:00 appointment targets 12:00.
	target := time.Date(2024, 6, 3, 12, 0, 0, 0, loc)

	tests := []struct {
		name   string
		now    time.Time
		send   bool
		reason string
	}{
		{"too early", target.Add(-LookAhead - time.Minute), false, ReasonNotYet},
		{"forward buffer edge", target.Add(-LookAhead), true, ReasonDue},
		{"on target", target, true, ReasonDue},
		{"lookback edge", target.Add(LookBack), true, ReasonDue},
		{"missed", target.Add(LookBack + time.Minute), false, ReasonWindowEnded},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Decide("2024-06-03", "14:00", cfg, tc.now, loc)
			if err != nil {
				t.Fatal(err)
			}
			if d.Send != tc.send || d.Reason != tc.reason {
				t.Fatalf("Decide at %v = %+v, want send=%v reason=%q", tc.now, d, tc.send, tc.reason)
			}
		})
	}
}

func TestDecideSameDaySwitchDisablesEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SameDayEnabled = false
	now := time.Date(2024, 6, 2, 19, 0, 0, 0, clock.Legacy)

	d, err := Decide("2024-06-03", "08:00", cfg, now, clock.Legacy)
	if err != nil {
		t.Fatal(err)
	}
	if d.Send || d.Reason != ReasonDisabled {
		t.Fatalf("Decide = %+v, want disabled", d)
	}
}

func TestDecideUsesBusinessZone(t *testing.T) {
	loc, err := clock.LoadZone("Europe/Lisbon")
	if err != nil {
		t.Fatal(err)
	}
	// 14:00 Lisbon (UTC+1 in June) targets 12:00 local, 11:00 UTC.
	now := time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)
	d, err := Decide("2024-06-03", "14:00", DefaultConfig(), now, loc)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Send {
		t.Fatalf("Decide = %+v, want send", d)
	}
}

func TestDecideRejectsMalformedConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EarlyThreshold = "nine"
	if _, err := Decide("2024-06-03", "14:00", cfg, time.Now(), clock.Legacy); err == nil {
		t.Fatal("expected error for malformed threshold")
	}
	if _, err := Decide("2024-06-03", "25:00", DefaultConfig(), time.Now(), clock.Legacy); err == nil {
		t.Fatal("expected error for malformed appointment time")
	}
}
