package clock

import (
	"errors"
	"testing"
	"time"
)

func TestParseHHMM(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:10", 550, false},
		{"9:05", 545, false},
		{"23:59", 1439, false},
		{"24:00", 1440, false},
		{"18:30:00", 1110, false},
		{"24:01", 0, true},
		{"12:60", 0, true},
		{"12:5", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseHHMM(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidTime) {
				t.Fatalf("ParseHHMM(%q): expected ErrInvalidTime, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseHHMM(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestFormatAndAlign(t *testing.T) {
	if got := FormatMinutes(570); got != "09:30" {
		t.Fatalf("FormatMinutes(570) = %q", got)
	}
	if got := FormatMinutes(0); got != "00:00" {
		t.Fatalf("FormatMinutes(0) = %q", got)
	}
	for in, want := range map[int]int{540: 540, 550: 570, 569: 570, 571: 600, 0: 0} {
		if got := AlignUp(in); got != want {
			t.Fatalf("AlignUp(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParseDateIsUTCMidnight(t *testing.T) {
	d, err := ParseDate("2024-06-03")
	if err != nil {
		t.Fatal(err)
	}
	if d.Location() != time.UTC || d.Hour() != 0 || d.Weekday() != time.Monday {
		t.Fatalf("unexpected date %v (%v)", d, d.Weekday())
	}
	if _, err := ParseDate("03/06/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestZones(t *testing.T) {
	loc, err := LoadZone("")
	if err != nil || loc != Legacy {
		t.Fatalf("empty zone should be Legacy, got %v %v", loc, err)
	}
	loc, err = LoadZone("-03:00")
	if err != nil {
		t.Fatal(err)
	}
	if _, off := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone(); off != -3*3600 {
		t.Fatalf("offset = %d", off)
	}
	loc, err = LoadZone("+0530")
	if err != nil {
		t.Fatal(err)
	}
	if _, off := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone(); off != 5*3600+30*60 {
		t.Fatalf("offset = %d", off)
	}
	if _, err := LoadZone("Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown zone")
	}

	if got := Resolve("Mars/Olympus", time.UTC); got != time.UTC {
		t.Fatalf("Resolve should fall back, got %v", got)
	}
	if got := Resolve("", nil); got != Legacy {
		t.Fatalf("Resolve should default to Legacy, got %v", got)
	}
	if got := Resolve("UTC", Legacy); got.String() != "UTC" {
		t.Fatalf("Resolve should use business zone, got %v", got)
	}
}

func TestDateAndMinuteInZone(t *testing.T) {
	// 01:30 UTC is still the previous evening in UTC-3.
	now := time.Date(2024, 6, 4, 1, 30, 0, 0, time.UTC)
	if got := Date(now, Legacy); got != "2024-06-03" {
		t.Fatalf("Date = %q", got)
	}
	if got := MinuteOfDay(now, Legacy); got != 22*60+30 {
		t.Fatalf("MinuteOfDay = %d", got)
	}
	d, _ := ParseDate("2024-06-03")
	at := At(d, 19*60, Legacy)
	if !at.Equal(time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("At = %v", at)
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	c := NewManual(start)
	c.Advance(time.Hour)
	if !c.Now().Equal(start.Add(time.Hour)) {
		t.Fatalf("Advance failed: %v", c.Now())
	}
}
