package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Legacy is the fixed UTC-3 offset used before businesses carried a time zone.
var Legacy = time.FixedZone("UTC-3", -3*60*60)

// LoadZone accepts an IANA name ("America/Sao_Paulo"), "UTC", or a fixed
// offset ("-03:00", "+0530"). An empty name yields Legacy.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Legacy, nil
	}
	if name[0] == '+' || name[0] == '-' {
		return parseOffset(name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", name, err)
	}
	return loc, nil
}

// Resolve picks the business zone, then fallback, then Legacy. Invalid names
// fall through to the next candidate.
func Resolve(businessZone string, fallback *time.Location) *time.Location {
	if strings.TrimSpace(businessZone) != "" {
		if loc, err := LoadZone(businessZone); err == nil {
			return loc
		}
	}
	if fallback != nil {
		return fallback
	}
	return Legacy
}

func parseOffset(s string) (*time.Location, error) {
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	digits := strings.ReplaceAll(s[1:], ":", "")
	if len(digits) != 4 && len(digits) != 2 {
		return nil, fmt.Errorf("invalid offset %q", s)
	}
	h, err := strconv.Atoi(digits[:2])
	if err != nil || h > 14 {
		return nil, fmt.Errorf("invalid offset %q", s)
	}
	m := 0
	if len(digits) == 4 {
		if m, err = strconv.Atoi(digits[2:]); err != nil || m > 59 {
			return nil, fmt.Errorf("invalid offset %q", s)
		}
	}
	secs := sign * (h*3600 + m*60)
	return time.FixedZone("UTC"+s, secs), nil
}
