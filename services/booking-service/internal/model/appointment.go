package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus is case-insensitive and accepts the US spelling "canceled".
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "completed":
		return StatusCompleted, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown appointment status %q", raw)
	}
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition allows pending->confirmed->completed and any non-terminal
// status to cancelled.
func (s Status) CanTransition(to Status) bool {
	if s.Terminal() {
		return false
	}
	switch to {
	case StatusCancelled:
		return true
	case StatusConfirmed:
		return s == StatusPending
	case StatusCompleted:
		return s == StatusConfirmed
	default:
		return false
	}
}

type Appointment struct {
	ID             string
	BusinessID     string
	ProfessionalID string
	ServiceID      string
	ClientID       string
	ClientName     string
	ClientPhone    string
	Date           string // YYYY-MM-DD in the business zone
	Time           string // HH:MM
	Status         Status
	ReminderSent   bool
	CreatedAt      time.Time
}

// Occupies reports whether the appointment holds its time range.
func (a Appointment) Occupies() bool {
	return a.Status != StatusCancelled
}
