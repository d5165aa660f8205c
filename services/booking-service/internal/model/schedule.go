package model

import "time"

// WeeklySchedule is stored as a JSON array on the professional row.
type WeeklySchedule []DaySchedule

type DaySchedule struct {
	Day       string         `json:"day"`
	Active    bool           `json:"active"`
	Intervals []TimeInterval `json:"intervals"`
}

// TimeInterval is a same-day wall-clock range, "HH:MM" to "HH:MM".
type TimeInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ProfessionalBlock without StartTime/EndTime covers whole days. With both set
// the times apply to StartDate only.
type ProfessionalBlock struct {
	ID             string
	ProfessionalID string
	StartDate      string
	EndDate        string
	StartTime      *string
	EndTime        *string
	Reason         string
}

type Service struct {
	ID              string
	BusinessID      string
	Name            string
	DurationMinutes int
	PriceCents      int64
	Active          bool
}

type Business struct {
	ID               string
	Name             string
	Timezone         string
	WhatsAppInstance string
}

type Professional struct {
	ID         string
	BusinessID string
	Name       string
	Schedule   WeeklySchedule
	UpdatedAt  time.Time
}

// Entitlements is the locally cached subscription limit for a business.
type Entitlements struct {
	BusinessID             string
	Tier                   string
	MaxMonthlyAppointments int
}

const (
	FreeTier                   = "free"
	FreeMaxMonthlyAppointments = 200
)
