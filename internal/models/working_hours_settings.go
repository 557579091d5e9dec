package models

import (
	"time"

	"github.com/google/uuid"
)

// Fallback schedule used when no settings rows exist or storage fails.
const (
	DefaultWorkingHoursStart = "11:00"
	DefaultWorkingHoursEnd   = "19:00"
)

// DefaultWorkingDays is Sunday through Thursday.
var DefaultWorkingDays = []int{0, 1, 2, 3, 4}

// WorkingHours is the global default working-hours policy.
type WorkingHours struct {
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	WorkingDays []int  `json:"workingDays"`
}

// NewDefaultWorkingHours returns the hard-coded fallback schedule.
func NewDefaultWorkingHours() *WorkingHours {
	days := make([]int, len(DefaultWorkingDays))
	copy(days, DefaultWorkingDays)
	return &WorkingHours{
		StartTime:   DefaultWorkingHoursStart,
		EndTime:     DefaultWorkingHoursEnd,
		WorkingDays: days,
	}
}

// IsWorkingDay checks if the given weekday (0 = Sunday) is a working day
func (w *WorkingHours) IsWorkingDay(weekday int) bool {
	return containsDay(w.WorkingDays, weekday)
}

// WorkingHoursOverride replaces the default policy for a date range,
// e.g. Ramadan hours.
type WorkingHoursOverride struct {
	ID          string    `json:"id"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	WorkingDays []int     `json:"workingDays"`
	Label       string    `json:"label"`
	IsActive    bool      `json:"isActive"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewWorkingHoursOverride creates an active override with a generated UUID
func NewWorkingHoursOverride(startDate, endDate, startTime, endTime string, days []int, label, createdBy string) *WorkingHoursOverride {
	return &WorkingHoursOverride{
		ID:          uuid.New().String(),
		StartDate:   startDate,
		EndDate:     endDate,
		StartTime:   startTime,
		EndTime:     endTime,
		WorkingDays: days,
		Label:       label,
		IsActive:    true,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
}

// Covers reports whether date falls inside the override's range.
func (o *WorkingHoursOverride) Covers(date string) bool {
	return o.StartDate <= date && date <= o.EndDate
}

// ResolvedWorkingHours is the effective schedule for one calendar date.
type ResolvedWorkingHours struct {
	StartTime   string                `json:"startTime"`
	EndTime     string                `json:"endTime"`
	WorkingDays []int                 `json:"workingDays"`
	IsOverride  bool                  `json:"isOverride"`
	Override    *WorkingHoursOverride `json:"override,omitempty"`
}

// IsWorkingDay checks if the given weekday (0 = Sunday) is a working day
func (r *ResolvedWorkingHours) IsWorkingDay(weekday int) bool {
	return containsDay(r.WorkingDays, weekday)
}

// Window returns the working window in minutes. ok is false when the
// stored times are malformed or the window is empty.
func (r *ResolvedWorkingHours) Window() (Interval, bool) {
	start, err := ParseClock(r.StartTime)
	if err != nil {
		return Interval{}, false
	}
	end, err := ParseClock(r.EndTime)
	if err != nil {
		return Interval{}, false
	}
	if start >= end {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func containsDay(days []int, weekday int) bool {
	for _, d := range days {
		if d == weekday {
			return true
		}
	}
	return false
}
