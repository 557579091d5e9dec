package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fablab/fablab-registration/internal/metrics"
	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/internal/slots"
)

const (
	ConflictReasonDeactivated = "section_deactivated"
	ConflictReasonOverlap     = "overlap"
)

// AvailabilityService answers slot queries and is the write-time conflict gate.
type AvailabilityService struct {
	db           *sql.DB
	workingHours *WorkingHoursService
	stepMinutes  int
}

func NewAvailabilityService(db *sql.DB, workingHours *WorkingHoursService) *AvailabilityService {
	return &AvailabilityService{
		db:           db,
		workingHours: workingHours,
		stepMinutes:  slots.DefaultStepMinutes,
	}
}

// DaySchedule is the full slot grid of a section on a date.
type DaySchedule struct {
	Section        models.Section               `json:"section"`
	Date           string                       `json:"date"`
	Hours          *models.ResolvedWorkingHours `json:"workingHours"`
	IsWorkingDay   bool                         `json:"isWorkingDay"`
	Deactivation   *models.SectionAvailability  `json:"deactivation,omitempty"`
	Slots          []models.Slot                `json:"slots"`
	Blocked        []models.BlockedInterval     `json:"blocked"`
	AvailableCount int                          `json:"availableCount"`
}

// GetDaySchedule resolves hours, builds the grid and marks every slot whose
// start falls inside a blocked interval.
func (s *AvailabilityService) GetDaySchedule(ctx context.Context, section models.Section, date string) (*DaySchedule, error) {
	if !section.IsValid() {
		return nil, errInvalidSection(string(section))
	}
	if !models.IsValidDate(date) {
		return nil, errInvalidDate("date", date)
	}

	hours, err := s.workingHours.ResolveWorkingHours(ctx, date)
	if err != nil {
		return nil, err
	}
	weekday, err := models.Weekday(date)
	if err != nil {
		return nil, errInvalidDate("date", date)
	}

	day := &DaySchedule{
		Section:      section,
		Date:         date,
		Hours:        hours,
		IsWorkingDay: hours.IsWorkingDay(weekday),
		Slots:        []models.Slot{},
		Blocked:      []models.BlockedInterval{},
	}
	if !day.IsWorkingDay {
		return day, nil
	}

	grid, err := slots.Generate(hours.StartTime, hours.EndTime, s.stepMinutes)
	if err != nil {
		return nil, fmt.Errorf("error generating slots for %s: %w", date, err)
	}

	deactivation, err := activeDeactivation(ctx, repositories.NewSectionAvailabilityRepository(s.db), section, date)
	if err != nil {
		return nil, err
	}
	if deactivation != nil {
		day.Deactivation = deactivation
		for i := range grid {
			grid[i].Available = false
		}
		day.Slots = grid
		return day, nil
	}

	blocked, err := NewOverlapService(s.db).ComputeBlockedIntervals(ctx, section, date, "")
	if err != nil {
		return nil, err
	}
	if blocked != nil {
		day.Blocked = blocked
	}
	day.Slots = slots.MarkBlocked(grid, Intervals(blocked))
	day.AvailableCount = len(slots.Available(day.Slots))
	return day, nil
}

// GetAvailableSlots returns the free slots of section on date, in order.
// The view is advisory; CheckSlot re-validates at write time.
func (s *AvailabilityService) GetAvailableSlots(ctx context.Context, section models.Section, date string) ([]models.Slot, error) {
	day, err := s.GetDaySchedule(ctx, section, date)
	if err != nil {
		return nil, err
	}
	metrics.IncAvailabilityQuery(string(section))
	return slots.Available(day.Slots), nil
}

// SlotCheck is the outcome of a conflict check.
type SlotCheck struct {
	Available    bool
	Reason       string
	Deactivation *models.SectionAvailability
	Conflicts    []models.BlockedInterval
}

// IsSlotAvailable reports whether [startTime, endTime) on date is free for
// section. excludeID skips one registration for update-in-place flows.
func (s *AvailabilityService) IsSlotAvailable(ctx context.Context, section models.Section, date, startTime, endTime, excludeID string) (bool, error) {
	if !section.IsValid() {
		return false, errInvalidSection(string(section))
	}
	if !models.IsValidDate(date) {
		return false, errInvalidDate("date", date)
	}
	start, err := models.ParseClock(startTime)
	if err != nil {
		return false, errInvalidTime("startTime", startTime)
	}
	end, err := models.ParseClock(endTime)
	if err != nil {
		return false, errInvalidTime("endTime", endTime)
	}
	if start >= end {
		return false, errTimeOrder("startTime", "endTime")
	}

	check, err := CheckSlot(ctx, s.db, section, date, models.Interval{Start: start, End: end}, excludeID)
	if err != nil {
		return false, err
	}
	return check.Available, nil
}

// CheckSlot runs both write-time gates against db, which may be a
// transaction: the section must not be deactivated on date, and candidate
// must not overlap any blocked interval.
func CheckSlot(ctx context.Context, db repositories.DBTX, section models.Section, date string, candidate models.Interval, excludeID string) (*SlotCheck, error) {
	deactivation, err := activeDeactivation(ctx, repositories.NewSectionAvailabilityRepository(db), section, date)
	if err != nil {
		return nil, err
	}
	if deactivation != nil {
		metrics.IncSlotConflict(ConflictReasonDeactivated)
		return &SlotCheck{Reason: ConflictReasonDeactivated, Deactivation: deactivation}, nil
	}

	blocked, err := NewOverlapService(db).ComputeBlockedIntervals(ctx, section, date, excludeID)
	if err != nil {
		return nil, err
	}

	var conflicts []models.BlockedInterval
	for _, b := range blocked {
		if b.Overlaps(candidate) {
			conflicts = append(conflicts, b)
		}
	}
	if len(conflicts) > 0 {
		metrics.IncSlotConflict(ConflictReasonOverlap)
		return &SlotCheck{Reason: ConflictReasonOverlap, Conflicts: conflicts}, nil
	}
	return &SlotCheck{Available: true}, nil
}
