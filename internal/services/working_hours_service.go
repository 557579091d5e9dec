package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/sirupsen/logrus"
)

type WorkingHoursService struct {
	settingsRepo *repositories.SettingsRepository
	overrideRepo *repositories.WorkingHoursOverrideRepository
}

func NewWorkingHoursService(
	settingsRepo *repositories.SettingsRepository,
	overrideRepo *repositories.WorkingHoursOverrideRepository,
) *WorkingHoursService {
	return &WorkingHoursService{
		settingsRepo: settingsRepo,
		overrideRepo: overrideRepo,
	}
}

// ResolveWorkingHours returns the hours in force on date. The most recently
// created active override covering the date wins; otherwise the stored
// defaults apply. Storage failures degrade to the built-in defaults.
func (s *WorkingHoursService) ResolveWorkingHours(ctx context.Context, date string) (*models.ResolvedWorkingHours, error) {
	if !models.IsValidDate(date) {
		return nil, errInvalidDate("date", date)
	}

	override, err := s.overrideRepo.FindActiveForDate(ctx, date)
	if err != nil {
		logger.WithComponent("working_hours").WithError(err).WithField("date", date).
			Warn("Failed to load working hours override, using defaults")
		return resolvedFromDefaults(models.NewDefaultWorkingHours()), nil
	}
	if override != nil {
		return &models.ResolvedWorkingHours{
			StartTime:   override.StartTime,
			EndTime:     override.EndTime,
			WorkingDays: override.WorkingDays,
			IsOverride:  true,
			Override:    override,
		}, nil
	}

	return resolvedFromDefaults(s.GetDefaults(ctx)), nil
}

// GetDefaults returns the stored default hours, or the built-in defaults
// when the settings table cannot be read.
func (s *WorkingHoursService) GetDefaults(ctx context.Context) *models.WorkingHours {
	hours, err := s.settingsRepo.GetDefaultWorkingHours(ctx)
	if err != nil {
		logger.WithComponent("working_hours").WithError(err).
			Warn("Failed to load default working hours, using built-in defaults")
		return models.NewDefaultWorkingHours()
	}
	return hours
}

// UpdateDefaults validates and stores new default working hours.
func (s *WorkingHoursService) UpdateDefaults(ctx context.Context, hours *models.WorkingHours) error {
	days, err := validateHours(hours.StartTime, hours.EndTime, hours.WorkingDays)
	if err != nil {
		return err
	}
	hours.WorkingDays = days

	if err := s.settingsRepo.SaveDefaultWorkingHours(ctx, hours); err != nil {
		return fmt.Errorf("error saving working hours: %w", err)
	}

	logger.WithComponent("working_hours").WithFields(logrus.Fields{
		"start_time":   hours.StartTime,
		"end_time":     hours.EndTime,
		"working_days": hours.WorkingDays,
	}).Info("Default working hours updated")
	return nil
}

// CreateOverrideInput carries a temporary working-hours window.
type CreateOverrideInput struct {
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	WorkingDays []int  `json:"workingDays"`
	Label       string `json:"label"`
}

// CreateOverride stores a date-ranged override.
func (s *WorkingHoursService) CreateOverride(ctx context.Context, input CreateOverrideInput, createdBy string) (*models.WorkingHoursOverride, error) {
	if !models.IsValidDate(input.StartDate) {
		return nil, errInvalidDate("startDate", input.StartDate)
	}
	if !models.IsValidDate(input.EndDate) {
		return nil, errInvalidDate("endDate", input.EndDate)
	}
	if input.StartDate > input.EndDate {
		return nil, errDateOrder("startDate", "endDate")
	}
	days, err := validateHours(input.StartTime, input.EndTime, input.WorkingDays)
	if err != nil {
		return nil, err
	}

	override := models.NewWorkingHoursOverride(
		input.StartDate, input.EndDate, input.StartTime, input.EndTime,
		days, strings.TrimSpace(input.Label), createdBy,
	)
	if err := s.overrideRepo.Create(ctx, override); err != nil {
		return nil, fmt.Errorf("error creating working hours override: %w", err)
	}

	logger.WithComponent("working_hours").WithFields(logrus.Fields{
		"override_id": override.ID,
		"start_date":  override.StartDate,
		"end_date":    override.EndDate,
	}).Info("Working hours override created")
	return override, nil
}

// ListOverrides returns overrides, newest first.
func (s *WorkingHoursService) ListOverrides(ctx context.Context, includeInactive bool) ([]*models.WorkingHoursOverride, error) {
	overrides, err := s.overrideRepo.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("error listing working hours overrides: %w", err)
	}
	return overrides, nil
}

// DeactivateOverride stops an override from being resolved. Rows are kept.
func (s *WorkingHoursService) DeactivateOverride(ctx context.Context, id string) error {
	if err := s.overrideRepo.Deactivate(ctx, id); err != nil {
		return notFoundOr(err, "OVERRIDE_NOT_FOUND",
			"Working hours override not found",
			"لم يتم العثور على ساعات العمل المؤقتة")
	}
	return nil
}

func resolvedFromDefaults(hours *models.WorkingHours) *models.ResolvedWorkingHours {
	return &models.ResolvedWorkingHours{
		StartTime:   hours.StartTime,
		EndTime:     hours.EndTime,
		WorkingDays: hours.WorkingDays,
	}
}

// validateHours checks a start/end pair and returns the de-duplicated,
// sorted weekday list.
func validateHours(startTime, endTime string, workingDays []int) ([]int, error) {
	if !models.IsValidClock(startTime) {
		return nil, errInvalidTime("startTime", startTime)
	}
	if !models.IsValidClock(endTime) {
		return nil, errInvalidTime("endTime", endTime)
	}
	if startTime >= endTime {
		return nil, errTimeOrder("startTime", "endTime")
	}
	if len(workingDays) == 0 {
		return nil, NewValidationError("INVALID_WORKING_DAYS",
			"At least one working day must be selected",
			"يجب اختيار يوم عمل واحد على الأقل")
	}

	seen := make(map[int]bool, len(workingDays))
	days := make([]int, 0, len(workingDays))
	for _, d := range workingDays {
		if d < 0 || d > 6 {
			return nil, NewValidationError("INVALID_WORKING_DAYS",
				"Working days must be between 0 (Sunday) and 6 (Saturday)",
				"أيام العمل يجب أن تكون بين 0 (الأحد) و 6 (السبت)").
				WithDetail("day", d)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Ints(days)
	return days, nil
}
