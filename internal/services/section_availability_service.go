package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fablab/fablab-registration/internal/metrics"
	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/sirupsen/logrus"
)

// SectionAvailabilityService manages date-ranged section deactivations.
type SectionAvailabilityService struct {
	db   *sql.DB
	repo *repositories.SectionAvailabilityRepository
	cal  Calendar
}

func NewSectionAvailabilityService(db *sql.DB, repo *repositories.SectionAvailabilityRepository, cal Calendar) *SectionAvailabilityService {
	return &SectionAvailabilityService{
		db:   db,
		repo: repo,
		cal:  cal,
	}
}

// DeactivateInput describes a new deactivation window.
type DeactivateInput struct {
	Section   models.Section `json:"section"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	ReasonEn  string         `json:"reasonEn"`
	ReasonAr  string         `json:"reasonAr"`
}

// Deactivate records a window during which section takes no bookings.
// Overlapping an existing active window for the same section is a conflict.
func (s *SectionAvailabilityService) Deactivate(ctx context.Context, input DeactivateInput, createdBy string) (*models.SectionAvailability, error) {
	if !input.Section.IsValid() {
		return nil, errInvalidSection(string(input.Section))
	}
	if !models.IsValidDate(input.StartDate) {
		return nil, errInvalidDate("startDate", input.StartDate)
	}
	if !models.IsValidDate(input.EndDate) {
		return nil, errInvalidDate("endDate", input.EndDate)
	}
	if input.StartDate > input.EndDate {
		return nil, errDateOrder("startDate", "endDate")
	}
	reasonEn := strings.TrimSpace(input.ReasonEn)
	if reasonEn == "" {
		return nil, NewValidationError("REASON_REQUIRED",
			"An English reason is required",
			"السبب باللغة الإنجليزية مطلوب")
	}

	record := models.NewSectionAvailability(input.Section, input.StartDate, input.EndDate,
		reasonEn, strings.TrimSpace(input.ReasonAr), createdBy)

	err := repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repositories.NewSectionAvailabilityRepository(tx)
		existing, err := repo.FindActiveOverlapping(ctx, input.Section, input.StartDate, input.EndDate)
		if err != nil {
			return fmt.Errorf("error checking overlapping deactivations: %w", err)
		}
		if len(existing) > 0 {
			return NewConflictError("DEACTIVATION_OVERLAP",
				"Section already has an active deactivation overlapping these dates",
				"القسم لديه فترة إيقاف نشطة تتداخل مع هذه التواريخ").
				WithDetail("section", input.Section).
				WithDetail("existingId", existing[0].ID).
				WithDetail("existingStartDate", existing[0].StartDate).
				WithDetail("existingEndDate", existing[0].EndDate)
		}
		return repo.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("section_availability").WithFields(logrus.Fields{
		"id":         record.ID,
		"section":    record.Section,
		"start_date": record.StartDate,
		"end_date":   record.EndDate,
	}).Info("Section deactivated")
	return record, nil
}

// Reactivate ends a deactivation early.
func (s *SectionAvailabilityService) Reactivate(ctx context.Context, id string, reactivatedBy string) (*models.SectionAvailability, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "DEACTIVATION_NOT_FOUND",
			"Section deactivation not found",
			"لم يتم العثور على فترة الإيقاف")
	}
	if !record.IsActive {
		return nil, errDeactivationInactive(id)
	}

	record.MarkReactivated(reactivatedBy)
	if err := s.repo.Reactivate(ctx, record); err != nil {
		// Zero rows here means a concurrent reactivation won.
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errDeactivationInactive(id)
		}
		return nil, err
	}

	logger.WithComponent("section_availability").WithFields(logrus.Fields{
		"id":             record.ID,
		"section":        record.Section,
		"reactivated_by": reactivatedBy,
	}).Info("Section reactivated")
	return record, nil
}

// ExpireEnded clears isActive on every record whose end date is before today.
func (s *SectionAvailabilityService) ExpireEnded(ctx context.Context, today string) (int64, error) {
	n, err := s.repo.ExpireEnded(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("error expiring deactivations: %w", err)
	}
	if n > 0 {
		metrics.AddDeactivationsExpired(int(n))
		logger.WithComponent("section_availability").WithFields(logrus.Fields{
			"expired": n,
			"today":   today,
		}).Info("Expired ended section deactivations")
	}
	return n, nil
}

// GetStatusForAllSections reports availability of every section on date
// (today when empty). Ended records are expired against the calendar's
// today, never against date.
func (s *SectionAvailabilityService) GetStatusForAllSections(ctx context.Context, date string) ([]models.SectionStatus, error) {
	today := s.cal.Today()
	if date == "" {
		date = today
	}
	if !models.IsValidDate(date) {
		return nil, errInvalidDate("date", date)
	}

	if _, err := s.ExpireEnded(ctx, today); err != nil {
		return nil, err
	}

	covering, err := s.repo.ListActiveCovering(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("error loading section deactivations: %w", err)
	}

	bySection := make(map[models.Section]*models.SectionAvailability, len(covering))
	for _, record := range covering {
		if _, ok := bySection[record.Section]; !ok {
			bySection[record.Section] = record
		}
	}

	statuses := make([]models.SectionStatus, 0, len(models.AllSections))
	for _, section := range models.AllSections {
		record := bySection[section]
		statuses = append(statuses, models.SectionStatus{
			Section:            section,
			IsAvailable:        record == nil,
			ActiveDeactivation: record,
		})
	}
	return statuses, nil
}

// ActiveDeactivation returns the active record covering date for section,
// or nil when the section is open.
func (s *SectionAvailabilityService) ActiveDeactivation(ctx context.Context, section models.Section, date string) (*models.SectionAvailability, error) {
	return activeDeactivation(ctx, s.repo, section, date)
}

// List returns deactivation records for the admin view.
func (s *SectionAvailabilityService) List(ctx context.Context, section models.Section, includeInactive bool) ([]*models.SectionAvailability, error) {
	if section != "" && !section.IsValid() {
		return nil, errInvalidSection(string(section))
	}
	records, err := s.repo.List(ctx, section, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("error listing section deactivations: %w", err)
	}
	return records, nil
}

func activeDeactivation(ctx context.Context, repo *repositories.SectionAvailabilityRepository, section models.Section, date string) (*models.SectionAvailability, error) {
	records, err := repo.FindActiveOverlapping(ctx, section, date, date)
	if err != nil {
		return nil, fmt.Errorf("error checking section deactivation: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func errDeactivationInactive(id string) *AppError {
	return NewValidationError("DEACTIVATION_INACTIVE",
		"Section deactivation is already inactive",
		"فترة الإيقاف غير نشطة بالفعل").WithDetail("id", id)
}
