package services

import (
	"context"
	"fmt"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	SourceRegistration = "registration"
	SourceTask         = "task"
)

// OverlapService collects the commitments that take time away from a
// section on a date.
type OverlapService struct {
	registrationRepo *repositories.RegistrationRepository
	taskRepo         *repositories.TaskRepository
}

// NewOverlapService binds the engine to db, which may be a transaction.
func NewOverlapService(db repositories.DBTX) *OverlapService {
	return &OverlapService{
		registrationRepo: repositories.NewRegistrationRepository(db),
		taskRepo:         repositories.NewTaskRepository(db),
	}
}

// ComputeBlockedIntervals returns every blocked interval for section on
// date. Rejected registrations, volunteer applicants and closed or
// time-less tasks contribute nothing. excludeID skips one registration.
func (s *OverlapService) ComputeBlockedIntervals(ctx context.Context, section models.Section, date string, excludeID string) ([]models.BlockedInterval, error) {
	registrations, err := s.registrationRepo.ListBlocking(ctx, section, date, excludeID)
	if err != nil {
		return nil, fmt.Errorf("error loading blocking registrations: %w", err)
	}

	var blocked []models.BlockedInterval
	for _, reg := range registrations {
		if !reg.ApplicationType.ConsumesSlots() {
			continue
		}
		if !reg.Status.Blocks() || reg.Schedule == nil || !reg.Schedule.CoversDate(date) {
			continue
		}
		iv, err := reg.Schedule.Interval()
		if err != nil {
			logger.WithComponent("overlap").WithError(err).WithFields(logrus.Fields{
				"registration_id": reg.ID,
				"section":         section,
				"date":            date,
			}).Warn("Skipping registration with malformed schedule")
			continue
		}
		blocked = append(blocked, models.BlockedInterval{Interval: iv, Source: SourceRegistration, SourceID: reg.ID})
	}

	tasks, err := s.taskRepo.ListBlocking(ctx, section, date)
	if err != nil {
		return nil, fmt.Errorf("error loading blocking tasks: %w", err)
	}
	for _, task := range tasks {
		if !task.BlocksCalendar || !task.Status.IsOpen() || !task.CoversDate(date) {
			continue
		}
		iv, ok := task.Interval()
		if !ok {
			continue
		}
		blocked = append(blocked, models.BlockedInterval{Interval: iv, Source: SourceTask, SourceID: task.ID})
	}

	return blocked, nil
}

// Intervals strips annotations from blocked.
func Intervals(blocked []models.BlockedInterval) []models.Interval {
	out := make([]models.Interval, len(blocked))
	for i, b := range blocked {
		out[i] = b.Interval
	}
	return out
}
