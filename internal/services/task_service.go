package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/sirupsen/logrus"
)

// maxTaskSpanDays bounds the per-day conflict scan of a multi-day task.
const maxTaskSpanDays = 366

type TaskService struct {
	db       *sql.DB
	taskRepo *repositories.TaskRepository
	cal      Calendar
}

func NewTaskService(db *sql.DB, taskRepo *repositories.TaskRepository, cal Calendar) *TaskService {
	return &TaskService{
		db:       db,
		taskRepo: taskRepo,
		cal:      cal,
	}
}

// TaskInput carries the editable fields of a task. Empty optional strings
// mean "not set".
type TaskInput struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Section        models.Section `json:"section"`
	AssignedTo     string         `json:"assignedTo"`
	DueDate        string         `json:"dueDate"`
	DueDateEnd     string         `json:"dueDateEnd"`
	DueTime        string         `json:"dueTime"`
	DueTimeEnd     string         `json:"dueTimeEnd"`
	BlocksCalendar bool           `json:"blocksCalendar"`
}

// TaskResult is a saved task plus the number of live bookings its time
// window overlaps. Tasks are never rejected for overlapping bookings.
type TaskResult struct {
	Task                *models.Task `json:"task"`
	ConflictingBookings int          `json:"conflictingBookings"`
}

// Create stores a new pending task.
func (s *TaskService) Create(ctx context.Context, input TaskInput, createdBy string) (*TaskResult, error) {
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}

	task := models.NewTask(strings.TrimSpace(input.Title), input.Section, input.DueDate, createdBy)
	applyTaskInput(task, input)

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	result, err := s.withConflicts(ctx, task)
	if err != nil {
		return nil, err
	}

	logger.WithComponent("tasks").WithFields(logrus.Fields{
		"task_id":              task.ID,
		"section":              task.Section,
		"blocks_calendar":      task.BlocksCalendar,
		"conflicting_bookings": result.ConflictingBookings,
	}).Info("Task created")
	return result, nil
}

// Update replaces the editable fields of a task.
func (s *TaskService) Update(ctx context.Context, id string, input TaskInput) (*TaskResult, error) {
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errTaskNotFound(err)
	}
	task.Title = strings.TrimSpace(input.Title)
	task.Section = input.Section
	task.DueDate = input.DueDate
	applyTaskInput(task, input)
	task.UpdatedAt = s.cal.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, errTaskNotFound(err)
	}
	return s.withConflicts(ctx, task)
}

// UpdateStatus moves a task to status. Completed and cancelled tasks stop
// blocking the calendar.
func (s *TaskService) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error) {
	if !status.IsValid() {
		return nil, NewValidationError("INVALID_TASK_STATUS",
			"Unknown task status",
			"حالة المهمة غير معروفة").WithDetail("status", status)
	}
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errTaskNotFound(err)
	}
	task.Status = status
	task.UpdatedAt = s.cal.Now()
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, errTaskNotFound(err)
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errTaskNotFound(err)
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, filter repositories.TaskFilter) ([]*models.Task, error) {
	if filter.Section != "" && !filter.Section.IsValid() {
		return nil, errInvalidSection(string(filter.Section))
	}
	if filter.Date != "" && !models.IsValidDate(filter.Date) {
		return nil, errInvalidDate("date", filter.Date)
	}
	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}
	return tasks, nil
}

// withConflicts counts distinct registrations overlapping task's window on
// any day of its range.
func (s *TaskService) withConflicts(ctx context.Context, task *models.Task) (*TaskResult, error) {
	result := &TaskResult{Task: task}
	window, ok := task.Interval()
	if !ok || !task.BlocksCalendar || !task.Status.IsOpen() {
		return result, nil
	}

	dates, err := models.DatesBetween(task.DueDate, task.LastDate())
	if err != nil {
		return nil, errInvalidDate("dueDateEnd", task.LastDate())
	}
	if len(dates) > maxTaskSpanDays {
		dates = dates[:maxTaskSpanDays]
	}

	overlap := NewOverlapService(s.db)
	seen := make(map[string]bool)
	for _, date := range dates {
		blocked, err := overlap.ComputeBlockedIntervals(ctx, task.Section, date, "")
		if err != nil {
			return nil, err
		}
		for _, b := range blocked {
			if b.Source == SourceRegistration && b.Overlaps(window) {
				seen[b.SourceID] = true
			}
		}
	}
	result.ConflictingBookings = len(seen)
	return result, nil
}

func validateTaskInput(input TaskInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return NewValidationError("TITLE_REQUIRED", "Title is required", "العنوان مطلوب")
	}
	if !input.Section.IsValid() {
		return errInvalidSection(string(input.Section))
	}
	if !models.IsValidDate(input.DueDate) {
		return errInvalidDate("dueDate", input.DueDate)
	}
	if input.DueDateEnd != "" {
		if !models.IsValidDate(input.DueDateEnd) {
			return errInvalidDate("dueDateEnd", input.DueDateEnd)
		}
		if input.DueDateEnd < input.DueDate {
			return errDateOrder("dueDate", "dueDateEnd")
		}
	}
	if input.DueTime == "" && input.DueTimeEnd == "" {
		return nil
	}
	if input.DueTime == "" || input.DueTimeEnd == "" {
		return NewValidationError("INCOMPLETE_TIME_RANGE",
			"dueTime and dueTimeEnd must be set together",
			"يجب تحديد وقت البداية ووقت النهاية معاً")
	}
	return validateClockPair("dueTime", input.DueTime, "dueTimeEnd", input.DueTimeEnd)
}

func applyTaskInput(task *models.Task, input TaskInput) {
	task.Description = strings.TrimSpace(input.Description)
	task.AssignedTo = strings.TrimSpace(input.AssignedTo)
	task.DueDateEnd = optional(input.DueDateEnd)
	task.DueTime = optional(input.DueTime)
	task.DueTimeEnd = optional(input.DueTimeEnd)
	task.BlocksCalendar = input.BlocksCalendar
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func errTaskNotFound(err error) error {
	return notFoundOr(err, "TASK_NOT_FOUND", "Task not found", "لم يتم العثور على المهمة")
}
