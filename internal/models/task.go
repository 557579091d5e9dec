package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of an employee task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsValid reports whether s is a known task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// IsOpen reports whether the task can still hold calendar time.
func (s TaskStatus) IsOpen() bool {
	return s != TaskStatusCompleted && s != TaskStatusCancelled
}

// Task is an employee assignment. When BlocksCalendar is set and it has a
// time window, it takes slot capacity away from its section.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Section        Section    `json:"section"`
	AssignedTo     string     `json:"assignedTo"`
	DueDate        string     `json:"dueDate"`
	DueDateEnd     *string    `json:"dueDateEnd,omitempty"`
	DueTime        *string    `json:"dueTime,omitempty"`
	DueTimeEnd     *string    `json:"dueTimeEnd,omitempty"`
	BlocksCalendar bool       `json:"blocksCalendar"`
	Status         TaskStatus `json:"status"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewTask creates a pending task with a generated UUID
func NewTask(title string, section Section, dueDate string, createdBy string) *Task {
	now := time.Now()
	return &Task{
		ID:        uuid.New().String(),
		Title:     title,
		Section:   section,
		DueDate:   dueDate,
		Status:    TaskStatusPending,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LastDate is DueDateEnd when set, otherwise DueDate.
func (t *Task) LastDate() string {
	if t.DueDateEnd != nil && *t.DueDateEnd != "" {
		return *t.DueDateEnd
	}
	return t.DueDate
}

// CoversDate reports whether date is within [DueDate, LastDate].
func (t *Task) CoversDate(date string) bool {
	return t.DueDate <= date && date <= t.LastDate()
}

// Interval returns the blocked time-of-day window. ok is false when the
// task has no complete time window.
func (t *Task) Interval() (Interval, bool) {
	if t.DueTime == nil || t.DueTimeEnd == nil {
		return Interval{}, false
	}
	iv, err := clockPair(*t.DueTime, *t.DueTimeEnd)
	if err != nil {
		return Interval{}, false
	}
	return iv, true
}
