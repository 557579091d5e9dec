package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fablab/fablab-registration/internal/models"
)

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskFilter narrows List. Zero values mean "any".
type TaskFilter struct {
	Section    models.Section
	Status     models.TaskStatus
	Date       string
	AssignedTo string
}

const taskColumns = `id, title, description, section, assigned_to, due_date, due_date_end, due_time, due_time_end, blocks_calendar, status, created_by, created_at, updated_at`

// Create inserts a task
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Section), t.AssignedTo, t.DueDate,
		nullableString(t.DueDateEnd), nullableString(t.DueTime), nullableString(t.DueTimeEnd),
		t.BlocksCalendar, string(t.Status), t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting task: %w", err)
	}
	return t, nil
}

// Update persists every editable field of a task
func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, section = ?, assigned_to = ?,
		    due_date = ?, due_date_end = ?, due_time = ?, due_time_end = ?,
		    blocks_calendar = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, string(t.Section), t.AssignedTo,
		t.DueDate, nullableString(t.DueDateEnd), nullableString(t.DueTime), nullableString(t.DueTimeEnd),
		t.BlocksCalendar, string(t.Status), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating task: %w", err)
	}
	return ensureAffected(result, "task", t.ID)
}

// List returns tasks matching filter ordered by due date
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	var where []string
	var args []any

	if filter.Section != "" {
		where = append(where, "section = ?")
		args = append(args, string(filter.Section))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.AssignedTo != "" {
		where = append(where, "assigned_to = ?")
		args = append(args, filter.AssignedTo)
	}
	if filter.Date != "" {
		where = append(where, "due_date <= ? AND COALESCE(due_date_end, due_date) >= ?")
		args = append(args, filter.Date, filter.Date)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY due_date, due_time"

	return r.query(ctx, query, args...)
}

// ListBlocking returns open calendar-blocking tasks of section whose
// [due_date, due_date_end or due_date] range covers date.
func (r *TaskRepository) ListBlocking(ctx context.Context, section models.Section, date string) ([]*models.Task, error) {
	return r.query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE section = ?
		  AND blocks_calendar = 1
		  AND status NOT IN (?, ?)
		  AND due_date <= ?
		  AND COALESCE(NULLIF(due_date_end, ''), due_date) >= ?
		ORDER BY due_time`,
		string(section),
		string(models.TaskStatusCompleted), string(models.TaskStatusCancelled),
		date, date,
	)
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var section, status string
	var dueDateEnd, dueTime, dueTimeEnd sql.NullString
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &section, &t.AssignedTo, &t.DueDate,
		&dueDateEnd, &dueTime, &dueTimeEnd,
		&t.BlocksCalendar, &status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Section = models.Section(section)
	t.Status = models.TaskStatus(status)
	t.DueDateEnd = stringPtr(dueDateEnd)
	t.DueTime = stringPtr(dueTime)
	t.DueTimeEnd = stringPtr(dueTimeEnd)
	return &t, nil
}
