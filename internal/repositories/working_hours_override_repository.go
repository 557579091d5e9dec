package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fablab/fablab-registration/internal/models"
)

type WorkingHoursOverrideRepository struct {
	db DBTX
}

func NewWorkingHoursOverrideRepository(db DBTX) *WorkingHoursOverrideRepository {
	return &WorkingHoursOverrideRepository{db: db}
}

const overrideColumns = `id, start_date, end_date, start_time, end_time, working_days, label, is_active, created_by, created_at`

// Create creates a new working hours override
func (r *WorkingHoursOverrideRepository) Create(ctx context.Context, o *models.WorkingHoursOverride) error {
	days, err := json.Marshal(o.WorkingDays)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO working_hours_overrides (`+overrideColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.StartDate, o.EndDate, o.StartTime, o.EndTime, string(days),
		o.Label, o.IsActive, o.CreatedBy, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating working hours override: %w", err)
	}
	return nil
}

// GetByID retrieves an override by ID
func (r *WorkingHoursOverrideRepository) GetByID(ctx context.Context, id string) (*models.WorkingHoursOverride, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+overrideColumns+` FROM working_hours_overrides WHERE id = ?`, id)
	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("working hours override %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting working hours override: %w", err)
	}
	return o, nil
}

// FindActiveForDate returns the most recently created active override
// covering date, or nil when none applies.
func (r *WorkingHoursOverrideRepository) FindActiveForDate(ctx context.Context, date string) (*models.WorkingHoursOverride, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+overrideColumns+`
		FROM working_hours_overrides
		WHERE is_active = 1 AND start_date <= ? AND end_date >= ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`,
		date, date,
	)
	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding working hours override: %w", err)
	}
	return o, nil
}

// List returns overrides, newest first
func (r *WorkingHoursOverrideRepository) List(ctx context.Context, includeInactive bool) ([]*models.WorkingHoursOverride, error) {
	query := `SELECT ` + overrideColumns + ` FROM working_hours_overrides`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing working hours overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*models.WorkingHoursOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning working hours override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// Deactivate soft-deletes an override
func (r *WorkingHoursOverrideRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE working_hours_overrides SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deactivating working hours override: %w", err)
	}
	return ensureAffected(result, "working hours override", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOverride(row rowScanner) (*models.WorkingHoursOverride, error) {
	var o models.WorkingHoursOverride
	var days string
	err := row.Scan(
		&o.ID, &o.StartDate, &o.EndDate, &o.StartTime, &o.EndTime, &days,
		&o.Label, &o.IsActive, &o.CreatedBy, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(days), &o.WorkingDays); err != nil {
		return nil, fmt.Errorf("error decoding working days: %w", err)
	}
	return &o, nil
}
