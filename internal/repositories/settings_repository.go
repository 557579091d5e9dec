package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fablab/fablab-registration/internal/models"
)

// Setting keys of the global key/value settings table.
const (
	SettingWorkingHoursStart = "working_hours_start"
	SettingWorkingHoursEnd   = "working_hours_end"
	SettingWorkingDays       = "working_days"
)

// SettingsRepository gives typed access to the key/value settings table.
// Values are stored as JSON.
type SettingsRepository struct {
	db DBTX
}

func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// SeedDefaults inserts the default working hours for keys that are absent.
func (r *SettingsRepository) SeedDefaults(ctx context.Context) error {
	defaults := models.NewDefaultWorkingHours()
	seed := map[string]any{
		SettingWorkingHoursStart: defaults.StartTime,
		SettingWorkingHoursEnd:   defaults.EndTime,
		SettingWorkingDays:       defaults.WorkingDays,
	}

	for key, value := range seed {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
			key, string(raw), time.Now(),
		)
		if err != nil {
			return fmt.Errorf("error seeding setting %s: %w", key, err)
		}
	}
	return nil
}

// GetDefaultWorkingHours reads the three working-hours keys. Keys that are
// missing keep their hard-coded default values.
func (r *SettingsRepository) GetDefaultWorkingHours(ctx context.Context) (*models.WorkingHours, error) {
	hours := models.NewDefaultWorkingHours()

	if _, err := r.get(ctx, SettingWorkingHoursStart, &hours.StartTime); err != nil {
		return nil, err
	}
	if _, err := r.get(ctx, SettingWorkingHoursEnd, &hours.EndTime); err != nil {
		return nil, err
	}
	if _, err := r.get(ctx, SettingWorkingDays, &hours.WorkingDays); err != nil {
		return nil, err
	}

	return hours, nil
}

// SaveDefaultWorkingHours upserts all three working-hours keys.
func (r *SettingsRepository) SaveDefaultWorkingHours(ctx context.Context, hours *models.WorkingHours) error {
	if err := r.set(ctx, SettingWorkingHoursStart, hours.StartTime); err != nil {
		return err
	}
	if err := r.set(ctx, SettingWorkingHoursEnd, hours.EndTime); err != nil {
		return err
	}
	return r.set(ctx, SettingWorkingDays, hours.WorkingDays)
}

func (r *SettingsRepository) get(ctx context.Context, key string, dest any) (bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error getting setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("error decoding setting %s: %w", key, err)
	}
	return true, nil
}

func (r *SettingsRepository) set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("error saving setting %s: %w", key, err)
	}
	return nil
}
