package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fablab/fablab-registration/internal/models"
)

type SectionAvailabilityRepository struct {
	db DBTX
}

func NewSectionAvailabilityRepository(db DBTX) *SectionAvailabilityRepository {
	return &SectionAvailabilityRepository{db: db}
}

const sectionAvailabilityColumns = `id, section, start_date, end_date, reason_en, reason_ar, is_active, created_by, created_at, reactivated_at, reactivated_by`

// Create creates a new deactivation record
func (r *SectionAvailabilityRepository) Create(ctx context.Context, s *models.SectionAvailability) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO section_availability (`+sectionAvailabilityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, string(s.Section), s.StartDate, s.EndDate, s.ReasonEn, s.ReasonAr,
		s.IsActive, s.CreatedBy, s.CreatedAt, nullableTime(s.ReactivatedAt), nullableString(s.ReactivatedBy),
	)
	if err != nil {
		return fmt.Errorf("error creating section availability: %w", err)
	}
	return nil
}

// GetByID retrieves a deactivation record by ID
func (r *SectionAvailabilityRepository) GetByID(ctx context.Context, id string) (*models.SectionAvailability, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sectionAvailabilityColumns+` FROM section_availability WHERE id = ?`, id)
	s, err := scanSectionAvailability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("section availability %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting section availability: %w", err)
	}
	return s, nil
}

// FindActiveOverlapping returns active records of section whose range
// intersects [startDate, endDate].
func (r *SectionAvailabilityRepository) FindActiveOverlapping(ctx context.Context, section models.Section, startDate, endDate string) ([]*models.SectionAvailability, error) {
	return r.query(ctx, `
		SELECT `+sectionAvailabilityColumns+`
		FROM section_availability
		WHERE section = ? AND is_active = 1 AND start_date <= ? AND end_date >= ?
		ORDER BY start_date`,
		string(section), endDate, startDate,
	)
}

// ListActiveCovering returns active records of every section covering date.
func (r *SectionAvailabilityRepository) ListActiveCovering(ctx context.Context, date string) ([]*models.SectionAvailability, error) {
	return r.query(ctx, `
		SELECT `+sectionAvailabilityColumns+`
		FROM section_availability
		WHERE is_active = 1 AND start_date <= ? AND end_date >= ?
		ORDER BY created_at DESC`,
		date, date,
	)
}

// List returns records, optionally filtered by section
func (r *SectionAvailabilityRepository) List(ctx context.Context, section models.Section, includeInactive bool) ([]*models.SectionAvailability, error) {
	query := `SELECT ` + sectionAvailabilityColumns + ` FROM section_availability WHERE 1 = 1`
	var args []any
	if section != "" {
		query += ` AND section = ?`
		args = append(args, string(section))
	}
	if !includeInactive {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY start_date DESC`
	return r.query(ctx, query, args...)
}

// ExpireEnded clears the active flag of records that ended before today.
// It returns the number of records expired.
func (r *SectionAvailabilityRepository) ExpireEnded(ctx context.Context, today string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE section_availability SET is_active = 0 WHERE is_active = 1 AND end_date < ?`,
		today,
	)
	if err != nil {
		return 0, fmt.Errorf("error expiring section availability: %w", err)
	}
	return result.RowsAffected()
}

// Reactivate persists a manual early reactivation
func (r *SectionAvailabilityRepository) Reactivate(ctx context.Context, s *models.SectionAvailability) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE section_availability
		SET is_active = 0, reactivated_at = ?, reactivated_by = ?
		WHERE id = ? AND is_active = 1`,
		nullableTime(s.ReactivatedAt), nullableString(s.ReactivatedBy), s.ID,
	)
	if err != nil {
		return fmt.Errorf("error reactivating section: %w", err)
	}
	return ensureAffected(result, "section availability", s.ID)
}

func (r *SectionAvailabilityRepository) query(ctx context.Context, query string, args ...any) ([]*models.SectionAvailability, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying section availability: %w", err)
	}
	defer rows.Close()

	var records []*models.SectionAvailability
	for rows.Next() {
		s, err := scanSectionAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning section availability: %w", err)
		}
		records = append(records, s)
	}
	return records, rows.Err()
}

func scanSectionAvailability(row rowScanner) (*models.SectionAvailability, error) {
	var s models.SectionAvailability
	var section string
	var reactivatedAt sql.NullTime
	var reactivatedBy sql.NullString
	err := row.Scan(
		&s.ID, &section, &s.StartDate, &s.EndDate, &s.ReasonEn, &s.ReasonAr,
		&s.IsActive, &s.CreatedBy, &s.CreatedAt, &reactivatedAt, &reactivatedBy,
	)
	if err != nil {
		return nil, err
	}
	s.Section = models.Section(section)
	s.ReactivatedAt = timePtr(reactivatedAt)
	s.ReactivatedBy = stringPtr(reactivatedBy)
	return &s, nil
}
