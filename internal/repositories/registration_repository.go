package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fablab/fablab-registration/internal/models"
)

type RegistrationRepository struct {
	db DBTX
}

func NewRegistrationRepository(db DBTX) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// RegistrationFilter narrows List. Zero values mean "any".
type RegistrationFilter struct {
	Section models.Section
	Status  models.RegistrationStatus
	Date    string
	Limit   int
}

const registrationSelect = `
	SELECT r.id, r.user_id, r.fablab_section, r.status, r.application_type, r.schedule_kind,
	       r.appointment_date, r.appointment_time, r.appointment_duration,
	       r.start_date, r.end_date, r.start_time, r.end_time,
	       r.visit_date, r.visit_start_time, r.visit_end_time,
	       r.purpose, r.details, r.approved_by, r.approved_at, r.created_at, r.updated_at,
	       u.id, u.name, u.email, u.phone, u.application_type, u.created_at
	FROM registrations r
	JOIN users u ON u.id = r.user_id`

// scheduleColumns is the nullable-column form of a models.Schedule.
type scheduleColumns struct {
	kind                                    string
	appointmentDate, appointmentTime        any
	appointmentDuration                     any
	startDate, endDate, startTime, endTime  any
	visitDate, visitStartTime, visitEndTime any
}

func toScheduleColumns(s models.Schedule) (scheduleColumns, error) {
	switch v := s.(type) {
	case models.AppointmentSchedule:
		return scheduleColumns{
			kind:                string(v.Kind()),
			appointmentDate:     v.Date,
			appointmentTime:     v.Time,
			appointmentDuration: v.Duration,
		}, nil
	case models.VolunteerSchedule:
		return scheduleColumns{
			kind:      string(v.Kind()),
			startDate: v.StartDate,
			endDate:   v.EndDate,
			startTime: v.StartTime,
			endTime:   v.EndTime,
		}, nil
	case models.VisitSchedule:
		return scheduleColumns{
			kind:           string(v.Kind()),
			visitDate:      v.Date,
			visitStartTime: v.StartTime,
			visitEndTime:   v.EndTime,
		}, nil
	}
	return scheduleColumns{}, fmt.Errorf("unsupported schedule %T", s)
}

// Create inserts a registration
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	cols, err := toScheduleColumns(reg.Schedule)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO registrations (
			id, user_id, fablab_section, status, application_type, schedule_kind,
			appointment_date, appointment_time, appointment_duration,
			start_date, end_date, start_time, end_time,
			visit_date, visit_start_time, visit_end_time,
			purpose, details, approved_by, approved_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.UserID, string(reg.FablabSection), string(reg.Status), string(reg.ApplicationType), cols.kind,
		cols.appointmentDate, cols.appointmentTime, cols.appointmentDuration,
		cols.startDate, cols.endDate, cols.startTime, cols.endTime,
		cols.visitDate, cols.visitStartTime, cols.visitEndTime,
		reg.Purpose, reg.Details, nullableString(reg.ApprovedBy), nullableTime(reg.ApprovedAt),
		reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating registration: %w", err)
	}
	return nil
}

// GetByID retrieves a registration with its user
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, registrationSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registration %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting registration: %w", err)
	}
	return reg, nil
}

// List returns registrations matching filter, newest first
func (r *RegistrationRepository) List(ctx context.Context, filter RegistrationFilter) ([]*models.Registration, error) {
	var where []string
	var args []any

	if filter.Section != "" {
		where = append(where, "r.fablab_section = ?")
		args = append(args, string(filter.Section))
	}
	if filter.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Date != "" {
		where = append(where, "(r.appointment_date = ? OR r.visit_date = ? OR (r.start_date <= ? AND r.end_date >= ?))")
		args = append(args, filter.Date, filter.Date, filter.Date, filter.Date)
	}

	query := registrationSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	return r.query(ctx, query, args...)
}

// ListBlocking returns registrations of section holding calendar time on
// date: blocking status, date-shape covering the date, and an application
// type that consumed public slots when it was made. excludeID drops one registration (reschedules).
func (r *RegistrationRepository) ListBlocking(ctx context.Context, section models.Section, date, excludeID string) ([]*models.Registration, error) {
	return r.query(ctx, registrationSelect+`
		WHERE r.fablab_section = ?
		  AND r.status IN (?, ?, ?)
		  AND r.application_type != ?
		  AND (r.appointment_date = ? OR r.visit_date = ? OR (r.start_date <= ? AND r.end_date >= ?))
		  AND r.id != ?
		ORDER BY r.created_at`,
		string(section),
		string(models.StatusPending), string(models.StatusApproved), string(models.StatusOnHold),
		string(models.ApplicationVolunteer),
		date, date, date, date,
		excludeID,
	)
}

// UpdateStatus persists the status and approval stamp
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, reg *models.Registration) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE registrations
		SET status = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ?`,
		string(reg.Status), nullableString(reg.ApprovedBy), nullableTime(reg.ApprovedAt), reg.UpdatedAt, reg.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating registration status: %w", err)
	}
	return ensureAffected(result, "registration", reg.ID)
}

// UpdateSchedule replaces the date-shape of a registration
func (r *RegistrationRepository) UpdateSchedule(ctx context.Context, reg *models.Registration) error {
	cols, err := toScheduleColumns(reg.Schedule)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE registrations
		SET schedule_kind = ?,
		    appointment_date = ?, appointment_time = ?, appointment_duration = ?,
		    start_date = ?, end_date = ?, start_time = ?, end_time = ?,
		    visit_date = ?, visit_start_time = ?, visit_end_time = ?,
		    updated_at = ?
		WHERE id = ?`,
		cols.kind,
		cols.appointmentDate, cols.appointmentTime, cols.appointmentDuration,
		cols.startDate, cols.endDate, cols.startTime, cols.endTime,
		cols.visitDate, cols.visitStartTime, cols.visitEndTime,
		reg.UpdatedAt, reg.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating registration schedule: %w", err)
	}
	return ensureAffected(result, "registration", reg.ID)
}

func (r *RegistrationRepository) query(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying registrations: %w", err)
	}
	defer rows.Close()

	var registrations []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning registration: %w", err)
		}
		registrations = append(registrations, reg)
	}
	return registrations, rows.Err()
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var reg models.Registration
	var user models.User
	var section, status, regType, kind, applicationType string
	var appointmentDate, appointmentTime sql.NullString
	var appointmentDuration sql.NullInt64
	var startDate, endDate, startTime, endTime sql.NullString
	var visitDate, visitStartTime, visitEndTime sql.NullString
	var approvedBy sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(
		&reg.ID, &reg.UserID, &section, &status, &regType, &kind,
		&appointmentDate, &appointmentTime, &appointmentDuration,
		&startDate, &endDate, &startTime, &endTime,
		&visitDate, &visitStartTime, &visitEndTime,
		&reg.Purpose, &reg.Details, &approvedBy, &approvedAt, &reg.CreatedAt, &reg.UpdatedAt,
		&user.ID, &user.Name, &user.Email, &user.Phone, &applicationType, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	reg.FablabSection = models.Section(section)
	reg.Status = models.RegistrationStatus(status)
	reg.ApplicationType = models.ApplicationType(regType)
	reg.ApprovedBy = stringPtr(approvedBy)
	reg.ApprovedAt = timePtr(approvedAt)
	user.ApplicationType = models.ApplicationType(applicationType)
	reg.User = &user

	switch models.ScheduleKind(kind) {
	case models.ScheduleKindAppointment:
		reg.Schedule = models.AppointmentSchedule{
			Date:     appointmentDate.String,
			Time:     appointmentTime.String,
			Duration: int(appointmentDuration.Int64),
		}
	case models.ScheduleKindVolunteer:
		reg.Schedule = models.VolunteerSchedule{
			StartDate: startDate.String,
			EndDate:   endDate.String,
			StartTime: startTime.String,
			EndTime:   endTime.String,
		}
	case models.ScheduleKindVisit:
		reg.Schedule = models.VisitSchedule{
			Date:      visitDate.String,
			StartTime: visitStartTime.String,
			EndTime:   visitEndTime.String,
		}
	default:
		return nil, fmt.Errorf("registration %s has unknown schedule kind %q", reg.ID, kind)
	}

	return &reg, nil
}
