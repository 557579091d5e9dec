package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fablab/fablab-registration/internal/models"
)

// JobRepository handles database operations for the notification outbox
type JobRepository struct {
	db DBTX
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db DBTX) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, job_type, status, payload, error_message, attempts, worker_id, started_at, completed_at, created_at, updated_at`

// Create creates a new job
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	query := `INSERT INTO jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		string(job.JobType),
		string(job.Status),
		string(job.Payload),
		nullableString(job.ErrorMessage),
		job.Attempts,
		nullableString(job.WorkerID),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting job: %w", err)
	}
	return job, nil
}

// ClaimNextPending atomically moves the oldest pending job to in-progress
// for workerID. Returns nil when the queue is empty.
func (r *JobRepository) ClaimNextPending(ctx context.Context, workerID string) (*models.Job, error) {
	now := time.Now()
	query := `
		UPDATE jobs
		SET status = ?, worker_id = ?, started_at = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = ?
			ORDER BY created_at ASC, rowid ASC
			LIMIT 1
		)
		RETURNING id`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		string(models.JobStatusInProgress), workerID, now, now,
		string(models.JobStatusPending),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error claiming job: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update persists the job's state
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, error_message = ?, attempts = ?, worker_id = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		string(job.Status),
		nullableString(job.ErrorMessage),
		job.Attempts,
		nullableString(job.WorkerID),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating job: %w", err)
	}
	return ensureAffected(result, "job", job.ID)
}

// CountByStatus returns the number of jobs in status
func (r *JobRepository) CountByStatus(ctx context.Context, status models.JobStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE status = ?`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting jobs: %w", err)
	}
	return count, nil
}

func scanJob(row rowScanner) (*models.Job, error) {
	job := &models.Job{}
	var jobType, status, payload string
	var errorMessage, workerID sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&job.ID,
		&jobType,
		&status,
		&payload,
		&errorMessage,
		&job.Attempts,
		&workerID,
		&startedAt,
		&completedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.JobType = models.JobType(jobType)
	job.Status = models.JobStatus(status)
	job.Payload = []byte(payload)
	job.ErrorMessage = stringPtr(errorMessage)
	job.WorkerID = stringPtr(workerID)
	job.StartedAt = timePtr(startedAt)
	job.CompletedAt = timePtr(completedAt)
	return job, nil
}
