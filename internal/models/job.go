package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	JobTypeRegistrationConfirmation JobType = "registration_confirmation"
	JobTypeRegistrationAdminNotice  JobType = "registration_admin_notice"
	JobTypeRegistrationStatus       JobType = "registration_status"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// EmailPayload is the body of every notification job.
type EmailPayload struct {
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	RegistrationID string `json:"registrationId"`
}

// Job is a row of the notification outbox.
type Job struct {
	ID           string          `json:"id"`
	JobType      JobType         `json:"jobType"`
	Status       JobStatus       `json:"status"`
	Payload      json.RawMessage `json:"payload"`
	ErrorMessage *string         `json:"errorMessage"`
	Attempts     int             `json:"attempts"`
	WorkerID     *string         `json:"workerId"`
	StartedAt    *time.Time      `json:"startedAt"`
	CompletedAt  *time.Time      `json:"completedAt"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewEmailJob creates a pending job carrying an email payload
func NewEmailJob(jobType JobType, payload EmailPayload) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		JobType:   jobType,
		Status:    JobStatusPending,
		Payload:   raw,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// EmailPayload decodes the job payload
func (j *Job) EmailPayload() (EmailPayload, error) {
	var p EmailPayload
	err := json.Unmarshal(j.Payload, &p)
	return p, err
}

// MarkStarted marks the job as started by a worker
func (j *Job) MarkStarted(workerID string) {
	now := time.Now()
	j.Status = JobStatusInProgress
	j.WorkerID = &workerID
	j.StartedAt = &now
	j.Attempts++
	j.UpdatedAt = now
}

// MarkCompleted marks the job as completed
func (j *Job) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.ErrorMessage = nil
	j.UpdatedAt = now
}

// MarkFailed records the error. The job goes back to pending while it has
// attempts left, otherwise it is failed for good.
func (j *Job) MarkFailed(message string, maxAttempts int) {
	now := time.Now()
	j.ErrorMessage = &message
	j.UpdatedAt = now
	if j.Attempts < maxAttempts {
		j.Status = JobStatusPending
		return
	}
	j.Status = JobStatusFailed
	j.CompletedAt = &now
}

// IsFailed checks if the job is failed
func (j *Job) IsFailed() bool {
	return j.Status == JobStatusFailed
}
