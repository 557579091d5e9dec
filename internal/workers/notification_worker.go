package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fablab/fablab-registration/internal/metrics"
	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/notifications"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	defaultIdleWait  = 5 * time.Second
	defaultErrorWait = 10 * time.Second
)

// errStopped ends the loop on Stop.
var errStopped = errors.New("worker stopped")

// NotificationWorker drains the email outbox.
type NotificationWorker struct {
	*BaseWorker
	jobRepo     *repositories.JobRepository
	sender      notifications.Sender
	maxAttempts int
	idleWait    time.Duration
	errorWait   time.Duration
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(workerID string, jobRepo *repositories.JobRepository, sender notifications.Sender, maxAttempts int) *NotificationWorker {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &NotificationWorker{
		BaseWorker:  NewBaseWorker(workerID),
		jobRepo:     jobRepo,
		sender:      sender,
		maxAttempts: maxAttempts,
		idleWait:    defaultIdleWait,
		errorWait:   defaultErrorWait,
	}
}

// Start begins the notification worker loop
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.setRunning(true)
	defer w.setRunning(false)

	log := logger.WithComponent("notification_worker").WithField("worker_id", w.WorkerID)
	log.Info("Notification worker started")

	for {
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			log.WithError(err).Error("Error processing notification job")
		}

		wait := time.Duration(0)
		switch {
		case err != nil:
			wait = w.errorWait
		case !processed:
			wait = w.idleWait
		}

		if err := w.pause(ctx, wait); err != nil {
			if errors.Is(err, errStopped) {
				log.Info("Notification worker stopping")
				return nil
			}
			log.Info("Notification worker stopping due to context cancellation")
			return err
		}
	}
}

// ProcessNext claims and delivers one pending job. processed is false when
// the queue was empty.
func (w *NotificationWorker) ProcessNext(ctx context.Context) (processed bool, err error) {
	job, err := w.jobRepo.ClaimNextPending(ctx, w.WorkerID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	log := logger.WithComponent("notification_worker").WithFields(logrus.Fields{
		"worker_id": w.WorkerID,
		"job_id":    job.ID,
		"job_type":  job.JobType,
		"attempt":   job.Attempts,
	})

	if sendErr := w.deliver(job); sendErr != nil {
		job.MarkFailed(sendErr.Error(), w.maxAttempts)
		result := "retry"
		if job.IsFailed() {
			result = "failed"
		}
		metrics.IncNotification(string(job.JobType), result)
		log.WithError(sendErr).WithField("result", result).Warn("Notification delivery failed")
	} else {
		job.MarkCompleted()
		metrics.IncNotification(string(job.JobType), "sent")
		log.Info("Notification delivered")
	}

	if err := w.jobRepo.Update(ctx, job); err != nil {
		return true, fmt.Errorf("error updating job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *NotificationWorker) deliver(job *models.Job) error {
	payload, err := job.EmailPayload()
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if payload.To == "" {
		return errors.New("payload has no recipient")
	}
	return w.sender.Send(payload.To, payload.Subject, payload.Body)
}

// pause waits d, returning early with an error when the worker is stopped
// or ctx is done.
func (w *NotificationWorker) pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.StopChan:
		return errStopped
	default:
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.StopChan:
		return errStopped
	case <-timer.C:
		return nil
	}
}
