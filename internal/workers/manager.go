package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/fablab/fablab-registration/internal/notifications"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/pkg/logger"
)

// WorkerManager manages the notification worker pool
type WorkerManager struct {
	workers     []Worker
	jobRepo     *repositories.JobRepository
	sender      notifications.Sender
	count       int
	maxAttempts int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(jobRepo *repositories.JobRepository, sender notifications.Sender, count, maxAttempts int) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	if count <= 0 {
		count = 1
	}
	return &WorkerManager{
		workers:     make([]Worker, 0, count),
		jobRepo:     jobRepo,
		sender:      sender,
		count:       count,
		maxAttempts: maxAttempts,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// StartAll starts the configured number of notification workers
func (wm *WorkerManager) StartAll() error {
	for i := 0; i < wm.count; i++ {
		worker := NewNotificationWorker(fmt.Sprintf("notification-%d", i+1), wm.jobRepo, wm.sender, wm.maxAttempts)
		wm.workers = append(wm.workers, worker)
		wm.startWorker(worker)
	}

	logger.WithComponent("workers").WithField("count", len(wm.workers)).Info("Started notification workers")
	return nil
}

// StopAll gracefully stops all workers
func (wm *WorkerManager) StopAll() error {
	log := logger.WithComponent("workers")
	log.Info("Stopping all workers...")

	wm.cancel()
	for _, worker := range wm.workers {
		if err := worker.Stop(); err != nil {
			log.WithError(err).WithField("worker_id", worker.GetWorkerID()).Error("Error stopping worker")
		}
	}
	wm.wg.Wait()

	log.Info("All workers stopped")
	return nil
}

// startWorker starts a single worker in a goroutine
func (wm *WorkerManager) startWorker(worker Worker) {
	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		if err := worker.Start(wm.ctx); err != nil && err != context.Canceled {
			logger.WithComponent("workers").WithError(err).WithField("worker_id", worker.GetWorkerID()).
				Error("Worker stopped with error")
		}
	}()
}

// GetWorkerStatus returns the status of all workers
func (wm *WorkerManager) GetWorkerStatus() map[string]bool {
	status := make(map[string]bool, len(wm.workers))
	for _, worker := range wm.workers {
		status[worker.GetWorkerID()] = worker.IsRunning()
	}
	return status
}
