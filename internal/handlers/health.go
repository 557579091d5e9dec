package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	db      *sql.DB
	jobRepo *repositories.JobRepository
	workers func() map[string]bool
}

// NewHealthHandler builds the health endpoint. workers may be nil.
func NewHealthHandler(db *sql.DB, jobRepo *repositories.JobRepository, workers func() map[string]bool) *HealthHandler {
	return &HealthHandler{
		db:      db,
		jobRepo: jobRepo,
		workers: workers,
	}
}

// Health reports database reachability, outbox backlog and worker state
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "unreachable"})
		return
	}

	body := gin.H{"status": "ok", "database": "ok"}
	if pending, err := h.jobRepo.CountByStatus(ctx, models.JobStatusPending); err == nil {
		body["pendingNotifications"] = pending
	}
	if failed, err := h.jobRepo.CountByStatus(ctx, models.JobStatusFailed); err == nil {
		body["failedNotifications"] = failed
	}
	if h.workers != nil {
		body["workers"] = h.workers()
	}
	c.JSON(http.StatusOK, body)
}
