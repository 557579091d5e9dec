package handlers

import (
	"net/http"

	"github.com/fablab/fablab-registration/internal/middleware"
	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/services"
	"github.com/gin-gonic/gin"
)

type WorkingHoursHandler struct {
	workingHoursService *services.WorkingHoursService
	cal                 services.Calendar
}

func NewWorkingHoursHandler(workingHoursService *services.WorkingHoursService, cal services.Calendar) *WorkingHoursHandler {
	return &WorkingHoursHandler{
		workingHoursService: workingHoursService,
		cal:                 cal,
	}
}

// GetWorkingHours returns the hours in force on ?date= (default today)
func (h *WorkingHoursHandler) GetWorkingHours(c *gin.Context) {
	date := c.DefaultQuery("date", h.cal.Today())

	hours, err := h.workingHoursService.ResolveWorkingHours(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, hours)
}

// UpdateWorkingHours replaces the default working hours
func (h *WorkingHoursHandler) UpdateWorkingHours(c *gin.Context) {
	var hours models.WorkingHours
	if err := c.ShouldBindJSON(&hours); err != nil {
		badRequest(c, "INVALID_BODY", "Request body is not valid JSON", "صيغة الطلب غير صحيحة")
		return
	}

	if err := h.workingHoursService.UpdateDefaults(c.Request.Context(), &hours); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, hours)
}

// CreateOverride adds a temporary working-hours window
func (h *WorkingHoursHandler) CreateOverride(c *gin.Context) {
	var input services.CreateOverrideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "INVALID_BODY", "Request body is not valid JSON", "صيغة الطلب غير صحيحة")
		return
	}

	override, err := h.workingHoursService.CreateOverride(c.Request.Context(), input, middleware.AdminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, override)
}

// ListOverrides lists overrides; ?includeInactive=true adds soft-deleted ones
func (h *WorkingHoursHandler) ListOverrides(c *gin.Context) {
	includeInactive := c.Query("includeInactive") == "true"

	overrides, err := h.workingHoursService.ListOverrides(c.Request.Context(), includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"overrides": nonNil(overrides)})
}

// DeleteOverride soft-deletes an override
func (h *WorkingHoursHandler) DeleteOverride(c *gin.Context) {
	if err := h.workingHoursService.DeactivateOverride(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
