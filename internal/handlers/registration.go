package handlers

import (
	"net/http"
	"strconv"

	"github.com/fablab/fablab-registration/internal/middleware"
	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/internal/services"
	"github.com/gin-gonic/gin"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
	availabilityService *services.AvailabilityService
}

func NewRegistrationHandler(registrationService *services.RegistrationService, availabilityService *services.AvailabilityService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		availabilityService: availabilityService,
	}
}

type slotResponse struct {
	Time string `json:"time"`
}

// AvailableSlots lists the free slots of ?section= on ?date=
func (h *RegistrationHandler) AvailableSlots(c *gin.Context) {
	section, date, ok := sectionAndDate(c)
	if !ok {
		return
	}

	available, err := h.availabilityService.GetAvailableSlots(c.Request.Context(), section, date)
	if err != nil {
		respondError(c, err)
		return
	}

	slots := make([]slotResponse, 0, len(available))
	for _, slot := range available {
		slots = append(slots, slotResponse{Time: slot.Time})
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// DaySchedule returns the full grid of ?section= on ?date=, taken slots included
func (h *RegistrationHandler) DaySchedule(c *gin.Context) {
	section, date, ok := sectionAndDate(c)
	if !ok {
		return
	}

	day, err := h.availabilityService.GetDaySchedule(c.Request.Context(), section, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, day)
}

// Create handles a wizard submission
func (h *RegistrationHandler) Create(c *gin.Context) {
	var input services.CreateRegistrationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "INVALID_BODY", "Request body is not valid JSON", "صيغة الطلب غير صحيحة")
		return
	}

	registration, err := h.registrationService.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"registration": registration})
}

// Get returns one registration
func (h *RegistrationHandler) Get(c *gin.Context) {
	registration, err := h.registrationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registration": registration})
}

// List returns registrations filtered by ?section=, ?status=, ?date=, ?limit=
func (h *RegistrationHandler) List(c *gin.Context) {
	filter := repositories.RegistrationFilter{
		Section: models.Section(c.Query("section")),
		Status:  models.RegistrationStatus(c.Query("status")),
		Date:    c.Query("date"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			badRequest(c, "INVALID_LIMIT", "limit must be a positive number", "الحد يجب أن يكون رقماً موجباً")
			return
		}
		filter.Limit = n
	}

	registrations, err := h.registrationService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registrations": nonNil(registrations)})
}

type updateStatusRequest struct {
	Status models.RegistrationStatus `json:"status"`
}

// UpdateStatus applies an admin decision
func (h *RegistrationHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "Request body is not valid JSON", "صيغة الطلب غير صحيحة")
		return
	}

	registration, err := h.registrationService.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, middleware.AdminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registration": registration})
}

// Reschedule moves a registration to a new date-shape
func (h *RegistrationHandler) Reschedule(c *gin.Context) {
	var input services.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "INVALID_BODY", "Request body is not valid JSON", "صيغة الطلب غير صحيحة")
		return
	}

	registration, err := h.registrationService.Reschedule(c.Request.Context(), c.Param("id"), input, middleware.AdminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registration": registration})
}

// sectionAndDate reads the required ?section= and ?date= query parameters,
// writing a 400 when either is missing.
func sectionAndDate(c *gin.Context) (models.Section, string, bool) {
	section := c.Query("section")
	date := c.Query("date")
	if section == "" {
		badRequest(c, "SECTION_REQUIRED", "section is required", "القسم مطلوب")
		return "", "", false
	}
	if date == "" {
		badRequest(c, "DATE_REQUIRED", "date is required", "التاريخ مطلوب")
		return "", "", false
	}
	return models.Section(section), date, true
}
