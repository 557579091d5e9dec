package handlers

import (
	"net/http"

	"github.com/fablab/fablab-registration/internal/middleware"
	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/services"
	"github.com/gin-gonic/gin"
)

type SectionAvailabilityHandler struct {
	sectionService *services.SectionAvailabilityService
}

func NewSectionAvailabilityHandler(sectionService *services.SectionAvailabilityService) *SectionAvailabilityHandler {
	return &SectionAvailabilityHandler{
		sectionService: sectionService,
	}
}

type sectionStatusResponse struct {
	Section     models.Section `json:"section"`
	SectionAr   string         `json:"sectionAr"`
	IsAvailable bool           `json:"isAvailable"`
	ReasonEn    string         `json:"reasonEn,omitempty"`
	ReasonAr    string         `json:"reasonAr,omitempty"`
	StartDate   string         `json:"startDate,omitempty"`
	EndDate     string         `json:"endDate,omitempty"`
}

// GetStatus reports today's availability of every section
func (h *SectionAvailabilityHandler) GetStatus(c *gin.Context) {
	statuses, err := h.sectionService.GetStatusForAllSections(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]sectionStatusResponse, 0, len(statuses))
	for _, status := range statuses {
		item := sectionStatusResponse{
			Section:     status.Section,
			SectionAr:   status.Section.NameAr(),
			IsAvailable: status.IsAvailable,
		}
		if d := status.ActiveDeactivation; d != nil {
			item.ReasonEn = d.ReasonEn
			item.ReasonAr = d.ReasonAr
			item.StartDate = d.StartDate
			item.EndDate = d.EndDate
		}
		response = append(response, item)
	}

	c.JSON(http.StatusOK, response)
}

// Deactivate closes a section for a date range
func (h *SectionAvailabilityHandler) Deactivate(c *gin.Context) {
	var input services.DeactivateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "INVALID_BODY", "Request body is not valid JSON", "صيغة الطلب غير صحيحة")
		return
	}

	record, err := h.sectionService.Deactivate(c.Request.Context(), input, middleware.AdminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// ListRecords lists deactivation records, optionally by ?section= and
// ?includeInactive=true
func (h *SectionAvailabilityHandler) ListRecords(c *gin.Context) {
	section := models.Section(c.Query("section"))
	includeInactive := c.Query("includeInactive") == "true"

	records, err := h.sectionService.List(c.Request.Context(), section, includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": nonNil(records)})
}

// Reactivate ends a deactivation early
func (h *SectionAvailabilityHandler) Reactivate(c *gin.Context) {
	record, err := h.sectionService.Reactivate(c.Request.Context(), c.Param("id"), middleware.AdminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
