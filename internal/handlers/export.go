package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/fablab/fablab-registration/internal/services"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	exportService *services.ScheduleExportService
	cal           services.Calendar
}

func NewExportHandler(exportService *services.ScheduleExportService, cal services.Calendar) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		cal:           cal,
	}
}

// ExportDaySchedule downloads ?date= (default today) as an xlsx workbook
func (h *ExportHandler) ExportDaySchedule(c *gin.Context) {
	date := c.DefaultQuery("date", h.cal.Today())

	var buf bytes.Buffer
	if err := h.exportService.ExportDay(c.Request.Context(), date, &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="fablab-schedule-%s.xlsx"`, date))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
