package handlers

import (
	"net/http"

	"github.com/fablab/fablab-registration/internal/services"
	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/gin-gonic/gin"
)

var statusByKind = map[services.ErrorKind]int{
	services.KindValidation: http.StatusBadRequest,
	services.KindConflict:   http.StatusConflict,
	services.KindNotFound:   http.StatusNotFound,
}

// respondError translates a service error into the bilingual JSON body.
// Unexpected errors are logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	appErr, ok := services.AsAppError(err)
	if !ok || appErr.Kind == services.KindInternal {
		logger.WithComponent("http").WithError(err).WithField("path", c.Request.URL.Path).
			Error("Unhandled error")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     http.StatusText(http.StatusInternalServerError),
			"code":      "INTERNAL_ERROR",
			"message":   "An unexpected error occurred",
			"messageAr": "حدث خطأ غير متوقع",
		})
		return
	}

	status := statusByKind[appErr.Kind]
	body := gin.H{
		"error":     http.StatusText(status),
		"code":      appErr.Code,
		"message":   appErr.Message,
		"messageAr": appErr.MessageAr,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
		// section and date are also lifted to the top level.
		for _, key := range []string{"section", "date"} {
			if v, ok := appErr.Details[key]; ok {
				body[key] = v
			}
		}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, code, message, messageAr string) {
	respondError(c, services.NewValidationError(code, message, messageAr))
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
