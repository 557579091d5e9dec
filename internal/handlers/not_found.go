package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type NotFoundHandler struct{}

func NewNotFoundHandler() *NotFoundHandler {
	return &NotFoundHandler{}
}

// NotFound handles 404 errors for non-existent routes
func (h *NotFoundHandler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":         http.StatusText(http.StatusNotFound),
		"code":          "ROUTE_NOT_FOUND",
		"message":       "The requested resource does not exist",
		"messageAr":     "المورد المطلوب غير موجود",
		"requestedPath": c.Request.URL.Path,
	})
}
