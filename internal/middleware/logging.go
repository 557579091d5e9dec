package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader  = "X-Request-ID"
	contextRequestID = "request_id"
)

// RequestLogger tags every request with an id and logs it when done
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(contextRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		entry := logger.WithComponent("http").WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// Recovery turns panics into a generic 500 and logs the stack
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithComponent("http").WithFields(logrus.Fields{
					"request_id": c.GetString(contextRequestID),
					"panic":      r,
					"stack":      string(debug.Stack()),
				}).Error("Panic while handling request")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":     http.StatusText(http.StatusInternalServerError),
					"code":      "INTERNAL_ERROR",
					"message":   "An unexpected error occurred",
					"messageAr": "حدث خطأ غير متوقع",
				})
			}
		}()
		c.Next()
	}
}

// RequestID returns the id assigned by RequestLogger
func RequestID(c *gin.Context) string {
	return c.GetString(contextRequestID)
}
