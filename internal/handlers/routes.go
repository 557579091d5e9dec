package handlers

import (
	"github.com/fablab/fablab-registration/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Registration        *RegistrationHandler
	SectionAvailability *SectionAvailabilityHandler
	WorkingHours        *WorkingHoursHandler
	Task                *TaskHandler
	Export              *ExportHandler
	User                *UserHandler
	Health              *HealthHandler
	NotFound            *NotFoundHandler
}

// NewRouter builds the gin engine with public and staff routes. Staff
// routes require a bearer token signed with jwtSecret.
func NewRouter(h *Handlers, jwtSecret string) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(), middleware.Recovery())
	router.NoRoute(h.NotFound.NotFound)

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := middleware.AdminRequired(jwtSecret)

	registration := router.Group("/registration")
	{
		registration.GET("/available-slots", h.Registration.AvailableSlots)
		registration.GET("/day-schedule", h.Registration.DaySchedule)
		registration.POST("/create", h.Registration.Create)

		staff := registration.Group("", admin...)
		staff.GET("", h.Registration.List)
		staff.GET("/:id", h.Registration.Get)
		staff.PATCH("/:id/status", h.Registration.UpdateStatus)
		staff.PATCH("/:id/schedule", h.Registration.Reschedule)
	}

	sections := router.Group("/sections/availability")
	{
		sections.GET("", h.SectionAvailability.GetStatus)

		staff := sections.Group("", admin...)
		staff.POST("", h.SectionAvailability.Deactivate)
		staff.GET("/records", h.SectionAvailability.ListRecords)
		staff.PATCH("/:id/reactivate", h.SectionAvailability.Reactivate)
	}

	settings := router.Group("/settings")
	{
		settings.GET("/working-hours", h.WorkingHours.GetWorkingHours)

		staff := settings.Group("", admin...)
		staff.PUT("/working-hours", h.WorkingHours.UpdateWorkingHours)
		staff.POST("/working-hours-overrides", h.WorkingHours.CreateOverride)
		staff.GET("/working-hours-overrides", h.WorkingHours.ListOverrides)
		staff.DELETE("/working-hours-overrides/:id", h.WorkingHours.DeleteOverride)
	}

	tasks := router.Group("/tasks", admin...)
	{
		tasks.POST("", h.Task.Create)
		tasks.GET("", h.Task.List)
		tasks.PATCH("/:id", h.Task.Update)
		tasks.PATCH("/:id/status", h.Task.UpdateStatus)
	}

	users := router.Group("/users", admin...)
	{
		users.GET("/lookup", h.User.LookupUser)
		users.GET("/:id", h.User.GetUser)
	}

	adminGroup := router.Group("/admin", admin...)
	{
		adminGroup.GET("/schedule/export", h.Export.ExportDaySchedule)
	}

	return router
}
