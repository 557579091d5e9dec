package handlers

import (
	"net/http"

	"github.com/fablab/fablab-registration/internal/middleware"
	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/internal/services"
	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// Create adds an employee task
func (h *TaskHandler) Create(c *gin.Context) {
	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "INVALID_BODY", "Request body is not valid JSON", "صيغة الطلب غير صحيحة")
		return
	}

	result, err := h.taskService.Create(c.Request.Context(), input, middleware.AdminID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List returns tasks filtered by ?section=, ?status=, ?date=, ?assignedTo=
func (h *TaskHandler) List(c *gin.Context) {
	filter := repositories.TaskFilter{
		Section:    models.Section(c.Query("section")),
		Status:     models.TaskStatus(c.Query("status")),
		Date:       c.Query("date"),
		AssignedTo: c.Query("assignedTo"),
	}

	tasks, err := h.taskService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": nonNil(tasks)})
}

// Update replaces a task's editable fields
func (h *TaskHandler) Update(c *gin.Context) {
	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "INVALID_BODY", "Request body is not valid JSON", "صيغة الطلب غير صحيحة")
		return
	}

	result, err := h.taskService.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type updateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status"`
}

// UpdateStatus moves a task through its lifecycle
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req updateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "Request body is not valid JSON", "صيغة الطلب غير صحيحة")
		return
	}

	task, err := h.taskService.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}
