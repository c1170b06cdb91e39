package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/query"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// Register mounts the task routes on g
func (h *TaskHandler) Register(g *echo.Group) {
	g.GET("", h.ListTasks)
	g.POST("", h.CreateTask)
	g.GET("/stats", h.GetStats)
	g.GET("/list", h.ListFilteredTasks)
	g.GET("/:id", h.GetTask)
	g.PUT("/:id", h.UpdateTask)
	g.POST("/:id/complete", h.CompleteTask)
	g.POST("/:id/pending", h.MarkTaskPending)
	g.POST("/:id/delete", h.DeleteTask)
	g.POST("/:id/restore", h.RestoreTask)
	g.DELETE("/:id/permanent", h.PermanentlyDeleteTask)
}

// ListTasks godoc
// @Summary List tasks with counts
// @Description List the caller's tasks in a status bucket, narrowed by search, with per-bucket counts
// @Tags tasks
// @Produce json
// @Param status query string false "all, pending, completed or deleted" default(all)
// @Param filter query string false "Alias of status"
// @Param search query string false "Case-insensitive substring of title or description"
// @Success 200 {object} query.Result
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	ownerID := getOwnerIDFromContext(c)

	filter, err := parseStatusParam(c)
	if err != nil {
		return mapError(err)
	}

	result, err := h.taskService.QueryTasks(c.Request().Context(), ownerID, filter, c.QueryParam("search"))
	if err != nil {
		h.logger.Errorw("List tasks failed", "error", err, "owner_id", ownerID)
		return mapError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// ListFilteredTasks godoc
// @Summary List tasks
// @Description List the caller's tasks in a status bucket, narrowed by search. Filtering runs in the store and no counts are returned.
// @Tags tasks
// @Produce json
// @Param status query string false "all, pending, completed or deleted" default(all)
// @Param filter query string false "Alias of status"
// @Param search query string false "Case-insensitive substring of title or description"
// @Success 200 {array} entities.Task
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/list [get]
func (h *TaskHandler) ListFilteredTasks(c echo.Context) error {
	ownerID := getOwnerIDFromContext(c)

	filter, err := parseStatusParam(c)
	if err != nil {
		return mapError(err)
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), ownerID, filter, c.QueryParam("search"))
	if err != nil {
		h.logger.Errorw("List tasks failed", "error", err, "owner_id", ownerID)
		return mapError(err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// parseStatusParam reads the bucket from "status", falling back to "filter"
func parseStatusParam(c echo.Context) (query.Filter, error) {
	raw := c.QueryParam("status")
	if raw == "" {
		raw = c.QueryParam("filter")
	}
	return query.ParseFilter(raw)
}

// CreateTask godoc
// @Summary Create a task
// @Description Create a new pending task
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskInput true "Task data"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	ownerID := getOwnerIDFromContext(c)

	var req ports.CreateTaskInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return mapError(err)
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), ownerID, req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask godoc
// @Summary Get task by ID
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} entities.Task
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), getOwnerIDFromContext(c), id)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary Edit a task
// @Description Edit title, description, priority or due fields. An empty string clears an optional field.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.UpdateTaskInput true "Fields to change"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return err
	}

	var req ports.UpdateTaskInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return mapError(err)
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), getOwnerIDFromContext(c), id, req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// CompleteTask godoc
// @Summary Complete a task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} entities.Task
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(c echo.Context) error {
	return h.transition(c, h.taskService.CompleteTask)
}

// MarkTaskPending godoc
// @Summary Reopen a completed task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} entities.Task
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/pending [post]
func (h *TaskHandler) MarkTaskPending(c echo.Context) error {
	return h.transition(c, h.taskService.MarkTaskPending)
}

// DeleteTask godoc
// @Summary Move a task to the recycle bin
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} entities.Task
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/delete [post]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	return h.transition(c, h.taskService.DeleteTask)
}

// RestoreTask godoc
// @Summary Restore a task from the recycle bin
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} entities.Task
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/restore [post]
func (h *TaskHandler) RestoreTask(c echo.Context) error {
	return h.transition(c, h.taskService.RestoreTask)
}

// PermanentlyDeleteTask godoc
// @Summary Erase a deleted task
// @Description Only tasks in the recycle bin can be erased
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/permanent [delete]
func (h *TaskHandler) PermanentlyDeleteTask(c echo.Context) error {
	id, err := parseTaskID(c)
	if err != nil {
		return err
	}

	if err := h.taskService.PermanentlyDeleteTask(c.Request().Context(), getOwnerIDFromContext(c), id); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetStats godoc
// @Summary Task counts per status
// @Tags tasks
// @Produce json
// @Success 200 {object} entities.TaskStats
// @Failure 502 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/stats [get]
func (h *TaskHandler) GetStats(c echo.Context) error {
	stats, err := h.taskService.GetStats(c.Request().Context(), getOwnerIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, stats)
}

type transitionFunc func(ctx context.Context, ownerID, id uuid.UUID) (*entities.Task, error)

func (h *TaskHandler) transition(c echo.Context, fn transitionFunc) error {
	id, err := parseTaskID(c)
	if err != nil {
		return err
	}

	task, err := fn(c.Request().Context(), getOwnerIDFromContext(c), id)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, task)
}
