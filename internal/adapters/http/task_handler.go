package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/ports"
)

// TaskHandler handles task and subtask requests
type TaskHandler struct {
	hierarchyService ports.HierarchyService
	logger           *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(hierarchyService ports.HierarchyService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		hierarchyService: hierarchyService,
		logger:           logger,
	}
}

// GetTask godoc
// @Summary Get a task
// @Description Returns the task with its nested subtasks unless subtasks=false
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Param subtasks query bool false "Include subtasks" default(true)
// @Success 200 {object} entities.Task
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	taskID, err := parseID(c, "id", "task")
	if err != nil {
		return err
	}

	withSubtasks := true
	if raw := c.QueryParam("subtasks"); raw != "" {
		if withSubtasks, err = strconv.ParseBool(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid subtasks parameter")
		}
	}

	task, err := h.hierarchyService.GetTask(c.Request().Context(), userID, taskID, withSubtasks)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary Update a task
// @Description Applies the fields present in the body. A list_id change on a top-level task moves its whole subtree.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Task fields"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	taskID, err := parseID(c, "id", "task")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.hierarchyService.UpdateTask(c.Request().Context(), userID, taskID, req.Patch())
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task and its subtasks
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} DeleteResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	taskID, err := parseID(c, "id", "task")
	if err != nil {
		return err
	}

	deleted, err := h.hierarchyService.DeleteTask(c.Request().Context(), userID, taskID)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, DeleteResponse{Message: "Task deleted successfully", Deleted: deleted})
}

// ToggleExpanded godoc
// @Summary Flip a task's expanded flag
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} entities.Task
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/toggle [put]
func (h *TaskHandler) ToggleExpanded(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	taskID, err := parseID(c, "id", "task")
	if err != nil {
		return err
	}

	task, err := h.hierarchyService.ToggleExpanded(c.Request().Context(), userID, taskID)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// CreateSubtask godoc
// @Summary Add a subtask
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Parent task ID"
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/subtasks [post]
func (h *TaskHandler) CreateSubtask(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	parentID, err := parseID(c, "id", "task")
	if err != nil {
		return err
	}

	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.hierarchyService.CreateSubtask(c.Request().Context(), userID, parentID, req)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// SetCompletion godoc
// @Summary Mark a task completed or not
// @Description For a subtask the parent task is returned with all of its subtasks
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.SetCompletionRequest true "Completion flag"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/complete [put]
func (h *TaskHandler) SetCompletion(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	taskID, err := parseID(c, "id", "task")
	if err != nil {
		return err
	}

	var req ports.SetCompletionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.hierarchyService.SetCompletion(c.Request().Context(), userID, taskID, *req.Completed)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// MoveTask godoc
// @Summary Move a top-level task to another list
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.MoveTaskRequest true "Target list"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/move/{id} [put]
func (h *TaskHandler) MoveTask(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	taskID, err := parseID(c, "id", "task")
	if err != nil {
		return err
	}

	var req ports.MoveTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	return h.move(c, userID, taskID, req.ListID)
}

// MoveTaskTo is MoveTask with the target list in the path
func (h *TaskHandler) MoveTaskTo(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	taskID, err := parseID(c, "id", "task")
	if err != nil {
		return err
	}

	listID, err := parseID(c, "list_id", "list")
	if err != nil {
		return err
	}

	return h.move(c, userID, taskID, listID)
}

func (h *TaskHandler) move(c echo.Context, userID, taskID, listID int64) error {
	task, err := h.hierarchyService.MoveTask(c.Request().Context(), userID, taskID, listID)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}
