package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/ports"
)

// ListHandler handles to-do list requests
type ListHandler struct {
	listService      ports.ListService
	hierarchyService ports.HierarchyService
	logger           *logger.Logger
}

// NewListHandler creates a new list handler
func NewListHandler(listService ports.ListService, hierarchyService ports.HierarchyService, logger *logger.Logger) *ListHandler {
	return &ListHandler{
		listService:      listService,
		hierarchyService: hierarchyService,
		logger:           logger,
	}
}

// ListLists godoc
// @Summary List the caller's lists
// @Description Every list with its top-level tasks and their nested subtasks
// @Tags lists
// @Produce json
// @Success 200 {array} entities.TodoList
// @Security BearerAuth
// @Router /lists [get]
func (h *ListHandler) ListLists(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	lists, err := h.listService.ListLists(c.Request().Context(), userID)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, lists)
}

// CreateList godoc
// @Summary Create a list
// @Tags lists
// @Accept json
// @Produce json
// @Param request body ports.CreateListRequest true "List data"
// @Success 201 {object} entities.TodoList
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /lists [post]
func (h *ListHandler) CreateList(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req ports.CreateListRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	list, err := h.listService.CreateList(c.Request().Context(), userID, req)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, list)
}

// UpdateList godoc
// @Summary Rename a list
// @Tags lists
// @Accept json
// @Produce json
// @Param id path int true "List ID"
// @Param request body ports.UpdateListRequest true "List data"
// @Success 200 {object} entities.TodoList
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /lists/{id} [put]
func (h *ListHandler) UpdateList(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	listID, err := parseID(c, "id", "list")
	if err != nil {
		return err
	}

	var req ports.UpdateListRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	list, err := h.listService.UpdateList(c.Request().Context(), userID, listID, req)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, list)
}

// DeleteList godoc
// @Summary Delete a list and all of its tasks
// @Tags lists
// @Produce json
// @Param id path int true "List ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /lists/{id} [delete]
func (h *ListHandler) DeleteList(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	listID, err := parseID(c, "id", "list")
	if err != nil {
		return err
	}

	if _, err := h.listService.DeleteList(c.Request().Context(), userID, listID); err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "List deleted successfully"})
}

// GetListTasks godoc
// @Summary Task trees of a list
// @Tags lists
// @Produce json
// @Param id path int true "List ID"
// @Success 200 {array} entities.Task
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /lists/{id}/tasks [get]
func (h *ListHandler) GetListTasks(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	listID, err := parseID(c, "id", "list")
	if err != nil {
		return err
	}

	tasks, err := h.listService.GetListTasks(c.Request().Context(), userID, listID)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// CreateTask godoc
// @Summary Add a top-level task to a list
// @Tags lists
// @Accept json
// @Produce json
// @Param id path int true "List ID"
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /lists/{id}/tasks [post]
func (h *ListHandler) CreateTask(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	listID, err := parseID(c, "id", "list")
	if err != nil {
		return err
	}

	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.hierarchyService.CreateTopLevelTask(c.Request().Context(), userID, listID, req)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, task)
}
