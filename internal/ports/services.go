package ports

import (
	"context"
	"time"

	"github.com/taskmaster/todolists/internal/domain/entities"
)

// Authenticator resolves a raw bearer token to the caller's identity
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*Claims, error)
}

// HierarchyService owns the task tree operations
type HierarchyService interface {
	CreateTopLevelTask(ctx context.Context, userID, listID int64, req CreateTaskRequest) (*entities.Task, error)
	CreateSubtask(ctx context.Context, userID, parentID int64, req CreateTaskRequest) (*entities.Task, error)
	GetTask(ctx context.Context, userID, taskID int64, withSubtasks bool) (*entities.Task, error)
	UpdateTask(ctx context.Context, userID, taskID int64, patch entities.TaskPatch) (*entities.Task, error)
	ToggleExpanded(ctx context.Context, userID, taskID int64) (*entities.Task, error)
	SetCompletion(ctx context.Context, userID, taskID int64, completed bool) (*entities.Task, error)
	MoveTask(ctx context.Context, userID, taskID, targetListID int64) (*entities.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) (int, error)
}

// ListService owns list CRUD
type ListService interface {
	ListLists(ctx context.Context, userID int64) ([]*entities.TodoList, error)
	GetListTasks(ctx context.Context, userID, listID int64) ([]*entities.Task, error)
	CreateList(ctx context.Context, userID int64, req CreateListRequest) (*entities.TodoList, error)
	UpdateList(ctx context.Context, userID, listID int64, req UpdateListRequest) (*entities.TodoList, error)
	DeleteList(ctx context.Context, userID, listID int64) (int, error)
}

// CascadeObserver receives the size of every cascading operation
type CascadeObserver interface {
	ObserveCascade(operation string, size int)
}

// Claims is the verified identity carried by a token
type Claims struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

// SignupRequest represents a signup payload
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents a login payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserSummary is the public view of a user
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresIn int64       `json:"expires_in"`
	User      UserSummary `json:"user"`
}

// CreateListRequest represents a list creation payload
type CreateListRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}

// UpdateListRequest represents a partial list update
type UpdateListRequest struct {
	Title *string `json:"title" validate:"omitempty,max=100"`
}

// CreateTaskRequest represents a task or subtask creation payload
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
}

// UpdateTaskRequest represents a partial task update. Absent and null
// fields are left unchanged; send "description": "" to clear it.
type UpdateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	IsExpanded  *bool   `json:"is_expanded"`
	ListID      *int64  `json:"list_id" validate:"omitempty,gt=0"`
}

// Patch converts the request into a domain patch
func (r UpdateTaskRequest) Patch() entities.TaskPatch {
	return entities.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		IsExpanded:  r.IsExpanded,
		ListID:      r.ListID,
	}
}

// SetCompletionRequest represents a completion toggle payload
type SetCompletionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// MoveTaskRequest represents a move payload
type MoveTaskRequest struct {
	ListID int64 `json:"list_id" validate:"required,gt=0"`
}
