package ports

import (
	"context"
	"time"

	"github.com/taskmaster/todolists/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id int64) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
}

// ListRepository defines the interface for list data operations. Every
// lookup is scoped to the owning user.
type ListRepository interface {
	Create(ctx context.Context, list *entities.TodoList) error
	GetByID(ctx context.Context, userID, id int64) (*entities.TodoList, error)
	UpdateTitle(ctx context.Context, userID, id int64, title string) error
	Delete(ctx context.Context, userID, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]*entities.TodoList, error)
}

// TaskRepository defines the interface for task data operations. Every
// lookup is scoped to the owning user; rows are returned in insertion order.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, userID, id int64) (*entities.Task, error)
	// GetByIDForUpdate additionally takes a row lock where the store supports it
	GetByIDForUpdate(ctx context.Context, userID, id int64) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	// SetListID reassigns exactly the given rows and reports how many changed
	SetListID(ctx context.Context, userID int64, ids []int64, listID int64) (int64, error)
	Delete(ctx context.Context, userID, id int64) error
	// ListSubtree returns the task at rootID and all of its descendants
	ListSubtree(ctx context.Context, userID, rootID int64) ([]*entities.Task, error)
	ListByList(ctx context.Context, userID, listID int64) ([]*entities.Task, error)
	CountByList(ctx context.Context, listID int64) (int64, error)
}

// Repositories is the set of repositories bound to one unit of work
type Repositories struct {
	Users UserRepository
	Lists ListRepository
	Tasks TaskRepository
}

// UnitOfWork runs fn inside a single store transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

// TokenDenylist tracks revoked token ids until they would have expired
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
