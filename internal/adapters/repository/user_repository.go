package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/ports"
)

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	q sqlx.ExtContext
}

// NewUserRepository creates a user repository bound to q, which may be the
// connection pool or an open transaction
func NewUserRepository(q sqlx.ExtContext) ports.UserRepository {
	return &UserRepositoryImpl{q: q}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}

	err := r.q.QueryRowxContext(ctx, r.q.Rebind(query),
		user.Username, user.PasswordHash, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrUsernameTaken
		}
		return entities.StoreError("create user", err)
	}

	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?`

	var user entities.User
	err := sqlx.GetContext(ctx, r.q, &user, r.q.Rebind(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, entities.StoreError("get user by id", err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?`

	var user entities.User
	err := sqlx.GetContext(ctx, r.q, &user, r.q.Rebind(query), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, entities.StoreError("get user by username", err)
	}

	return &user, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// isUniqueViolation recognises unique-constraint failures from both drivers
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
