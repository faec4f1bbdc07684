package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/ports"
)

// ListRepositoryImpl implements the ListRepository interface
type ListRepositoryImpl struct {
	q sqlx.ExtContext
}

// NewListRepository creates a list repository bound to q
func NewListRepository(q sqlx.ExtContext) ports.ListRepository {
	return &ListRepositoryImpl{q: q}
}

func (r *ListRepositoryImpl) Create(ctx context.Context, list *entities.TodoList) error {
	query := `
		INSERT INTO todo_lists (title, user_id, created_at)
		VALUES (?, ?, ?)
		RETURNING id`

	if list.CreatedAt.IsZero() {
		list.CreatedAt = now()
	}

	err := r.q.QueryRowxContext(ctx, r.q.Rebind(query),
		list.Title, list.UserID, list.CreatedAt,
	).Scan(&list.ID)
	if err != nil {
		return entities.StoreError("create list", err)
	}

	return nil
}

func (r *ListRepositoryImpl) GetByID(ctx context.Context, userID, id int64) (*entities.TodoList, error) {
	query := `
		SELECT id, title, user_id, created_at
		FROM todo_lists
		WHERE id = ? AND user_id = ?`

	var list entities.TodoList
	err := sqlx.GetContext(ctx, r.q, &list, r.q.Rebind(query), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrListNotFound
		}
		return nil, entities.StoreError("get list", err)
	}

	return &list, nil
}

func (r *ListRepositoryImpl) UpdateTitle(ctx context.Context, userID, id int64, title string) error {
	query := `UPDATE todo_lists SET title = ? WHERE id = ? AND user_id = ?`

	result, err := r.q.ExecContext(ctx, r.q.Rebind(query), title, id, userID)
	if err != nil {
		return entities.StoreError("update list", err)
	}

	return expectRows(result, 1, entities.ErrListNotFound)
}

func (r *ListRepositoryImpl) Delete(ctx context.Context, userID, id int64) error {
	query := `DELETE FROM todo_lists WHERE id = ? AND user_id = ?`

	result, err := r.q.ExecContext(ctx, r.q.Rebind(query), id, userID)
	if err != nil {
		return entities.StoreError("delete list", err)
	}

	return expectRows(result, 1, entities.ErrListNotFound)
}

func (r *ListRepositoryImpl) ListByUser(ctx context.Context, userID int64) ([]*entities.TodoList, error) {
	query := `
		SELECT id, title, user_id, created_at
		FROM todo_lists
		WHERE user_id = ?
		ORDER BY id`

	lists := []*entities.TodoList{}
	if err := sqlx.SelectContext(ctx, r.q, &lists, r.q.Rebind(query), userID); err != nil {
		return nil, entities.StoreError("list lists", err)
	}

	return lists, nil
}

// expectRows maps a zero-row write to notFound
func expectRows(result sql.Result, want int64, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return entities.StoreError("get rows affected", err)
	}

	if rowsAffected == 0 {
		return notFound
	}
	if rowsAffected != want {
		return entities.StoreError("write", errors.New("unexpected number of rows affected"))
	}

	return nil
}
