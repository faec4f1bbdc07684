package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/ports"
)

const taskColumns = `id, title, description, completed, list_id, parent_id, user_id, created_at, is_expanded`

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	q sqlx.ExtContext
}

// NewTaskRepository creates a task repository bound to q
func NewTaskRepository(q sqlx.ExtContext) ports.TaskRepository {
	return &TaskRepositoryImpl{q: q}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (title, description, completed, list_id, parent_id, user_id, created_at, is_expanded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	if task.CreatedAt.IsZero() {
		task.CreatedAt = now()
	}

	err := r.q.QueryRowxContext(ctx, r.q.Rebind(query),
		task.Title, task.Description, task.Completed, task.ListID,
		task.ParentID, task.UserID, task.CreatedAt, task.IsExpanded,
	).Scan(&task.ID)
	if err != nil {
		return entities.StoreError("create task", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, userID, id int64) (*entities.Task, error) {
	return r.get(ctx, userID, id, false)
}

func (r *TaskRepositoryImpl) GetByIDForUpdate(ctx context.Context, userID, id int64) (*entities.Task, error) {
	return r.get(ctx, userID, id, true)
}

func (r *TaskRepositoryImpl) get(ctx context.Context, userID, id int64, lock bool) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	// SQLite has no row locks; its single writer already serializes us
	if lock && r.q.DriverName() == "postgres" {
		query += ` FOR UPDATE`
	}

	var task entities.Task
	err := sqlx.GetContext(ctx, r.q, &task, r.q.Rebind(query), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, entities.StoreError("get task", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	query := `
		UPDATE tasks
		SET title = ?, description = ?, completed = ?, is_expanded = ?, list_id = ?
		WHERE id = ? AND user_id = ?`

	result, err := r.q.ExecContext(ctx, r.q.Rebind(query),
		task.Title, task.Description, task.Completed, task.IsExpanded, task.ListID,
		task.ID, task.UserID,
	)
	if err != nil {
		return entities.StoreError("update task", err)
	}

	return expectRows(result, 1, entities.ErrTaskNotFound)
}

func (r *TaskRepositoryImpl) SetListID(ctx context.Context, userID int64, ids []int64, listID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`UPDATE tasks SET list_id = ? WHERE user_id = ? AND id IN (?)`, listID, userID, ids)
	if err != nil {
		return 0, entities.StoreError("build list reassignment", err)
	}

	result, err := r.q.ExecContext(ctx, r.q.Rebind(query), args...)
	if err != nil {
		return 0, entities.StoreError("reassign list", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, entities.StoreError("get rows affected", err)
	}

	return rowsAffected, nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, userID, id int64) error {
	query := `DELETE FROM tasks WHERE id = ? AND user_id = ?`

	result, err := r.q.ExecContext(ctx, r.q.Rebind(query), id, userID)
	if err != nil {
		return entities.StoreError("delete task", err)
	}

	return expectRows(result, 1, entities.ErrTaskNotFound)
}

func (r *TaskRepositoryImpl) ListSubtree(ctx context.Context, userID, rootID int64) ([]*entities.Task, error) {
	// UNION rather than UNION ALL so a corrupt cycle cannot recurse forever
	query := `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM tasks WHERE id = ? AND user_id = ?
			UNION
			SELECT t.id FROM tasks t JOIN subtree s ON t.parent_id = s.id WHERE t.user_id = ?
		)
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id IN (SELECT id FROM subtree)
		ORDER BY id`

	tasks := []*entities.Task{}
	if err := sqlx.SelectContext(ctx, r.q, &tasks, r.q.Rebind(query), rootID, userID, userID); err != nil {
		return nil, entities.StoreError("list subtree", err)
	}

	if len(tasks) == 0 {
		return nil, entities.ErrTaskNotFound
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) ListByList(ctx context.Context, userID, listID int64) ([]*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE list_id = ? AND user_id = ? ORDER BY id`

	tasks := []*entities.Task{}
	if err := sqlx.SelectContext(ctx, r.q, &tasks, r.q.Rebind(query), listID, userID); err != nil {
		return nil, entities.StoreError("list tasks", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) CountByList(ctx context.Context, listID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE list_id = ?`

	var count int64
	if err := sqlx.GetContext(ctx, r.q, &count, r.q.Rebind(query), listID); err != nil {
		return 0, entities.StoreError("count tasks", err)
	}

	return count, nil
}
