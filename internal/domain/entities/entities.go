package entities

import (
	"strings"
	"time"
)

// User represents an account that owns lists
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TodoList represents a named list of tasks owned by one user
type TodoList struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Tasks     []*Task   `json:"tasks" db:"-"`
}

// Task represents a node in a list's task forest. A nil ParentID marks a
// top-level task.
type Task struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	Completed   bool      `json:"completed" db:"completed"`
	ListID      int64     `json:"list_id" db:"list_id"`
	ParentID    *int64    `json:"parent_id" db:"parent_id"`
	UserID      int64     `json:"-" db:"user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	IsExpanded  bool      `json:"is_expanded" db:"is_expanded"`
	Subtasks    []*Task   `json:"subtasks,omitempty" db:"-"`
}

// TaskPatch carries a partial task update; nil fields are left untouched.
// An empty Description clears the stored one.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	IsExpanded  *bool
	ListID      *int64
}

// IsTopLevel reports whether the task hangs directly off its list
func (t *Task) IsTopLevel() bool {
	return t.ParentID == nil
}

// CompletionFraction returns the share of direct subtasks that are
// completed. A task without subtasks reports 0.
func CompletionFraction(t *Task) float64 {
	if t == nil || len(t.Subtasks) == 0 {
		return 0
	}

	completed := 0
	for _, sub := range t.Subtasks {
		if sub.Completed {
			completed++
		}
	}

	return float64(completed) / float64(len(t.Subtasks))
}

// NormalizeTitle trims a title and rejects an empty result
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	return title, nil
}

// ApplyTo copies the present fields of the patch onto task, leaving list
// reassignment to the caller.
func (p TaskPatch) ApplyTo(task *Task) error {
	if p.Title != nil {
		title, err := NormalizeTitle(*p.Title)
		if err != nil {
			return err
		}
		task.Title = title
	}
	if p.Description != nil {
		task.Description = p.Description
		if *p.Description == "" {
			task.Description = nil
		}
	}
	if p.Completed != nil {
		task.Completed = *p.Completed
	}
	if p.IsExpanded != nil {
		task.IsExpanded = *p.IsExpanded
	}
	return nil
}
