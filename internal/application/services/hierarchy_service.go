package services

import (
	"context"
	"fmt"

	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/ports"
)

// Cascade operation labels reported to the CascadeObserver
const (
	CascadeMove       = "move"
	CascadeDelete     = "delete"
	CascadeDeleteList = "delete_list"
)

// HierarchyService maintains the task forest of every list: creation,
// edits, completion, moves and cascading deletes. Every operation runs in
// one unit of work and every lookup is scoped to the calling user.
type HierarchyService struct {
	store    ports.UnitOfWork
	observer ports.CascadeObserver
	logger   *logger.Logger
}

// NewHierarchyService creates a new hierarchy service. observer may be nil.
func NewHierarchyService(store ports.UnitOfWork, observer ports.CascadeObserver, logger *logger.Logger) *HierarchyService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &HierarchyService{
		store:    store,
		observer: observer,
		logger:   logger.WithComponent("hierarchy"),
	}
}

// CreateTopLevelTask adds a task directly under a list
func (s *HierarchyService) CreateTopLevelTask(ctx context.Context, userID, listID int64, req ports.CreateTaskRequest) (*entities.Task, error) {
	title, err := entities.NormalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}

	task := &entities.Task{
		Title:       title,
		Description: req.Description,
		ListID:      listID,
		UserID:      userID,
		IsExpanded:  true,
	}

	err = s.store.Do(ctx, func(r ports.Repositories) error {
		if _, err := r.Lists.GetByID(ctx, userID, listID); err != nil {
			return err
		}
		return r.Tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Task created", "task_id", task.ID, "list_id", listID, "user_id", userID)

	return task, nil
}

// CreateSubtask adds a task under an existing task; the new task inherits
// its parent's list.
func (s *HierarchyService) CreateSubtask(ctx context.Context, userID, parentID int64, req ports.CreateTaskRequest) (*entities.Task, error) {
	title, err := entities.NormalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}

	var task *entities.Task
	err = s.store.Do(ctx, func(r ports.Repositories) error {
		parent, err := r.Tasks.GetByID(ctx, userID, parentID)
		if err != nil {
			return err
		}

		task = &entities.Task{
			Title:       title,
			Description: req.Description,
			ListID:      parent.ListID,
			ParentID:    &parent.ID,
			UserID:      userID,
			IsExpanded:  true,
		}
		return r.Tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Subtask created", "task_id", task.ID, "parent_id", parentID, "user_id", userID)

	return task, nil
}

// GetTask returns a task, optionally with its full subtree
func (s *HierarchyService) GetTask(ctx context.Context, userID, taskID int64, withSubtasks bool) (*entities.Task, error) {
	var task *entities.Task
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		var err error
		if withSubtasks {
			task, err = loadTree(ctx, r, userID, taskID)
		} else {
			task, err = r.Tasks.GetByID(ctx, userID, taskID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return task, nil
}

// UpdateTask applies a partial update. A list change on a top-level task
// carries its whole subtree along, exactly like MoveTask; a subtask cannot
// leave its parent's list.
func (s *HierarchyService) UpdateTask(ctx context.Context, userID, taskID int64, patch entities.TaskPatch) (*entities.Task, error) {
	var (
		tree  *entities.Task
		moved int
	)

	err := s.store.Do(ctx, func(r ports.Repositories) error {
		task, err := r.Tasks.GetByIDForUpdate(ctx, userID, taskID)
		if err != nil {
			return err
		}

		if err := patch.ApplyTo(task); err != nil {
			return err
		}

		if patch.ListID != nil && *patch.ListID != task.ListID {
			if !task.IsTopLevel() {
				return entities.ErrSubtaskListMismatch
			}
			if moved, err = s.reassignSubtree(ctx, r, userID, task, *patch.ListID); err != nil {
				return err
			}
			task.ListID = *patch.ListID
		}

		if err := r.Tasks.Update(ctx, task); err != nil {
			return err
		}

		tree, err = loadTree(ctx, r, userID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if moved > 0 {
		s.observer.ObserveCascade(CascadeMove, moved)
	}
	s.logger.Infow("Task updated", "task_id", taskID, "user_id", userID, "moved", moved)

	return tree, nil
}

// ToggleExpanded flips the display flag of a single task
func (s *HierarchyService) ToggleExpanded(ctx context.Context, userID, taskID int64) (*entities.Task, error) {
	var tree *entities.Task
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		task, err := r.Tasks.GetByIDForUpdate(ctx, userID, taskID)
		if err != nil {
			return err
		}

		task.IsExpanded = !task.IsExpanded
		if err := r.Tasks.Update(ctx, task); err != nil {
			return err
		}

		tree, err = loadTree(ctx, r, userID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return tree, nil
}

// SetCompletion sets the completed flag of a task. For a subtask the direct
// parent is returned with its full subtree so callers can recompute the
// parent's completion fraction; a top-level task is returned itself.
func (s *HierarchyService) SetCompletion(ctx context.Context, userID, taskID int64, completed bool) (*entities.Task, error) {
	var tree *entities.Task
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		task, err := r.Tasks.GetByIDForUpdate(ctx, userID, taskID)
		if err != nil {
			return err
		}

		task.Completed = completed
		if err := r.Tasks.Update(ctx, task); err != nil {
			return err
		}

		rootID := task.ID
		if task.ParentID != nil {
			rootID = *task.ParentID
		}

		tree, err = loadTree(ctx, r, userID, rootID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Task completion set", "task_id", taskID, "completed", completed, "user_id", userID)

	return tree, nil
}

// MoveTask reassigns a top-level task and every descendant to another list
func (s *HierarchyService) MoveTask(ctx context.Context, userID, taskID, targetListID int64) (*entities.Task, error) {
	var (
		tree  *entities.Task
		moved int
	)

	err := s.store.Do(ctx, func(r ports.Repositories) error {
		task, err := r.Tasks.GetByIDForUpdate(ctx, userID, taskID)
		if err != nil {
			return err
		}

		if !task.IsTopLevel() {
			return entities.ErrOnlyTopLevelMove
		}

		if moved, err = s.reassignSubtree(ctx, r, userID, task, targetListID); err != nil {
			return err
		}

		tree, err = loadTree(ctx, r, userID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.observer.ObserveCascade(CascadeMove, moved)
	s.logger.LogUserAction(userID, "move_task", map[string]interface{}{
		"task_id":     taskID,
		"list_id":     targetListID,
		"tasks_moved": moved,
	})

	return tree, nil
}

// DeleteTask removes a task and its whole subtree, children first, and
// reports how many tasks were removed.
func (s *HierarchyService) DeleteTask(ctx context.Context, userID, taskID int64) (int, error) {
	var deleted int
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		if _, err := r.Tasks.GetByIDForUpdate(ctx, userID, taskID); err != nil {
			return err
		}

		rows, err := r.Tasks.ListSubtree(ctx, userID, taskID)
		if err != nil {
			return err
		}

		deleted, err = deleteSubtree(ctx, r, userID, entities.NewTaskIndex(rows), taskID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.observer.ObserveCascade(CascadeDelete, deleted)
	s.logger.LogUserAction(userID, "delete_task", map[string]interface{}{
		"task_id":       taskID,
		"tasks_deleted": deleted,
	})

	return deleted, nil
}

// reassignSubtree points task and all of its descendants at targetListID
func (s *HierarchyService) reassignSubtree(ctx context.Context, r ports.Repositories, userID int64, task *entities.Task, targetListID int64) (int, error) {
	if _, err := r.Lists.GetByID(ctx, userID, targetListID); err != nil {
		return 0, err
	}

	rows, err := r.Tasks.ListSubtree(ctx, userID, task.ID)
	if err != nil {
		return 0, err
	}

	ids, err := entities.NewTaskIndex(rows).PreOrder(task.ID)
	if err != nil {
		return 0, err
	}

	updated, err := r.Tasks.SetListID(ctx, userID, ids, targetListID)
	if err != nil {
		return 0, err
	}
	if updated != int64(len(ids)) {
		return 0, entities.StoreError("move subtree", fmt.Errorf("reassigned %d of %d tasks", updated, len(ids)))
	}

	return len(ids), nil
}

// deleteSubtree removes rootID and its indexed descendants in post-order
func deleteSubtree(ctx context.Context, r ports.Repositories, userID int64, ix *entities.TaskIndex, rootID int64) (int, error) {
	order, err := ix.PostOrder(rootID)
	if err != nil {
		return 0, err
	}

	for _, id := range order {
		if err := r.Tasks.Delete(ctx, userID, id); err != nil {
			return 0, err
		}
	}

	return len(order), nil
}

// loadTree fetches the subtree rooted at taskID and assembles it
func loadTree(ctx context.Context, r ports.Repositories, userID, taskID int64) (*entities.Task, error) {
	rows, err := r.Tasks.ListSubtree(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	return entities.NewTaskIndex(rows).Tree(taskID)
}

type nopObserver struct{}

func (nopObserver) ObserveCascade(string, int) {}
