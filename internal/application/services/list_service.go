package services

import (
	"context"
	"fmt"

	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/ports"
)

// ListService handles to-do list operations
type ListService struct {
	store    ports.UnitOfWork
	observer ports.CascadeObserver
	logger   *logger.Logger
}

// NewListService creates a new list service. observer may be nil.
func NewListService(store ports.UnitOfWork, observer ports.CascadeObserver, logger *logger.Logger) *ListService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ListService{
		store:    store,
		observer: observer,
		logger:   logger.WithComponent("lists"),
	}
}

// ListLists returns every list owned by the user with its task forest
func (s *ListService) ListLists(ctx context.Context, userID int64) ([]*entities.TodoList, error) {
	var lists []*entities.TodoList
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		var err error
		lists, err = r.Lists.ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		for _, list := range lists {
			if list.Tasks, err = loadForest(ctx, r, userID, list.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lists, nil
}

// GetListTasks returns the top-level tasks of a list with their subtrees
func (s *ListService) GetListTasks(ctx context.Context, userID, listID int64) ([]*entities.Task, error) {
	var tasks []*entities.Task
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		if _, err := r.Lists.GetByID(ctx, userID, listID); err != nil {
			return err
		}

		var err error
		tasks, err = loadForest(ctx, r, userID, listID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// CreateList creates an empty list
func (s *ListService) CreateList(ctx context.Context, userID int64, req ports.CreateListRequest) (*entities.TodoList, error) {
	title, err := entities.NormalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}

	list := &entities.TodoList{Title: title, UserID: userID, Tasks: []*entities.Task{}}
	err = s.store.Do(ctx, func(r ports.Repositories) error {
		return r.Lists.Create(ctx, list)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("List created", "list_id", list.ID, "user_id", userID)

	return list, nil
}

// UpdateList renames a list. An absent title leaves the list unchanged.
func (s *ListService) UpdateList(ctx context.Context, userID, listID int64, req ports.UpdateListRequest) (*entities.TodoList, error) {
	var title string
	if req.Title != nil {
		var err error
		if title, err = entities.NormalizeTitle(*req.Title); err != nil {
			return nil, err
		}
	}

	var list *entities.TodoList
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		if req.Title != nil {
			if err := r.Lists.UpdateTitle(ctx, userID, listID, title); err != nil {
				return err
			}
		}

		var err error
		if list, err = r.Lists.GetByID(ctx, userID, listID); err != nil {
			return err
		}

		list.Tasks, err = loadForest(ctx, r, userID, listID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

// DeleteList removes a list and every task in it, deepest tasks first,
// and reports how many tasks were removed.
func (s *ListService) DeleteList(ctx context.Context, userID, listID int64) (int, error) {
	var deleted int
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		if _, err := r.Lists.GetByID(ctx, userID, listID); err != nil {
			return err
		}

		rows, err := r.Tasks.ListByList(ctx, userID, listID)
		if err != nil {
			return err
		}

		ix := entities.NewTaskIndex(rows)
		for _, rootID := range ix.RootIDs() {
			n, err := deleteSubtree(ctx, r, userID, ix, rootID)
			if err != nil {
				return err
			}
			deleted += n
		}

		remaining, err := r.Tasks.CountByList(ctx, listID)
		if err != nil {
			return err
		}
		if remaining != 0 {
			return entities.StoreError("delete list", fmt.Errorf("%d tasks still reference list %d", remaining, listID))
		}

		return r.Lists.Delete(ctx, userID, listID)
	})
	if err != nil {
		return 0, err
	}

	s.observer.ObserveCascade(CascadeDeleteList, deleted)
	s.logger.LogUserAction(userID, "delete_list", map[string]interface{}{
		"list_id":       listID,
		"tasks_deleted": deleted,
	})

	return deleted, nil
}

// loadForest assembles the top-level task trees of a list
func loadForest(ctx context.Context, r ports.Repositories, userID, listID int64) ([]*entities.Task, error) {
	rows, err := r.Tasks.ListByList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}

	return entities.NewTaskIndex(rows).Forest()
}
