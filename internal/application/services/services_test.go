package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todolists/internal/adapters/repository"
	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/infrastructure/config"
	"github.com/taskmaster/todolists/internal/infrastructure/database"
	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/ports"
)

type cascadeRecorder struct {
	mu    sync.Mutex
	calls []cascadeCall
}

type cascadeCall struct {
	operation string
	size      int
}

func (c *cascadeRecorder) ObserveCascade(operation string, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, cascadeCall{operation, size})
}

type testEnv struct {
	store     *repository.Store
	hierarchy *HierarchyService
	lists     *ListService
	observer  *cascadeRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "todo.db"),
	}
	require.NoError(t, database.MigrateUp(cfg))

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := repository.NewStore(db)
	observer := &cascadeRecorder{}
	log := logger.NewNop()

	return &testEnv{
		store:     store,
		hierarchy: NewHierarchyService(store, observer, log),
		lists:     NewListService(store, observer, log),
		observer:  observer,
	}
}

// createUser inserts a user directly; the auth flow is covered separately
func (e *testEnv) createUser(t *testing.T, username string) int64 {
	t.Helper()
	ctx := context.Background()

	user := &entities.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, e.store.Do(ctx, func(r ports.Repositories) error {
		return r.Users.Create(ctx, user)
	}))
	return user.ID
}

func (e *testEnv) createList(t *testing.T, userID int64, title string) int64 {
	t.Helper()

	list, err := e.lists.CreateList(context.Background(), userID, ports.CreateListRequest{Title: title})
	require.NoError(t, err)
	return list.ID
}

func (e *testEnv) addTask(t *testing.T, userID, listID int64, title string) int64 {
	t.Helper()

	task, err := e.hierarchy.CreateTopLevelTask(context.Background(), userID, listID, ports.CreateTaskRequest{Title: title})
	require.NoError(t, err)
	return task.ID
}

func (e *testEnv) addSubtask(t *testing.T, userID, parentID int64, title string) int64 {
	t.Helper()

	task, err := e.hierarchy.CreateSubtask(context.Background(), userID, parentID, ports.CreateTaskRequest{Title: title})
	require.NoError(t, err)
	return task.ID
}

func (e *testEnv) taskCount(t *testing.T, listID int64) int64 {
	t.Helper()
	ctx := context.Background()

	var n int64
	require.NoError(t, e.store.Do(ctx, func(r ports.Repositories) error {
		var err error
		n, err = r.Tasks.CountByList(ctx, listID)
		return err
	}))
	return n
}

// collect flattens a tree in pre-order
func collect(task *entities.Task) []*entities.Task {
	out := []*entities.Task{task}
	for _, sub := range task.Subtasks {
		out = append(out, collect(sub)...)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
