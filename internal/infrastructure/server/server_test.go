package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todolists/internal/adapters/cache"
	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/infrastructure/config"
	"github.com/taskmaster/todolists/internal/infrastructure/database"
	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/ports"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "TodoLists", Version: "test", Environment: "test"},
		Server: config.ServerConfig{
			RequestTimeout: 10 * time.Second,
		},
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "todo.db"),
		},
		JWT: config.JWTConfig{
			Secret:    "test-secret",
			ExpiresIn: time.Hour,
			Issuer:    "todolists-test",
		},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: "*",
			RateLimitRequests:  1000,
			RateLimitWindow:    time.Minute,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func newTestAPI(t *testing.T, cfg *config.Config) *testAPI {
	t.Helper()

	require.NoError(t, database.MigrateUp(cfg.Database))
	db, err := database.New(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv, err := New(cfg, db, cache.NewMemoryDenylist(), logger.NewNop())
	require.NoError(t, err)

	return &testAPI{t: t, handler: srv.Handler()}
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// expect performs a request, checks the status and decodes the body into out
func (a *testAPI) expect(status int, method, path, token string, body, out interface{}) {
	a.t.Helper()

	rec := a.do(method, path, token, body)
	require.Equal(a.t, status, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if out != nil {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

func (a *testAPI) signup(username string) string {
	a.t.Helper()

	var resp ports.AuthResponse
	a.expect(http.StatusCreated, http.MethodPost, "/api/auth/signup", "",
		map[string]string{"username": username, "password": "secret1"}, &resp)
	return resp.Token
}

func (a *testAPI) createList(token, title string) entities.TodoList {
	a.t.Helper()

	var list entities.TodoList
	a.expect(http.StatusCreated, http.MethodPost, "/api/lists", token, map[string]string{"title": title}, &list)
	return list
}

func (a *testAPI) createTask(token string, listID int64, title string) entities.Task {
	a.t.Helper()

	var task entities.Task
	a.expect(http.StatusCreated, http.MethodPost, fmt.Sprintf("/api/lists/%d/tasks", listID), token,
		map[string]string{"title": title}, &task)
	return task
}

func (a *testAPI) createSubtask(token string, parentID int64, title string) entities.Task {
	a.t.Helper()

	var task entities.Task
	a.expect(http.StatusCreated, http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks", parentID), token,
		map[string]string{"title": title}, &task)
	return task
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Message
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, testConfig(t))

	token := api.signup("alice")
	require.NotEmpty(t, token)

	var me ports.UserSummary
	api.expect(http.StatusOK, http.MethodGet, "/api/auth/me", token, nil, &me)
	assert.Equal(t, "alice", me.Username)

	rec := api.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username already exists", errorMessage(t, rec))

	rec = api.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "al", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "bobby", "password": strings.Repeat("p", 100)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password must be at most 72 bytes long", errorMessage(t, rec))

	rec = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid username or password", errorMessage(t, rec))

	var login ports.AuthResponse
	api.expect(http.StatusOK, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "secret1"}, &login)
	assert.NotEmpty(t, login.Token)

	api.expect(http.StatusOK, http.MethodPost, "/api/auth/logout", token, nil, nil)
	rec = api.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token has been revoked", errorMessage(t, rec))

	api.expect(http.StatusOK, http.MethodGet, "/api/auth/me", login.Token, nil, nil)
}

func TestRequiresBearerToken(t *testing.T) {
	api := newTestAPI(t, testConfig(t))

	rec := api.do(http.MethodGet, "/api/lists", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization header", errorMessage(t, rec))

	rec = api.do(http.MethodGet, "/api/lists", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", errorMessage(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/api/lists", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMoveScenario(t *testing.T) {
	api := newTestAPI(t, testConfig(t))
	token := api.signup("alice")

	groceries := api.createList(token, "Groceries")
	errands := api.createList(token, "Errands")
	milk := api.createTask(token, groceries.ID, "Buy milk")
	low := api.createSubtask(token, milk.ID, "2%")
	assert.Equal(t, groceries.ID, low.ListID)

	var moved entities.Task
	api.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/tasks/move/%d", milk.ID), token,
		map[string]int64{"list_id": errands.ID}, &moved)
	assert.Equal(t, errands.ID, moved.ListID)
	require.Len(t, moved.Subtasks, 1)
	assert.Equal(t, errands.ID, moved.Subtasks[0].ListID)

	var sub entities.Task
	api.expect(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/tasks/%d", low.ID), token, nil, &sub)
	assert.Equal(t, errands.ID, sub.ListID)

	// the path form moves it back
	api.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/tasks/move/%d/to/%d", milk.ID, groceries.ID), token, nil, &moved)
	assert.Equal(t, groceries.ID, moved.Subtasks[0].ListID)

	rec := api.do(http.MethodPut, fmt.Sprintf("/api/tasks/move/%d", low.ID), token, map[string]int64{"list_id": errands.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "only top-level tasks may move", errorMessage(t, rec))

	rec = api.do(http.MethodPut, fmt.Sprintf("/api/tasks/move/%d", milk.ID), token, map[string]int64{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "list_id is required", errorMessage(t, rec))
}

func TestDeleteScenario(t *testing.T) {
	api := newTestAPI(t, testConfig(t))
	token := api.signup("alice")

	groceries := api.createList(token, "Groceries")
	milk := api.createTask(token, groceries.ID, "Buy milk")
	low := api.createSubtask(token, milk.ID, "2%")

	var deleted struct {
		Message string `json:"message"`
		Deleted int    `json:"deleted"`
	}
	api.expect(http.StatusOK, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", milk.ID), token, nil, &deleted)
	assert.Equal(t, 2, deleted.Deleted)

	rec := api.do(http.MethodGet, fmt.Sprintf("/api/tasks/%d", low.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task not found", errorMessage(t, rec))

	// deleting a list takes its remaining tasks along
	api.createSubtask(token, api.createTask(token, groceries.ID, "Bread").ID, "rye")
	api.expect(http.StatusOK, http.MethodDelete, fmt.Sprintf("/api/lists/%d", groceries.ID), token, nil, nil)

	var lists []entities.TodoList
	api.expect(http.StatusOK, http.MethodGet, "/api/lists", token, nil, &lists)
	assert.Empty(t, lists)
}

func TestOwnershipFailuresAreNotFound(t *testing.T) {
	api := newTestAPI(t, testConfig(t))
	alice := api.signup("alice")
	bob := api.signup("bobby")

	list := api.createList(alice, "Groceries")
	task := api.createTask(alice, list.ID, "Buy milk")

	requests := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPut, fmt.Sprintf("/api/lists/%d", list.ID), map[string]string{"title": "x"}},
		{http.MethodDelete, fmt.Sprintf("/api/lists/%d", list.ID), nil},
		{http.MethodGet, fmt.Sprintf("/api/lists/%d/tasks", list.ID), nil},
		{http.MethodPost, fmt.Sprintf("/api/lists/%d/tasks", list.ID), map[string]string{"title": "x"}},
		{http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil},
		{http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), map[string]string{"title": "x"}},
		{http.MethodPut, fmt.Sprintf("/api/tasks/%d/toggle", task.ID), nil},
		{http.MethodPut, fmt.Sprintf("/api/tasks/%d/complete", task.ID), map[string]bool{"completed": true}},
		{http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks", task.ID), map[string]string{"title": "x"}},
		{http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil},
	}

	for _, r := range requests {
		rec := api.do(r.method, r.path, bob, r.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", r.method, r.path)
	}

	var lists []entities.TodoList
	api.expect(http.StatusOK, http.MethodGet, "/api/lists", alice, nil, &lists)
	require.Len(t, lists, 1)
	assert.Equal(t, "Groceries", lists[0].Title)
	require.Len(t, lists[0].Tasks, 1)
}

func TestTaskEndpoints(t *testing.T) {
	api := newTestAPI(t, testConfig(t))
	token := api.signup("alice")

	list := api.createList(token, "Groceries")
	milk := api.createTask(token, list.ID, "Buy milk")
	low := api.createSubtask(token, milk.ID, "2%")
	api.createSubtask(token, milk.ID, "skim")

	t.Run("completion returns parent tree", func(t *testing.T) {
		var parent entities.Task
		api.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/tasks/%d/complete", low.ID), token,
			map[string]bool{"completed": true}, &parent)
		assert.Equal(t, milk.ID, parent.ID)
		require.Len(t, parent.Subtasks, 2)
		assert.True(t, parent.Subtasks[0].Completed)
		assert.InDelta(t, 0.5, entities.CompletionFraction(&parent), 1e-9)

		rec := api.do(http.MethodPut, fmt.Sprintf("/api/tasks/%d/complete", low.ID), token, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "completed is required", errorMessage(t, rec))
	})

	t.Run("toggle twice restores", func(t *testing.T) {
		var task entities.Task
		api.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/tasks/%d/toggle", milk.ID), token, nil, &task)
		assert.False(t, task.IsExpanded)
		api.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/tasks/%d/toggle", milk.ID), token, nil, &task)
		assert.True(t, task.IsExpanded)
	})

	t.Run("update", func(t *testing.T) {
		var task entities.Task
		api.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/tasks/%d", milk.ID), token,
			map[string]interface{}{"title": "Buy oat milk", "description": "barista"}, &task)
		assert.Equal(t, "Buy oat milk", task.Title)
		require.NotNil(t, task.Description)
		assert.Equal(t, "barista", *task.Description)

		api.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/tasks/%d", milk.ID), token,
			map[string]interface{}{"description": nil}, &task)
		require.NotNil(t, task.Description)

		api.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/tasks/%d", milk.ID), token,
			map[string]interface{}{"description": ""}, &task)
		assert.Nil(t, task.Description)

		rec := api.do(http.MethodPut, fmt.Sprintf("/api/tasks/%d", milk.ID), token, map[string]string{"title": "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "title is required", errorMessage(t, rec))
	})

	t.Run("flat fetch", func(t *testing.T) {
		var task entities.Task
		api.expect(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/tasks/%d?subtasks=false", milk.ID), token, nil, &task)
		assert.Empty(t, task.Subtasks)

		api.expect(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/tasks/%d", milk.ID), token, nil, &task)
		assert.Len(t, task.Subtasks, 2)
	})

	t.Run("list tasks", func(t *testing.T) {
		var tasks []entities.Task
		api.expect(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/lists/%d/tasks", list.ID), token, nil, &tasks)
		require.Len(t, tasks, 1)
		assert.Len(t, tasks[0].Subtasks, 2)
	})

	t.Run("bad input", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/api/tasks/abc", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid task id", errorMessage(t, rec))

		rec = api.do(http.MethodPost, "/api/lists", token, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "title is required", errorMessage(t, rec))

		rec = api.do(http.MethodPost, fmt.Sprintf("/api/lists/%d/tasks", list.ID), token,
			map[string]string{"title": strings.Repeat("x", 201)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOperationalEndpoints(t *testing.T) {
	api := newTestAPI(t, testConfig(t))

	api.expect(http.StatusOK, http.MethodGet, "/health", "", nil, nil)

	var ready struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string                 `json:"status"`
			Stats  map[string]interface{} `json:"stats"`
		} `json:"checks"`
	}
	api.expect(http.StatusOK, http.MethodGet, "/ready", "", nil, &ready)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "ok", ready.Checks["database"].Status)
	assert.Equal(t, "memory", ready.Checks["token_store"].Stats["backend"])

	api.expect(http.StatusOK, http.MethodGet, "/swagger/index.html", "", nil, nil)

	token := api.signup("alice")
	list := api.createList(token, "Groceries")
	api.createSubtask(token, api.createTask(token, list.ID, "Buy milk").ID, "2%")
	api.expect(http.StatusOK, http.MethodDelete, fmt.Sprintf("/api/lists/%d", list.ID), token, nil, nil)

	rec := api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `todolists_cascade_tasks_sum{operation="delete_list"} 2`)
	assert.Contains(t, rec.Body.String(), `path="/api/lists/:id"`)

	rec = api.do(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, errorMessage(t, rec))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RateLimitRequests = 2
	api := newTestAPI(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, api.do(http.MethodGet, "/api/lists", "", nil).Code)
	}

	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)

	// operational routes are not limited
	api.expect(http.StatusOK, http.MethodGet, "/health", "", nil, nil)
}

func TestSwaggerHiddenInProduction(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.Environment = "production"
	api := newTestAPI(t, cfg)

	rec := api.do(http.MethodGet, "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	api.expect(http.StatusOK, http.MethodGet, "/health", "", nil, nil)
}

func TestNewRequiresJWTSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.Secret = ""

	db, err := database.New(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = New(cfg, db, cache.NewMemoryDenylist(), logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}
