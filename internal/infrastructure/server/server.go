package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/taskmaster/todolists/docs"
	httpHandlers "github.com/taskmaster/todolists/internal/adapters/http"
	"github.com/taskmaster/todolists/internal/adapters/repository"
	"github.com/taskmaster/todolists/internal/application/services"
	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/infrastructure/config"
	"github.com/taskmaster/todolists/internal/infrastructure/database"
	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/infrastructure/metrics"
	"github.com/taskmaster/todolists/internal/ports"
)

// TokenStore is the revocation store the server needs: a denylist that
// can also report its own health.
type TokenStore interface {
	ports.TokenDenylist
	HealthCheck(ctx context.Context) error
	GetConnectionInfo() map[string]interface{}
}

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	db      *database.DB
	tokens  TokenStore
	metrics *metrics.Metrics
	started time.Time
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// newValidator reports field names as they appear in the JSON payload
func newValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, tokens TokenStore, appLogger *logger.Logger) (*Server, error) {
	if cfg == nil || db == nil || tokens == nil || appLogger == nil {
		return nil, errors.New("server: config, database, token store and logger are required")
	}
	if err := cfg.ValidateJWT(); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	e := echo.New()
	e.Validator = newValidator()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	server := &Server{
		echo:    e,
		config:  cfg,
		logger:  appLogger,
		db:      db,
		tokens:  tokens,
		started: time.Now(),
	}

	var observer ports.CascadeObserver
	if cfg.Metrics.Enabled {
		server.metrics = metrics.New()
		observer = server.metrics
	}

	// Initialize services
	store := repository.NewStore(db)
	authService := services.NewAuthService(store, tokens, cfg.JWT, appLogger)
	hierarchyService := services.NewHierarchyService(store, observer, appLogger)
	listService := services.NewListService(store, observer, appLogger)

	// Initialize handlers
	authHandler := httpHandlers.NewAuthHandler(authService, appLogger)
	listHandler := httpHandlers.NewListHandler(listService, hierarchyService, appLogger)
	taskHandler := httpHandlers.NewTaskHandler(hierarchyService, appLogger)

	server.setupMiddleware()
	server.setupRoutes(authHandler, listHandler, taskHandler, authService)

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(authHandler *httpHandlers.AuthHandler, listHandler *httpHandlers.ListHandler, taskHandler *httpHandlers.TaskHandler, authenticator ports.Authenticator) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	// Swagger documentation
	if !s.config.App.IsProduction() {
		s.echo.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	api := s.echo.Group("/api")
	requireAuth := s.authMiddleware(authenticator)

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authHandler.Me, requireAuth)
	authGroup.POST("/logout", authHandler.Logout, requireAuth)

	// List routes (authenticated)
	listGroup := api.Group("/lists", requireAuth)
	listGroup.GET("", listHandler.ListLists)
	listGroup.POST("", listHandler.CreateList)
	listGroup.PUT("/:id", listHandler.UpdateList)
	listGroup.DELETE("/:id", listHandler.DeleteList)
	listGroup.GET("/:id/tasks", listHandler.GetListTasks)
	listGroup.POST("/:id/tasks", listHandler.CreateTask)

	// Task routes (authenticated)
	taskGroup := api.Group("/tasks", requireAuth)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.PUT("/:id", taskHandler.UpdateTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)
	taskGroup.PUT("/:id/toggle", taskHandler.ToggleExpanded)
	taskGroup.POST("/:id/subtasks", taskHandler.CreateSubtask)
	taskGroup.PUT("/:id/complete", taskHandler.SetCompletion)
	taskGroup.PUT("/move/:id", taskHandler.MoveTask)
	taskGroup.PUT("/move/:id/to/:list_id", taskHandler.MoveTaskTo)
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	ctx := c.Request().Context()
	status := "ready"
	checks := make(map[string]interface{})

	if err := s.db.HealthCheck(ctx); err != nil {
		status = "not_ready"
		checks["database"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		checks["database"] = map[string]interface{}{"status": "ok", "stats": s.db.GetConnectionInfo()}
	}

	if err := s.tokens.HealthCheck(ctx); err != nil {
		status = "not_ready"
		checks["token_store"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		checks["token_store"] = map[string]interface{}{"status": "ok", "stats": s.tokens.GetConnectionInfo()}
	}

	response := map[string]interface{}{
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"version": s.config.App.Version,
		"checks":  checks,
	}

	if status == "ready" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops. A graceful
// shutdown is not reported as an error.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.Infow("Starting server", "address", srv.Addr)
	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler renders every error as {"message": ...}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			he = httpHandlers.ToHTTPError(err)
		}

		code := he.Code
		msg := fmt.Sprint(he.Message)

		if code >= http.StatusInternalServerError {
			cause := err
			if he.Internal != nil {
				cause = he.Internal
			}
			logger.WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).
				Errorw("Internal server error", "error", cause, "path", c.Request().URL.Path, "store", errors.Is(cause, entities.ErrStore))
			msg = "internal server error"
		}

		var sendErr error
		if c.Request().Method == http.MethodHead {
			sendErr = c.NoContent(code)
		} else {
			sendErr = c.JSON(code, httpHandlers.ErrorResponse{Message: msg})
		}
		if sendErr != nil {
			logger.Errorw("Error sending response", "error", sendErr)
		}
	}
}
