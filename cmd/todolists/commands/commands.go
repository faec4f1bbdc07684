package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskmaster/todolists/internal/adapters/cache"
	"github.com/taskmaster/todolists/internal/adapters/repository"
	"github.com/taskmaster/todolists/internal/application/services"
	"github.com/taskmaster/todolists/internal/infrastructure/config"
	"github.com/taskmaster/todolists/internal/infrastructure/database"
	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/infrastructure/server"
	"github.com/taskmaster/todolists/internal/ports"
)

// Set at build time with -ldflags "-X .../commands.Version=..."
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the API server with all configured routes and middleware. Stops gracefully on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migration up completed successfully")
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Migration down completed successfully")
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("Current migration version: %d\n", version)
				cmd.Printf("Dirty: %t\n", dirty)
				return nil
			})
		},
	})

	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			user, err := createUser(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			cmd.Printf("User created successfully:\n")
			cmd.Printf("  ID: %d\n", user.ID)
			cmd.Printf("  Username: %s\n", user.Username)
			return nil
		},
	}

	createUserCmd.Flags().String("username", "", "Username, at least 3 characters (required)")
	createUserCmd.Flags().String("password", "", "Password, at least 6 characters (required)")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("todolists %s\n", Version)
			cmd.Printf("Build Date: %s\n", BuildDate)
			cmd.Printf("Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateJWT(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(cfg.Database); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		appLogger.Infow("Database schema is up to date", "driver", cfg.Database.Driver)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	tokens, closeTokens, err := newTokenStore(ctx, cfg.Redis, appLogger)
	if err != nil {
		return err
	}
	defer closeTokens()

	srv, err := server.New(cfg, db, tokens, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	appLogger.Infow("Starting TodoLists API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"version", Version,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	appLogger.Infow("Server stopped")
	return <-errCh
}

// newTokenStore picks Redis when enabled, else an in-process denylist
func newTokenStore(ctx context.Context, cfg config.RedisConfig, appLogger *logger.Logger) (server.TokenStore, func() error, error) {
	if !cfg.Enabled {
		appLogger.Warnw("Redis disabled; revoked tokens are tracked in memory only")
		return cache.NewMemoryDenylist(), func() error { return nil }, nil
	}

	denylist, err := cache.NewRedisDenylist(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	appLogger.Infow("Connected to Redis", "address", cfg.GetAddr())

	return denylist, denylist.Close, nil
}

func withMigrator(fn func(m *database.Migrator) error) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	m, err := database.NewMigrator(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		err = errors.Join(err, m.Close())
	}()

	return fn(m)
}

func createUser(ctx context.Context, username, password string) (*ports.UserSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateJWT(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	authService := services.NewAuthService(repository.NewStore(db), cache.NewMemoryDenylist(), cfg.JWT, logger.NewNop())
	resp, err := authService.Signup(ctx, ports.SignupRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &resp.User, nil
}
