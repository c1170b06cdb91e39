package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskmaster/todo/internal/adapters/cache"
	"github.com/taskmaster/todo/internal/adapters/cli"
	"github.com/taskmaster/todo/internal/adapters/memory"
	"github.com/taskmaster/todo/internal/adapters/repository"
	"github.com/taskmaster/todo/internal/application/search"
	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/database"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/server"
	"github.com/taskmaster/todo/internal/ports"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "development"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Todo API server",
		Long:  "Start the Todo API server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Run up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			steps, _ := cmd.Flags().GetInt("steps")
			runMigration("up", steps)
		},
	}
	upCmd.Flags().Int("steps", 0, "Number of migrations to apply (0 applies all)")

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Run down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			steps, _ := cmd.Flags().GetInt("steps")
			runMigration("down", steps)
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back (0 rolls back all)")

	migrateCmd.AddCommand(upCmd, downCmd, &cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewTokenCommand issues a session token for local development
func NewTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development session token",
		Long:  "Sign a session token with the configured JWT secret, for calling the API without the auth provider",
		Run: func(cmd *cobra.Command, args []string) {
			owner, _ := cmd.Flags().GetString("owner")
			email, _ := cmd.Flags().GetString("email")
			issueToken(owner, email)
		},
	}

	tokenCmd.Flags().String("owner", "", "Owner ID (a new one is generated when empty)")
	tokenCmd.Flags().String("email", "", "Email to embed in the token")
	return tokenCmd
}

// NewShellCommand starts the interactive task board
func NewShellCommand() *cobra.Command {
	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Manage tasks from the terminal",
		Run: func(cmd *cobra.Command, args []string) {
			owner, _ := cmd.Flags().GetString("owner")
			runShell(owner)
		},
	}

	shellCmd.Flags().String("owner", "", "Owner ID whose tasks to show (required with the postgres store)")
	return shellCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Todo version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Todo %s\n", Version)
			fmt.Printf("Build Date: %s\n", BuildDate)
			fmt.Printf("Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	var db *database.DB
	if cfg.Store.Driver == config.StoreDriverPostgres {
		db, err = database.New(cfg.Database)
		if err != nil {
			appLogger.Fatalw("Failed to connect to database", "error", err)
		}
		defer db.Close()
	}

	var statsCache *cache.StatsCache
	if cfg.Redis.Enabled {
		statsCache = cache.NewStatsCache(cache.NewClient(cfg.Redis), cfg.Redis.Prefix, cfg.Redis.TTL)
		defer statsCache.Close()

		if err := statsCache.Ping(context.Background()); err != nil {
			appLogger.Warnw("Stats cache unreachable, continuing without it until it recovers", "error", err)
		}
	}

	srv, err := server.New(cfg, db, statsCache, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting Todo API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"store", cfg.Store.Driver,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.GetAddr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Fatalw("Server failed to start", "error", err)
		}
	case sig := <-quit:
		appLogger.Infow("Received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			appLogger.Errorw("Server shutdown failed", "error", err)
		}
	}
}

func openDatabase() *database.DB {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

func runMigration(direction string, steps int) {
	db := openDatabase()
	defer db.Close()

	changed, err := db.Migrate(direction, steps)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if !changed {
		fmt.Println("No migrations to run")
	} else {
		fmt.Printf("Migration %s completed successfully\n", direction)
	}
}

func showMigrationVersion() {
	db := openDatabase()
	defer db.Close()

	m, err := db.Migrator()
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("No migrations applied")
		return
	}
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	fmt.Printf("Dirty: %t\n", dirty)
}

func issueToken(owner, email string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ownerID := uuid.New()
	if owner != "" {
		if ownerID, err = uuid.Parse(owner); err != nil {
			log.Fatalf("Invalid owner ID: %v", err)
		}
	}

	token, err := services.NewAuthService(cfg.JWT, logger.NewNop()).IssueToken(ownerID, email)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Printf("Owner: %s\n", ownerID)
	fmt.Printf("Expires in: %s\n", cfg.JWT.ExpiresIn)
	fmt.Println(token)
}

func runShell(owner string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// keep log lines out of the board output
	cfg.Logger.Output = "stderr"
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	var taskRepo ports.TaskRepository
	if cfg.Store.Driver == config.StoreDriverPostgres {
		if owner == "" {
			log.Fatal("--owner is required with the postgres store")
		}
		db, err := database.New(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		taskRepo = repository.NewTaskRepository(db.DB, appLogger.WithComponent("task_repository"))
	} else {
		taskRepo = memory.NewTaskRepository()
	}

	ownerID := uuid.New()
	if owner != "" {
		if ownerID, err = uuid.Parse(owner); err != nil {
			log.Fatalf("Invalid owner ID: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	taskService := services.NewTaskService(taskRepo, appLogger)
	shell := cli.NewShell(ctx, taskService, ownerID, appLogger, os.Stdout, search.WithInterval(cfg.Search.Debounce))

	fmt.Println("Type :help for commands.")
	if err := shell.Run(os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Shell failed: %v", err)
	}
}
