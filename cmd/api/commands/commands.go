package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/cinereview/core/internal/adapters/client"
	"github.com/cinereview/core/internal/adapters/repository"
	"github.com/cinereview/core/internal/infrastructure/config"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/infrastructure/metrics"
	"github.com/cinereview/core/internal/infrastructure/server"
)

// Build information, set with -ldflags
var (
	Version   = "dev"
	GitCommit = "development"
	BuildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the review API server",
		Long:  "Start the review API server with the configured storage backend, routes and middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the review schema of the sqlite or postgres backend (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd)
		},
	})

	return migrateCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CineReview version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CineReview %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

// NewReviewsCommand creates the client commands that talk to a running server
func NewReviewsCommand() *cobra.Command {
	reviewsCmd := &cobra.Command{
		Use:   "reviews",
		Short: "List and submit reviews against a running server",
	}
	reviewsCmd.PersistentFlags().String("base-url", "", "Review API base URL (defaults to client.base_url)")
	reviewsCmd.PersistentFlags().String("movie", "", "Movie identifier (required)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the reviews of a movie, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReviews(cmd, client.StaticForm{}, false)
		},
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a review and show the updated list",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			text, _ := cmd.Flags().GetString("text")
			return runReviews(cmd, client.StaticForm{NameValue: name, TextValue: text}, true)
		},
	}
	addCmd.Flags().String("name", "", "Reviewer name")
	addCmd.Flags().String("text", "", "Review text")

	reviewsCmd.AddCommand(listCmd, addCmd)
	return reviewsCmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	store, err := repository.NewReviewStore(cfg, appLogger, m)
	if err != nil {
		appLogger.Errorw("Failed to open review store", "backend", cfg.Storage.Backend, "error", err)
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, store, appLogger, m)
	if err != nil {
		appLogger.Errorw("Failed to initialize server", "error", err)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Infow("Starting CineReview API server",
			"address", cfg.Server.Address(),
			"environment", cfg.App.Environment,
			"storage", cfg.Storage.Backend,
		)
		if err := srv.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			appLogger.Errorw("Server failed to start", "error", err)
			return err
		}
		return nil
	case <-quit:
	}

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorw("Server forced to shutdown", "error", err)
		return err
	}

	appLogger.Info("Server exited gracefully")
	return nil
}

func openMigrator() (*migrate.Migrate, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := repository.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}

	m, err := db.Migrator()
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func runMigration(cmd *cobra.Command, direction string) error {
	m, err := openMigrator()
	if err != nil {
		return err
	}
	// closes the database as well
	defer m.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
	return nil
}

func showMigrationVersion(cmd *cobra.Command) error {
	m, err := openMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", version)
	fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", dirty)
	return nil
}

func runReviews(cmd *cobra.Command, form client.StaticForm, submit bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = cfg.Client.BaseURL
	}
	movieID, _ := cmd.Flags().GetString("movie")

	view := client.NewTerminalView(cmd.OutOrStdout(), cmd.ErrOrStderr())
	api := client.NewClient(baseURL, cfg.Client.Timeout)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	controller, err := client.Mount(ctx, movieID, view, form, api)
	if err != nil {
		return err
	}

	if submit {
		// a failed submission has already been reported through the view
		if err := controller.Submit(ctx); err != nil {
			return errReported
		}
	}

	if view.Failed {
		return errReported
	}
	return nil
}

// errReported signals a failure whose message was already printed
var errReported = errors.New("reviews command failed")
