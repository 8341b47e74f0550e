package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/geominder/core/internal/application/services"
	"github.com/geominder/core/internal/infrastructure/config"
	"github.com/geominder/core/internal/infrastructure/database"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/infrastructure/server"
	"github.com/geominder/core/internal/infrastructure/storage"
	"github.com/geominder/core/internal/infrastructure/tracing"
)

// Build information, set with -ldflags at release time
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "development"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the GeoMinder API server",
		Long:  "Start the GeoMinder API server with the configured storage, geofence backend and middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the reminder schema of the sqlite or postgres store (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.OutOrStdout(), database.MigrateUp)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.OutOrStdout(), database.MigrateDown)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd.OutOrStdout())
		},
	})

	return migrateCmd
}

// NewReminderCommand creates the reminder management command
func NewReminderCommand() *cobra.Command {
	var output string

	reminderCmd := &cobra.Command{
		Use:   "reminder",
		Short: "Reminder management commands",
		Long:  "List, inspect and delete reminders in the configured store",
	}
	reminderCmd.PersistentFlags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")

	reminderCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd.Context(), func(repo *services.ReminderRepository, _ *storage.Backends) error {
				reminders, err := repo.GetReminders(cmd.Context()).Unwrap()
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, reminders)
			})
		},
	})

	reminderCmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd.Context(), func(repo *services.ReminderRepository, _ *storage.Backends) error {
				reminder, err := repo.GetReminder(cmd.Context(), args[0]).Unwrap()
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, reminder)
			})
		},
	})

	reminderCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a reminder and its geofence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd.Context(), func(repo *services.ReminderRepository, b *storage.Backends) error {
				if err := repo.DeleteReminder(cmd.Context(), args[0]); err != nil {
					return err
				}
				if err := b.Geofences.Remove(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("remove geofence: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reminder %s deleted\n", args[0])
				return nil
			})
		},
	})

	reminderCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every reminder and geofence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd.Context(), func(repo *services.ReminderRepository, b *storage.Backends) error {
				reminders, err := repo.GetReminders(cmd.Context()).Unwrap()
				if err != nil {
					return err
				}
				if err := repo.DeleteAllReminders(cmd.Context()); err != nil {
					return err
				}
				if err := b.Geofences.Clear(cmd.Context()); err != nil {
					return fmt.Errorf("remove geofences: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d reminders\n", len(reminders))
				return nil
			})
		},
	})

	return reminderCmd
}

// NewAuthCommand creates the auth helper command
func NewAuthCommand() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash to set as AUTH_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := services.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the configured subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			authService := services.NewAuthService(cfg.JWT, cfg.Auth, nil, logger.NewNop())
			token, err := authService.IssueToken(cfg.Auth.Subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})

	return authCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print GeoMinder version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "GeoMinder Core %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	tp, err := tracing.NewProvider(cfg.App, cfg.Tracing, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	backends, err := storage.Open(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backends.Close()

	srv, err := server.New(cfg, backends, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	if cfg.Auth.PasswordHash == "" {
		appLogger.Warn("AUTH_PASSWORD_HASH is not set; sign in is disabled")
	}

	appLogger.Infow("Starting GeoMinder API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"storage", cfg.Storage.Driver,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Server shutdown failed", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Tracing shutdown failed", "error", err)
	}

	appLogger.Info("Server stopped")
	return nil
}

// withRepository opens the configured storage for a one-off CLI command.
func withRepository(ctx context.Context, fn func(*services.ReminderRepository, *storage.Backends) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Keep stdout clean for rendered output.
	log := logger.NewNop()

	backends, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backends.Close()

	repo := services.NewReminderRepository(backends.Store, services.NewIdlingResource("cli"), nil, log)
	return fn(repo, backends)
}

func render(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func runMigration(w io.Writer, direction string) error {
	db, err := openSQL()
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := db.Migrate(direction)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if !applied {
		fmt.Fprintln(w, "No migrations to run")
	} else {
		fmt.Fprintf(w, "Migration %s completed successfully\n", direction)
	}
	return nil
}

func showMigrationVersion(w io.Writer) error {
	db, err := openSQL()
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Fprintf(w, "Current migration version: %d\n", version)
	fmt.Fprintf(w, "Dirty: %t\n", dirty)
	return nil
}

func openSQL() (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewRootCommand assembles the geominder command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "geominder",
		Short:         "GeoMinder API Server",
		Long:          `GeoMinder stores location reminders, reduces map selections to geofences and serves the reminder workflows over HTTP and WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewReminderCommand())
	rootCmd.AddCommand(NewAuthCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
