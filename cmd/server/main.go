package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitjobs/gitjobs/internal/config"
	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/handler"
	"github.com/gitjobs/gitjobs/internal/jobs"
	"github.com/gitjobs/gitjobs/internal/middleware"
	"github.com/gitjobs/gitjobs/internal/notification"
	"github.com/gitjobs/gitjobs/internal/repository"
	"github.com/gitjobs/gitjobs/internal/session"
	"github.com/gitjobs/gitjobs/internal/tracker"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "GitJobs server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config-file", "", "configuration file path")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("server terminated", "error", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	setupLogger(cfg.Log)
	if err := errors.Join(cfg.Validate(), cfg.Email.Validate()); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.NewPool(ctx, cfg.DB.ConnString())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(pool); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}
	slog.Info("connected to database", "host", cfg.DB.Host, "dbname", cfg.DB.DBName)

	// Transaction registry
	txs := database.NewTxRegistry(pool)
	txs.Start()
	defer txs.Stop()

	// Event tracker
	eventTracker := tracker.NewTracker(repository.NewEventsRepository(pool))
	eventTracker.Start()
	defer eventTracker.Stop()

	// Notifications manager
	sender, err := notification.NewSMTPSender(cfg.Email)
	if err != nil {
		return fmt.Errorf("error setting up email sender: %w", err)
	}
	notificationsManager := notification.NewManager(
		repository.NewNotificationRepository(pool), txs, sender, cfg.Email.Workers)
	notificationsManager.Start()
	defer notificationsManager.Stop()

	// Jobs archiver
	archiver := jobs.NewArchiver(repository.NewJobRepository(pool))
	archiver.Start()
	defer archiver.Stop()

	// Session store
	sessions, err := session.NewStore(repository.NewSessionRepository(pool))
	if err != nil {
		return fmt.Errorf("error setting up session store: %w", err)
	}

	// Handlers and routes
	jobsHandler := handler.NewJobsHandler(repository.NewJobRepository(pool), eventTracker)
	authHandler := handler.NewAuthHandler(repository.NewUserRepository(pool), notificationsManager, sessions, cfg.Server.BaseURL)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("GET /jobs", jobsHandler.List)
	mux.HandleFunc("GET /jobs/{jobID}", jobsHandler.Get)
	mux.HandleFunc("POST /signup", authHandler.Signup)
	mux.HandleFunc("GET /verify-email/{code}", authHandler.VerifyEmail)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /team/invitations", authHandler.InviteTeamMember)

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: middleware.Chain(
			mux,
			middleware.RequestID,
			middleware.Logger,
			middleware.Recovery,
			middleware.Session(sessions),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// The deferred Stop calls run in reverse order: archiver, notifications
	// manager, tracker (final flush of pending counts), then the registry
	// rolls back any leftover transactions before the pool closes.
	slog.Info("server exited")
	return nil
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if cfg.Format == config.LogFormatPretty {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
