package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gitjobs/gitjobs/internal/config"
	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/repository"
	"github.com/gitjobs/gitjobs/internal/syncer"
)

func main() {
	var (
		configFile string
		schedule   string
	)

	rootCmd := &cobra.Command{
		Use:           "syncer",
		Short:         "GitJobs foundations data syncer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile, schedule)
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config-file", "", "configuration file path")
	rootCmd.Flags().StringVar(&schedule, "schedule", "", "cron expression; when set, keep running and sync on schedule")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("syncer terminated", "error", err)
		os.Exit(1)
	}
}

func run(configFile, schedule string) error {
	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	setupLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database. Migrations are owned by the server binary.
	pool, err := database.NewPool(ctx, cfg.DB.ConnString())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer pool.Close()

	s := syncer.New(repository.NewFoundationRepository(pool), syncer.NewLandscapeClient())

	// One-shot by default.
	if schedule == "" {
		slog.Info("running synchronization pass")
		return s.Run(ctx)
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		slog.Info("running synchronization pass")
		if err := s.Run(ctx); err != nil {
			slog.Error("synchronization pass failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	slog.Info("starting scheduled syncer", "schedule", schedule)
	c.Start()
	<-ctx.Done()

	slog.Info("shutting down syncer...")
	<-c.Stop().Done() // wait for an in-flight pass to finish
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
