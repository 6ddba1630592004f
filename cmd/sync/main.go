package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/releaseboard/internal/config"
	"github.com/JonMunkholm/releaseboard/internal/logging"
	"github.com/JonMunkholm/releaseboard/internal/syncjob"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.StringP("config", "c", "", "YAML config file (environment variables override it)")
	once := flag.Bool("once", false, "run a single cycle even if an interval is configured")
	interval := flag.Duration("interval", 0, "run every interval (overrides SYNC_INTERVAL)")
	sourcePath := flag.String("source", "", "spreadsheet path or s3://bucket/key (overrides SYNC_SOURCE)")
	sheetName := flag.String("sheet", "", "worksheet name (overrides SYNC_SHEET)")
	skipJira := flag.Bool("skip-jira", false, "do not search Jira")
	dryRun := flag.Bool("dry-run", false, "print the prepared payload instead of pushing it")
	flag.Parse()

	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Flags beat the environment for the source so ad-hoc runs do not need
	// a config file.
	if *sourcePath != "" {
		os.Setenv("SYNC_SOURCE", *sourcePath)
	}
	if *sheetName != "" {
		os.Setenv("SYNC_SHEET", *sheetName)
	}

	cfg, err := config.LoadSync(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	job, err := syncjob.NewFromConfig(cfg, *skipJira, *dryRun)
	if err != nil {
		slog.Error("failed to create sync job", "error", err)
		os.Exit(1)
	}

	every := cfg.Schedule.Interval
	if flag.CommandLine.Changed("interval") {
		every = *interval
	}
	if *once {
		every = 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := job.Run(ctx, every); err != nil {
		slog.Error("sync failed", "error", err)
		stop()
		os.Exit(1)
	}
}
