package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/api"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/logging"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	dataDir := flag.String("data-dir", config.DefaultDataDirName, "Data directory holding ragcore.yaml and the index")
	configFile := flag.String("config", "", "Config file (default: <data-dir>/ragcore.yaml)")
	envFile := flag.String("env-file", ".env", "Environment file with API keys")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ragd %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.NewLoader(*dataDir).WithConfigFile(*configFile).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateOrError(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), daemon.ShutdownSignals()...)
	defer stop()

	d, err := daemon.New(ctx, cfg, *dataDir, logger)
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}
	defer d.Close()

	logger.Info("starting ragd", "version", version, "data_dir", *dataDir, "addr", cfg.Server.Address())
	router := api.NewRouter(d, api.Options{Metrics: d.Metrics(), Logger: logger})
	if err := d.Run(ctx, router); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		d.Close()
		os.Exit(1)
	}

	logger.Info("ragd stopped")
}
