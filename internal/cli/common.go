package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/logging"
)

// newLoader returns a config loader for the data directory, honoring
// --config.
func newLoader(dir string) *config.Loader {
	return config.NewLoader(dir).WithConfigFile(configFile)
}

// loadConfig loads and validates the configuration of the data directory.
// A missing config file yields the defaults.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := newLoader(dir).Load()
	if err != nil {
		return nil, ErrConfigInvalid(err)
	}
	if err := config.ValidateOrError(cfg); err != nil {
		return nil, ErrConfigInvalid(err)
	}
	return cfg, nil
}

// newLogger builds the logger for cfg. Commands log to w, which is stderr
// so that stdout stays parseable; --verbose lowers the level to debug.
func newLogger(w io.Writer, cfg *config.Config, debug bool) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger, err := logging.New(w, cfg.Logging.Format, level)
	if err != nil {
		return nil, ErrConfigInvalid(err)
	}
	return logger, nil
}

// openDaemon loads the configuration and opens the store, providers and
// pipeline of the data directory in process.
func openDaemon(ctx context.Context, dir string, errOut io.Writer) (*daemon.Daemon, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(errOut, cfg, IsVerbose())
	if err != nil {
		return nil, err
	}
	d, err := daemon.New(ctx, cfg, dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	return d, nil
}
