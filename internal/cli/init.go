package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/db"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/logging"
)

var (
	initProvider string
	initModel    string
	initStore    string
	initDSN      string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a data directory with a default configuration",
	Long: `Create the data directory, write a default ragcore.yaml and set up
the store schema.

The init command will:
  - Create the data directory (default ./.ragcore)
  - Generate ragcore.yaml with the default search, chunking and
    rescoring settings
  - Create the SQLite database, or the Postgres tables with --store postgres`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := initOptions{
			Provider: initProvider,
			Model:    initModel,
			Store:    initStore,
			DSN:      initDSN,
		}
		return runInit(cmd.Context(), GetDataDir(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), IsJSONOutput())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initProvider, "provider", "", "Embedding provider (ollama, openai, mock)")
	initCmd.Flags().StringVar(&initModel, "model", "", "Embedding model")
	initCmd.Flags().StringVar(&initStore, "store", "", "Store driver (sqlite, postgres)")
	initCmd.Flags().StringVar(&initDSN, "dsn", "", "Postgres connection string for --store postgres")
}

// initOptions override the defaults written by init. Empty fields keep
// them.
type initOptions struct {
	Provider string
	Model    string
	Store    string
	DSN      string
}

// InitResult represents the result of an init operation for JSON output
type InitResult struct {
	Success      bool   `json:"success"`
	DataDir      string `json:"data_dir"`
	ConfigPath   string `json:"config_path"`
	DatabasePath string `json:"database_path,omitempty"`
	Message      string `json:"message,omitempty"`
}

// runInit performs the initialization logic. An existing config is reported,
// not overwritten.
func runInit(ctx context.Context, dir string, opts initOptions, stdout, stderr io.Writer, jsonOutput bool) error {
	out := NewOutputFormatter(stdout, stderr, false)
	loader := newLoader(dir)

	if loader.Exists() {
		msg := ErrAlreadyInitialized(loader.ConfigPath())
		if jsonOutput {
			return out.JSON(InitResult{
				Success:    false,
				DataDir:    dir,
				ConfigPath: loader.ConfigPath(),
				Message:    msg.Message,
			})
		}
		out.Warn("%s", msg.Error())
		return nil
	}

	cfg := config.Default()
	if opts.Provider != "" {
		cfg.Embedding.Provider = opts.Provider
	}
	if opts.Model != "" {
		cfg.Embedding.Model = opts.Model
	}
	if opts.Store != "" {
		cfg.Store.Driver = opts.Store
	}
	if opts.DSN != "" {
		cfg.Store.PostgresDSN = opts.DSN
	}
	if err := config.ValidateOrError(cfg); err != nil {
		return ErrConfigInvalid(err)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	store, err := daemon.OpenStore(ctx, cfg, dir, logging.Discard())
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	store.Close()

	result := InitResult{
		Success:    true,
		DataDir:    dir,
		ConfigPath: loader.ConfigPath(),
		Message:    "Initialized successfully",
	}
	if cfg.Store.Driver == config.StoreSQLite {
		result.DatabasePath = filepath.Join(dir, db.DatabaseFile)
	}

	if jsonOutput {
		return out.JSON(result)
	}
	out.Success("Initialized %s", dir)
	out.Info("  config:   %s", result.ConfigPath)
	if result.DatabasePath != "" {
		out.Info("  database: %s", result.DatabasePath)
	}
	return nil
}
