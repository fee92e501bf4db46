package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
)

var (
	Version     = "0.1.0"
	BuildCommit = "unknown"
	BuildDate   = "unknown"

	jsonOutput bool
	verbose    bool
	configFile string
	dataDir    string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "ragctl - Hybrid retrieval and reranking for RAG",
	Long: `ragctl indexes text documents and searches them with hybrid retrieval.

Every query runs a vector search and a full-text search, merges the two
ranked lists, fuses their scores with a configurable strategy, filters
and optionally rescores the candidates with an LLM, and returns the best
passages with their rank and percentile.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnvironment,
}

// Execute runs the command tree. Build variables are read here because main
// sets them after package initialization.
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: <data-dir>/ragcore.yaml)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: ./"+config.DefaultDataDirName+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	cobra.OnInitialize(initDataDir)
}

func initDataDir() {
	if dataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to get current directory: %v\n", err)
			os.Exit(1)
		}
		dataDir = filepath.Join(wd, config.DefaultDataDirName)
	}
}

// loadEnvironment loads the env file so that RAGCORE_* and provider API
// keys set there are visible to the config loader. Variables already in the
// environment win. A missing file is ignored.
func loadEnvironment(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

func GetDataDir() string {
	return dataDir
}

func IsJSONOutput() bool {
	return jsonOutput
}

func IsVerbose() bool {
	return verbose
}
