package cli

import (
	"context"
	"errors"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/api"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	Long: `Open the index in --data-dir and serve the HTTP API until interrupted.

Routes:
  POST   /api/v1/search         hybrid search
  POST   /api/v1/chunk          chunking preview
  POST   /api/v1/documents      ingest a document
  GET    /api/v1/documents      list documents
  GET    /api/v1/documents/{id} get a document
  DELETE /api/v1/documents/{id} delete a document
  GET    /health                store and embedder health
  GET    /metrics               Prometheus metrics

Examples:
  ragctl serve
  ragctl serve --host 0.0.0.0 --port 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default: server.host from the config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default: server.port from the config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(GetDataDir())
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg, IsVerbose())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), daemon.ShutdownSignals()...)
	defer stop()

	d, err := daemon.New(ctx, cfg, GetDataDir(), logger)
	if err != nil {
		return err
	}
	defer d.Close()

	logger.Info("starting ragctl serve", "version", Version, "data_dir", GetDataDir(), "addr", cfg.Server.Address())
	return Serve(ctx, d)
}

// Serve serves the HTTP API of d until ctx is done.
func Serve(ctx context.Context, d *daemon.Daemon) error {
	router := api.NewRouter(d, api.Options{Metrics: d.Metrics(), Logger: d.Logger()})
	if err := d.Run(ctx, router); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
