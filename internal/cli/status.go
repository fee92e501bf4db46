package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
)

var (
	statusServer  string
	statusDocs    bool
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store, embedder and index status",
	Long: `Display the health of the store and the embedding provider, the
rescoring mode and index statistics.

With --server the status of a running ragd is shown instead of the local
data directory. --documents lists the stored documents (local only).

Examples:
  ragctl status
  ragctl status --documents
  ragctl status --server localhost:8420 --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusServer, "server", "", "Address of a running ragd (default: the local data directory)")
	statusCmd.Flags().BoolVar(&statusDocs, "documents", false, "List stored documents")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 10*time.Second, "Request timeout")
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := outputFor(cmd)

	if statusServer != "" {
		report, err := NewClient(statusServer, statusTimeout).Health(cmd.Context())
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			return out.JSON(report)
		}
		printHealth(out, statusServer, report)
		return nil
	}

	d, err := openDaemon(cmd.Context(), GetDataDir(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.Close()

	report := d.Health(cmd.Context())
	if !statusDocs {
		if IsJSONOutput() {
			return out.JSON(report)
		}
		printHealth(out, GetDataDir(), &report)
		return nil
	}

	docs, err := d.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}
	if IsJSONOutput() {
		return out.JSON(map[string]any{"health": report, "documents": docs})
	}
	printHealth(out, GetDataDir(), &report)
	out.Info("")
	rows := make([][]string, len(docs))
	for i, doc := range docs {
		rows[i] = []string{doc.ID, doc.Name, fmt.Sprint(doc.ChunkCount), doc.UpdatedAt.Format(time.RFC3339)}
	}
	out.Table([]string{"ID", "NAME", "CHUNKS", "UPDATED"}, rows)
	return nil
}

func printHealth(out *OutputFormatter, target string, h *daemon.HealthReport) {
	out.Info("Status: %s (%s)", h.Status, target)
	out.Info("")
	out.Info("Components:")
	out.Info("  Store:    %s", h.Store)
	out.Info("  Embedder: %s (%s)", h.Embedder, h.Model)
	out.Info("  Rescore:  %s", h.RescoreMode)
	out.Info("")
	out.Info("Index:")
	out.Info("  Documents: %d", h.Index.TotalDocuments)
	out.Info("  Chunks:    %d", h.Index.TotalChunks)
	if !h.Index.LastIndexedAt.IsZero() {
		out.Info("  Last indexed: %s", h.Index.LastIndexedAt.Format(time.RFC3339))
	}
	if h.Index.IndexingActive {
		out.Info("  Indexing in progress")
	}
	if h.Uptime != "" {
		out.Info("  Uptime:    %s", h.Uptime)
	}
	if h.Status != daemon.HealthOK {
		out.Warn("one or more components are unhealthy")
	}
}
