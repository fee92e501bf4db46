package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/api"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/chunker"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/pathutil"
)

var (
	indexForce   bool
	indexPrune   bool
	indexServer  string
	indexTimeout time.Duration
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a file or directory",
	Long: `Chunk, embed and store a file or every matching file in a directory.

Directories are scanned with the include and exclude patterns from the
config plus a .ragignore file in the directory. Files that have not
changed since they were stored are skipped unless --force is given.
--prune deletes documents whose files are gone.

With --server the files are sent to a running ragd instead of the local
index.

Examples:
  ragctl index docs/
  ragctl index docs/ --force --prune
  ragctl index README.md
  ragctl index docs/ --server localhost:8420`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "Re-index files that have not changed")
	indexCmd.Flags().BoolVar(&indexPrune, "prune", false, "Delete documents whose files no longer exist")
	indexCmd.Flags().StringVar(&indexServer, "server", "", "Address of a running ragd (default: the local index)")
	indexCmd.Flags().DurationVar(&indexTimeout, "timeout", 5*time.Minute, "Request timeout per file when using --server")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return ErrIndexFailed(err)
	}

	if indexServer != "" {
		return indexRemote(cmd, path, info.IsDir())
	}

	d, err := openDaemon(cmd.Context(), GetDataDir(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.Close()

	out := outputFor(cmd)
	if !info.IsDir() {
		doc, err := d.Indexer().IndexFile(cmd.Context(), filepath.Dir(path), path)
		if err != nil {
			return ErrIndexFailed(err)
		}
		if IsJSONOutput() {
			return out.JSON(doc)
		}
		out.Success("Indexed %s (%d chunks)", doc.Name, doc.ChunkCount)
		return nil
	}

	opts := daemon.IndexOptions{Force: indexForce, Prune: indexPrune}
	if IsVerbose() && !IsJSONOutput() {
		opts.OnProgress = func(p daemon.ProgressSnapshot) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %d/%d files (%.0f%%), %d chunks, ETA %s\n",
				p.Completed, p.Total, p.Percentage(), p.Chunks, daemon.FormatETA(p.ETA))
		}
	}

	summary, err := d.Indexer().IndexDirectory(cmd.Context(), path, opts)
	if err != nil {
		return ErrIndexFailed(err)
	}
	if IsJSONOutput() {
		return out.JSON(summary)
	}
	printIndexSummary(out, summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed to index", summary.Failed, summary.Indexed+summary.Failed)
	}
	return nil
}

func printIndexSummary(out *OutputFormatter, s *daemon.IndexSummary) {
	out.Success("Indexed %d files (%d chunks) in %s", s.Indexed, s.Chunks, s.Duration.Round(time.Millisecond))
	if s.Unchanged > 0 {
		out.Info("  %d unchanged", s.Unchanged)
	}
	if s.Deleted > 0 {
		out.Info("  %d deleted", s.Deleted)
	}
	if s.Skipped > 0 {
		out.Info("  %d skipped (binary or minified)", s.Skipped)
	}
	for _, e := range s.Errors {
		out.Warn("%s", e)
	}
}

// indexRemote sends each matching file to the server. Unchanged files are
// not detected remotely, so every file is sent.
func indexRemote(cmd *cobra.Command, path string, isDir bool) error {
	cfg, err := loadConfig(GetDataDir())
	if err != nil {
		return err
	}

	root, files := filepath.Dir(path), []string{path}
	if isDir {
		root = path
		files, err = scanFiles(cmd.Context(), path, cfg.Index)
		if err != nil {
			return ErrIndexFailed(err)
		}
	}

	client := NewClient(indexServer, indexTimeout)
	out := outputFor(cmd)
	summary := &daemon.IndexSummary{Root: root}
	start := time.Now()

	for _, file := range files {
		chunks, err := ingestRemote(cmd.Context(), client, root, file)
		if chunker.IsSkippable(err) {
			summary.Skipped++
			continue
		}
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		summary.Indexed++
		summary.Chunks += chunks
	}
	summary.Duration = time.Since(start)

	if IsJSONOutput() {
		return out.JSON(summary)
	}
	printIndexSummary(out, summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed to index", summary.Failed, len(files))
	}
	return nil
}

func ingestRemote(ctx context.Context, client *Client, root, file string) (int, error) {
	req, err := fileIngestRequest(root, file)
	if err != nil {
		return 0, err
	}
	doc, err := client.Ingest(ctx, req)
	if err != nil {
		return 0, err
	}
	return doc.ChunkCount, nil
}

// scanFiles lists the files under root that the index patterns select.
func scanFiles(ctx context.Context, root string, cfg config.IndexConfig) ([]string, error) {
	scanner, err := daemon.NewScanner(root, cfg)
	if err != nil {
		return nil, err
	}
	scan, err := scanner.Scan(ctx, nil)
	if err != nil {
		return nil, err
	}
	return scan.Added, nil
}

func fileIngestRequest(root, file string) (api.IngestRequest, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return api.IngestRequest{}, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return api.IngestRequest{}, err
	}
	if err := chunker.CheckContent(content, abs); err != nil {
		return api.IngestRequest{}, err
	}
	return api.IngestRequest{
		Name:     pathutil.DocumentName(root, abs),
		Source:   abs,
		Text:     string(content),
		Metadata: map[string]string{"path": filepath.ToSlash(abs)},
	}, nil
}
