package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/api"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/chunker"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/output"
)

var (
	chunkSize    int
	chunkOverlap int
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Preview how a file is split into chunks",
	Long: `Split a file the way ingestion would and print the chunks.

Uses the chunk size and overlap from the config unless --size or
--overlap is given. Pass - to read from standard input. Nothing is
embedded or stored.

Examples:
  ragctl chunk docs/guide.md
  ragctl chunk docs/guide.md --size 200 --overlap 20
  cat notes.txt | ragctl chunk - --json`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	chunkCmd.Flags().IntVar(&chunkSize, "size", chunker.DefaultChunkSize, "Maximum chunk length in characters")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", chunker.DefaultOverlap, "Characters repeated from the previous chunk")
}

func runChunk(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(GetDataDir())
	if err != nil {
		return err
	}
	size, overlap := cfg.Chunking.ChunkSize, cfg.Chunking.Overlap
	if cmd.Flags().Changed("size") {
		size = chunkSize
	}
	if cmd.Flags().Changed("overlap") {
		overlap = chunkOverlap
	}
	if size < 1 || overlap < 0 || overlap >= size {
		return ErrInvalidChunking(size, overlap)
	}

	chunks := chunker.ChunkText(text, size, overlap)

	out := outputFor(cmd)
	if IsJSONOutput() {
		return out.JSON(api.ChunkResponse{
			Chunks:    chunks,
			Count:     len(chunks),
			ChunkSize: size,
			Overlap:   overlap,
		})
	}
	formatter := output.NewFormatter(output.FormatNormal, useColors(out.Writer()))
	fmt.Fprint(out.Writer(), formatter.FormatChunks(chunks))
	return nil
}

// readInput reads a file, or standard input when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
