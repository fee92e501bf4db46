package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/api"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/metrics"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/output"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

var (
	searchTopK           int
	searchMinScore       float64
	searchStrategy       string
	searchSemanticWeight float64
	searchKeywordWeight  float64
	searchMaxPerDoc      int
	searchDedup          bool
	searchRRFK           int
	searchFilter         string
	searchThreshold      float64
	searchRescore        bool
	searchDocument       string
	searchServer         string
	searchTimeout        time.Duration
	searchMetrics        bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed documents",
	Long: `Search the indexed documents with hybrid retrieval.

Runs a vector search and a full-text search, fuses the scores with the
chosen strategy and prints the best passages. Flags override the search
defaults from the config for this query only.

By default the local index in --data-dir is searched in process. With
--server the query is sent to a running ragd instead.

Examples:
  ragctl search "refund policy"
  ragctl search "refund policy" --top-k 5 --strategy rrf
  ragctl search "password reset" --filter threshold --threshold 0.4
  ragctl search "password reset" --rescore -v
  ragctl search "onboarding" --metrics
  ragctl search "billing" --server localhost:8420 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	f := searchCmd.Flags()
	f.IntVarP(&searchTopK, "top-k", "k", search.DefaultTopK, "Maximum results")
	f.Float64Var(&searchMinScore, "min-score", search.DefaultMinScoreThreshold, "Minimum combined score; under RRF a share of the best possible score")
	f.StringVarP(&searchStrategy, "strategy", "s", "", "Rerank strategy (weighted_sum, max_score, rrf)")
	f.Float64Var(&searchSemanticWeight, "semantic-weight", search.DefaultSemanticWeight, "Weight of the vector score")
	f.Float64Var(&searchKeywordWeight, "keyword-weight", search.DefaultKeywordWeight, "Weight of the keyword score")
	f.IntVar(&searchMaxPerDoc, "max-per-doc", search.DefaultMaxChunksPerDocument, "Maximum chunks per document")
	f.BoolVar(&searchDedup, "dedup", false, "Remove near-duplicate chunks")
	f.IntVar(&searchRRFK, "rrf-k", search.DefaultRRFK, "RRF rank constant")
	f.StringVar(&searchFilter, "filter", "", "Relevance filter (noop, threshold, llm_score)")
	f.Float64Var(&searchThreshold, "threshold", search.DefaultRelevanceThreshold, "Relevance filter threshold")
	f.BoolVar(&searchRescore, "rescore", false, "Rescore candidates with the configured rescorer")
	f.StringVar(&searchDocument, "document", "", "Only search chunks of this document id")
	f.StringVar(&searchServer, "server", "", "Address of a running ragd (default: search the local index)")
	f.DurationVar(&searchTimeout, "timeout", 2*time.Minute, "Request timeout")
	f.BoolVar(&searchMetrics, "metrics", false, "Show token estimates and context savings")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), searchTimeout)
	defer cancel()

	req := buildSearchRequest(cmd, query)

	var (
		resp     *search.Response
		baseline *metrics.BaselineEstimate
		err      error
	)
	if searchServer != "" {
		resp, err = NewClient(searchServer, searchTimeout).Search(ctx, req)
	} else {
		resp, baseline, err = searchLocal(ctx, cmd, req)
	}
	if err != nil {
		return err
	}

	if err := printSearchResponse(cmd, query, resp); err != nil {
		return err
	}
	if searchMetrics && !IsJSONOutput() {
		printSearchMetrics(outputFor(cmd), resp, baseline)
	}
	return nil
}

// buildSearchRequest copies the flags the user set into a request. Unset
// flags stay nil so the configured defaults apply.
func buildSearchRequest(cmd *cobra.Command, query string) api.SearchRequest {
	f := cmd.Flags()
	req := api.SearchRequest{Query: query}

	if f.Changed("top-k") {
		req.TopK = &searchTopK
	}
	if f.Changed("min-score") {
		req.MinScoreThreshold = &searchMinScore
	}
	if f.Changed("semantic-weight") {
		req.SemanticWeight = &searchSemanticWeight
	}
	if f.Changed("keyword-weight") {
		req.KeywordWeight = &searchKeywordWeight
	}
	if f.Changed("max-per-doc") {
		req.MaxChunksPerDocument = &searchMaxPerDoc
	}
	if f.Changed("dedup") {
		req.RemoveDuplicates = &searchDedup
	}
	if f.Changed("rrf-k") {
		req.RRFK = &searchRRFK
	}
	if f.Changed("threshold") {
		req.RelevanceThreshold = &searchThreshold
	}
	if f.Changed("rescore") {
		req.Rescore = &searchRescore
	}
	req.RerankStrategy = searchStrategy
	req.RelevanceFilter = searchFilter
	req.DocumentID = searchDocument
	return req
}

// searchLocal runs the query in process. With --metrics it also estimates
// the tokens of the matched documents read in full.
func searchLocal(ctx context.Context, cmd *cobra.Command, req api.SearchRequest) (*search.Response, *metrics.BaselineEstimate, error) {
	d, err := openDaemon(ctx, GetDataDir(), cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	defer d.Close()

	cfg, err := req.Apply(d.SearchDefaults())
	if err != nil {
		return nil, nil, ErrConfigInvalid(err)
	}
	resp, err := d.Search(ctx, req.Query, cfg)
	if err != nil || !searchMetrics {
		return resp, nil, err
	}

	docs, err := d.ListDocuments(ctx)
	if err != nil {
		return resp, nil, nil
	}
	matched := make(map[string]bool, len(resp.Results))
	for _, r := range resp.Results {
		matched[r.DocumentID] = true
	}
	var hits []*models.Document
	for _, doc := range docs {
		if matched[doc.ID] {
			hits = append(hits, doc)
		}
	}
	return resp, metrics.EstimateDocumentBaseline(hits, d.Config().Chunking.ChunkSize), nil
}

// printSearchMetrics prints the estimated token cost of the results. The
// comparison with whole documents needs a baseline, which only a local
// search provides.
func printSearchMetrics(out *OutputFormatter, resp *search.Response, baseline *metrics.BaselineEstimate) {
	m := metrics.FromSearchResults(resp.Results, time.Duration(resp.SearchTimeMs)*time.Millisecond)
	out.Info("")
	switch {
	case baseline == nil && IsVerbose():
		out.Info("%s", strings.TrimRight(metrics.FormatMetrics(m), "\n"))
	case baseline == nil:
		out.Info("%s", metrics.FormatMetricsSummary(m, nil))
	case IsVerbose():
		savings := metrics.CalculateSavings(m.TotalTokens, baseline.EstimatedTokens)
		out.Info("%s", strings.TrimRight(metrics.FormatMetricsWithComparison(m, baseline, savings), "\n"))
	default:
		savings := metrics.CalculateSavings(m.TotalTokens, baseline.EstimatedTokens)
		out.Info("%s", metrics.FormatMetricsSummary(m, &savings))
	}
}

func printSearchResponse(cmd *cobra.Command, query string, resp *search.Response) error {
	out := outputFor(cmd)
	if IsJSONOutput() {
		return out.JSON(resp)
	}

	mode := output.FormatNormal
	if IsVerbose() {
		mode = output.FormatVerbose
	}
	formatter := output.NewFormatter(mode, useColors(out.Writer()))
	formatter.Query = query

	if len(resp.Results) == 0 {
		out.Info("%s", formatter.FormatSummary(resp))
		for _, failure := range resp.Failures {
			out.Warn("%s", failure.Error())
		}
		out.Info("%s", ErrNoSearchResults(query).Error())
		return nil
	}

	out.Info("%s", strings.TrimRight(formatter.FormatResponse(resp), "\n"))
	return nil
}
