package rerank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/llm"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// =============================================================================
// Test Helpers
// =============================================================================

var passageLine = regexp.MustCompile(`(?m)^\d+\. (.+)$`)

// scoreByText answers each prompt with the scores of its passages, in order.
func scoreByText(scores map[string]float64) func(string) (string, error) {
	return func(prompt string) (string, error) {
		var parts []string
		for _, m := range passageLine.FindAllStringSubmatch(prompt, -1) {
			parts = append(parts, fmt.Sprintf("%.2f", scores[m[1]]))
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}
}

func records(texts ...string) []models.MergedRecord {
	out := make([]models.MergedRecord, len(texts))
	for i, text := range texts {
		out[i] = models.MergedRecord{
			ChunkID:       fmt.Sprintf("id%d", i+1),
			DocumentID:    "doc",
			Text:          text,
			CombinedScore: models.Float(0.5),
		}
	}
	return out
}

func chunkIDs(recs []models.MergedRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ChunkID
	}
	return out
}

type recordingFallbacks struct {
	mu      sync.Mutex
	reasons []string
	records int
}

func (r *recordingFallbacks) ObserveFallback(reason string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
	r.records += n
}

// =============================================================================
// LLM Mode Tests
// =============================================================================

func TestLLMRescorer_OrdersByModelScore(t *testing.T) {
	client := &llm.MockClient{Respond: scoreByText(map[string]float64{
		"alpha": 0.2,
		"beta":  0.9,
		"gamma": 0.5,
	})}
	r := NewLLMRescorer(client, DefaultConfig())

	got, err := r.Rescore(context.Background(), "greek letters", records("alpha", "beta", "gamma"))
	require.NoError(t, err)

	assert.Equal(t, []string{"id2", "id3", "id1"}, chunkIDs(got))
	assert.InDelta(t, 0.9, *got[0].LLMScore, 1e-9)
	assert.InDelta(t, 0.5, *got[1].LLMScore, 1e-9)
	assert.InDelta(t, 0.2, *got[2].LLMScore, 1e-9)
	assert.Equal(t, 1, client.Calls())
}

func TestLLMRescorer_UsesLowTemperature(t *testing.T) {
	client := llm.NewMockClient("[0.5]")
	r := NewLLMRescorer(client, DefaultConfig())

	_, err := r.Rescore(context.Background(), "q", records("only"))
	require.NoError(t, err)

	opts := client.LastOptions()
	assert.Equal(t, 0.1, opts.Temperature)
	assert.Equal(t, 1024, opts.MaxTokens)
}

func TestLLMRescorer_Batches(t *testing.T) {
	texts := make([]string, 12)
	scores := make(map[string]float64)
	for i := range texts {
		texts[i] = fmt.Sprintf("passage %02d", i)
		scores[texts[i]] = float64(i) / 20
	}
	client := &llm.MockClient{Respond: scoreByText(scores)}
	r := NewLLMRescorer(client, DefaultConfig())

	got, err := r.Rescore(context.Background(), "passages", records(texts...))
	require.NoError(t, err)

	assert.Equal(t, 3, client.Calls())
	require.Len(t, got, 12)
	// highest text index scores highest
	assert.Equal(t, "passage 11", got[0].Text)
	assert.Equal(t, "passage 00", got[11].Text)
	for _, p := range client.Prompts() {
		assert.LessOrEqual(t, len(passageLine.FindAllString(p, -1)), 5)
	}
}

func TestLLMRescorer_TiesBrokenByChunkID(t *testing.T) {
	client := llm.NewMockClient("[0.5, 0.5, 0.5]")
	r := NewLLMRescorer(client, DefaultConfig())

	in := records("c", "a", "b")
	in[0].ChunkID, in[1].ChunkID, in[2].ChunkID = "z", "m", "a"

	got, err := r.Rescore(context.Background(), "q", in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, chunkIDs(got))
}

func TestLLMRescorer_DoesNotMutateInput(t *testing.T) {
	client := llm.NewMockClient("[0.1, 0.9]")
	r := NewLLMRescorer(client, DefaultConfig())
	in := records("first", "second")

	_, err := r.Rescore(context.Background(), "q", in)
	require.NoError(t, err)

	assert.Nil(t, in[0].LLMScore)
	assert.Nil(t, in[1].LLMScore)
	assert.Equal(t, []string{"id1", "id2"}, chunkIDs(in))
}

func TestLLMRescorer_EmptyInput(t *testing.T) {
	client := llm.NewMockClient("[0.5]")
	r := NewLLMRescorer(client, DefaultConfig())

	got, err := r.Rescore(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, client.Calls())
}

// =============================================================================
// Fallback Tests
// =============================================================================

func TestLLMRescorer_FallsBackOnClientError(t *testing.T) {
	client := &llm.MockClient{Err: errors.New("connection refused")}
	fallbacks := &recordingFallbacks{}
	r := NewLLMRescorer(client, DefaultConfig(), WithFallbackObserver(fallbacks))
	synthetic := NewSyntheticScorer(DefaultSyntheticConfig())

	in := records("vector search engines", "cooking recipes for pasta")
	got, err := r.Rescore(context.Background(), "vector search", in)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "id1", got[0].ChunkID)
	for _, rec := range got {
		require.NotNil(t, rec.LLMScore)
		assert.Equal(t, synthetic.Score("vector search", rec.Text), *rec.LLMScore)
	}
	assert.Equal(t, []string{FallbackError}, fallbacks.reasons)
	assert.Equal(t, 2, fallbacks.records)
}

func TestLLMRescorer_FallsBackOnMalformedReply(t *testing.T) {
	client := llm.NewMockClient("Sorry, I can't score these.")
	fallbacks := &recordingFallbacks{}
	r := NewLLMRescorer(client, DefaultConfig(), WithFallbackObserver(fallbacks))

	got, err := r.Rescore(context.Background(), "q", records("one", "two"))
	require.NoError(t, err)

	for _, rec := range got {
		assert.NotNil(t, rec.LLMScore)
	}
	assert.Equal(t, []string{FallbackMalformed}, fallbacks.reasons)
}

func TestLLMRescorer_NaNReplyFallsBack(t *testing.T) {
	client := llm.NewMockClient("[NaN, 0.5]")
	fallbacks := &recordingFallbacks{}
	r := NewLLMRescorer(client, DefaultConfig(), WithFallbackObserver(fallbacks))

	got, err := r.Rescore(context.Background(), "q", records("one", "two"))
	require.NoError(t, err)

	for _, rec := range got {
		require.NotNil(t, rec.LLMScore)
		assert.False(t, math.IsNaN(*rec.LLMScore))
		assert.GreaterOrEqual(t, *rec.LLMScore, 0.0)
		assert.LessOrEqual(t, *rec.LLMScore, 1.0)
	}
	assert.Equal(t, []string{FallbackMalformed}, fallbacks.reasons)
}

func TestLLMRescorer_FallbackIsPerBatch(t *testing.T) {
	texts := []string{"b1", "b2", "b3", "b4", "b5", "broken"}
	client := &llm.MockClient{Respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "broken") {
			return "", errors.New("status 503")
		}
		return "[0.9, 0.9, 0.9, 0.9, 0.9]", nil
	}}
	r := NewLLMRescorer(client, DefaultConfig())

	got, err := r.Rescore(context.Background(), "q", records(texts...))
	require.NoError(t, err)

	byText := make(map[string]float64)
	for _, rec := range got {
		require.NotNil(t, rec.LLMScore)
		byText[rec.Text] = *rec.LLMScore
	}
	assert.InDelta(t, 0.9, byText["b1"], 1e-9)
	assert.Equal(t, NewSyntheticScorer(SyntheticConfig{}).Score("q", "broken"), byText["broken"])
}

func TestLLMRescorer_EveryRecordScoredInRange(t *testing.T) {
	replies := []string{"[2.5, -1]", "nonsense", "[0.3"}
	for _, reply := range replies {
		t.Run(reply, func(t *testing.T) {
			r := NewLLMRescorer(llm.NewMockClient(reply), DefaultConfig())
			got, err := r.Rescore(context.Background(), "query text", records("first text", "second text"))
			require.NoError(t, err)
			for _, rec := range got {
				require.NotNil(t, rec.LLMScore)
				assert.GreaterOrEqual(t, *rec.LLMScore, 0.0)
				assert.LessOrEqual(t, *rec.LLMScore, 1.0)
			}
		})
	}
}

// =============================================================================
// Synthetic Mode Tests
// =============================================================================

func TestLLMRescorer_SyntheticModeSkipsModel(t *testing.T) {
	client := llm.NewMockClient("[1, 1]")
	cfg := DefaultConfig()
	cfg.Mode = ModeSynthetic
	r := NewLLMRescorer(client, cfg)

	got, err := r.Rescore(context.Background(), "hybrid search", records("unrelated", "hybrid search merges lists"))
	require.NoError(t, err)

	assert.Zero(t, client.Calls())
	assert.Equal(t, "id2", got[0].ChunkID)
	assert.Equal(t, ModeSynthetic, r.Mode())
}

func TestLLMRescorer_NilClientIsSynthetic(t *testing.T) {
	r := NewLLMRescorer(nil, DefaultConfig())
	assert.Equal(t, ModeSynthetic, r.Mode())

	got, err := r.Rescore(context.Background(), "q", records("text"))
	require.NoError(t, err)
	assert.NotNil(t, got[0].LLMScore)
}

// =============================================================================
// Cancellation Tests
// =============================================================================

func TestLLMRescorer_CancelledContext(t *testing.T) {
	client := llm.NewMockClient("[0.5]")
	r := NewLLMRescorer(client, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := r.Rescore(ctx, "q", records("a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Zero(t, client.Calls())
}

func TestLLMRescorer_CancelledDuringScoring(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &llm.MockClient{Respond: func(string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	cfg := DefaultConfig()
	cfg.Concurrency = 1
	r := NewLLMRescorer(client, cfg)

	texts := make([]string, 15)
	for i := range texts {
		texts[i] = fmt.Sprintf("t%d", i)
	}
	got, err := r.Rescore(ctx, "q", records(texts...))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Equal(t, 1, client.Calls())
}

// =============================================================================
// Config Tests
// =============================================================================

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"llm", ModeLLM, false},
		{"", ModeLLM, false},
		{"SYNTHETIC", ModeSynthetic, false},
		{" synthetic ", ModeSynthetic, false},
		{"random", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{}.normalize()

	assert.Equal(t, ModeLLM, cfg.Mode)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 1024, cfg.MaxTokens)
	assert.Equal(t, DefaultSyntheticConfig(), cfg.Synthetic)
}
