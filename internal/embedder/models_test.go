package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupModel(t *testing.T) {
	tests := []struct {
		name  string
		model string
		dims  int
		found bool
	}{
		{"plain", "nomic-embed-text", 768, true},
		{"with tag", "nomic-embed-text:latest", 768, true},
		{"case and spaces", "  MXBAI-EMBED-LARGE ", 1024, true},
		{"openai", "text-embedding-3-large", 3072, true},
		{"unknown", "my-custom-model", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := LookupModel(tt.model)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.dims, info.Dimensions)
		})
	}
}

func TestDimensionsFor(t *testing.T) {
	assert.Equal(t, 512, DimensionsFor("nomic-embed-text", 512))
	assert.Equal(t, 1536, DimensionsFor("text-embedding-3-small", 0))
	assert.Equal(t, DefaultDimensions, DimensionsFor("unknown", 0))
}
