package embedder

import "strings"

// ModelInfo describes a known embedding model.
type ModelInfo struct {
	Name        string
	Dimensions  int
	ContextSize int
}

// KnownModels lists models whose vector size can be inferred from the name.
var KnownModels = []ModelInfo{
	{Name: "nomic-embed-text", Dimensions: 768, ContextSize: 8192},
	{Name: "mxbai-embed-large", Dimensions: 1024, ContextSize: 512},
	{Name: "all-minilm", Dimensions: 384, ContextSize: 256},
	{Name: "bge-m3", Dimensions: 1024, ContextSize: 8192},
	{Name: "text-embedding-3-small", Dimensions: 1536, ContextSize: 8191},
	{Name: "text-embedding-3-large", Dimensions: 3072, ContextSize: 8191},
	{Name: "text-embedding-ada-002", Dimensions: 1536, ContextSize: 8191},
}

// DefaultDimensions is assumed for unknown models when nothing is configured.
const DefaultDimensions = 768

// LookupModel finds a known model, ignoring case and any ":tag" suffix.
func LookupModel(name string) (ModelInfo, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	for _, m := range KnownModels {
		if m.Name == name {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// DimensionsFor returns override when set, else the known size of model,
// else DefaultDimensions.
func DimensionsFor(model string, override int) int {
	if override > 0 {
		return override
	}
	if m, ok := LookupModel(model); ok {
		return m.Dimensions
	}
	return DefaultDimensions
}
