package rerank

import (
	"fmt"
	"strings"
)

// BuildPrompt asks for one score per passage, in passage order, as a bare
// JSON array.
func BuildPrompt(query string, passages []string) string {
	var sb strings.Builder
	sb.WriteString("You are a relevance ranking expert. For each given text passage, ")
	sb.WriteString("evaluate its relevance to the query on a scale from 0.0 to 1.0.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\n", query)
	sb.WriteString("Passages:\n")
	for i, p := range passages {
		fmt.Fprintf(&sb, "%d. %s\n\n", i+1, p)
	}
	sb.WriteString("Provide the relevance scores as a JSON array: [score1, score2, ..., scoreN]\n")
	sb.WriteString("Return ONLY the JSON array, nothing else.\n")
	sb.WriteString("Example: [0.95, 0.72, 0.38]")
	return sb.String()
}
