package types

import (
	"time"
	"unicode/utf8"
)

// SummaryProblemLength is the display truncation limit for the problem
// field in search results.
const SummaryProblemLength = 200

// SolutionSummary is the lightweight search result payload. Problem is
// truncated for display; fetch the full record with a direct lookup.
type SolutionSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Problem       string    `json:"problem"`
	Relevance     float64   `json:"relevance"`
	SemanticScore float64   `json:"semantic_score"`
	KeywordScore  float64   `json:"keyword_score"`
	ProjectName   string    `json:"project_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Tags          []string  `json:"tags"`
}

// TruncateProblem shortens s to SummaryProblemLength characters without
// splitting a multi-byte rune, appending "..." when anything was cut.
func TruncateProblem(s string) string {
	if utf8.RuneCountInString(s) <= SummaryProblemLength {
		return s
	}
	n := 0
	for i := range s {
		if n == SummaryProblemLength {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
