package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/solmem-mcp/internal/redact"
	"github.com/dshills/solmem-mcp/pkg/types"
)

// redactInput strips privacy-marked spans from every text field of the
// payload, returning a cleaned copy. Validation runs on the result, so a
// field that is entirely privacy-marked fails as empty.
func redactInput(in types.SolutionInput) types.SolutionInput {
	out := types.SolutionInput{
		Title:         strings.TrimSpace(redact.Strip(in.Title)),
		Problem:       strings.TrimSpace(redact.Strip(in.Problem)),
		Solution:      strings.TrimSpace(redact.Strip(in.Solution)),
		RootCause:     strings.TrimSpace(redact.Strip(in.RootCause)),
		ErrorMessages: redact.StripAll(in.ErrorMessages),
		ProjectName:   strings.TrimSpace(redact.Strip(in.ProjectName)),
	}
	for _, tag := range in.Tags {
		name := strings.TrimSpace(redact.Strip(tag.Name))
		if name == "" {
			continue
		}
		out.Tags = append(out.Tags, types.TagInput{Name: name, Category: tag.Category})
	}
	return out
}

// validateInput checks the redacted payload. Title, problem and solution
// must be non-empty; tag categories must be from the closed set.
func validateInput(in types.SolutionInput) error {
	if in.Title == "" {
		return &types.ValidationError{Field: "title", Reason: "required and must be non-empty"}
	}
	if utf8.RuneCountInString(in.Title) > types.MaxTitleLength {
		return &types.ValidationError{Field: "title", Reason: "exceeds 500 characters"}
	}
	if in.Problem == "" {
		return &types.ValidationError{Field: "problem", Reason: "required and must be non-empty"}
	}
	if in.Solution == "" {
		return &types.ValidationError{Field: "solution", Reason: "required and must be non-empty"}
	}
	for _, tag := range in.Tags {
		if !types.ValidCategory(tag.Category) {
			return &types.ValidationError{Field: "tags", Reason: "unknown category for tag " + tag.Name}
		}
	}
	return nil
}

// buildDocument assembles the embedding input: the problem text followed
// by the joined error messages.
func buildDocument(problem string, errorMessages []string) string {
	if len(errorMessages) == 0 {
		return problem
	}
	return problem + " Error messages: " + strings.Join(errorMessages, " | ")
}
