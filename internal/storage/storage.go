package storage

import (
	"context"

	"github.com/dshills/solmem-mcp/pkg/types"
)

// Store defines the interface for the relational system of record.
type Store interface {
	// SaveSolution persists a record, its tags, and the tag links as one
	// atomic transaction. The FTS projection is updated inside the same
	// transaction. Tag names are matched case-insensitively; unmatched
	// names create a new tag row with the supplied category.
	SaveSolution(ctx context.Context, sol *types.Solution, tags []types.TagInput) error

	// GetSolution fetches a record by id, joined with its tags. A missing
	// id is types.ErrNotFound.
	GetSolution(ctx context.Context, id string) (*types.Solution, error)

	// GetSolutionsByIDs fetches multiple records with their tags. Missing
	// ids are silently skipped.
	GetSolutionsByIDs(ctx context.Context, ids []string) ([]*types.Solution, error)

	// SearchText runs a BM25 full-text query, optionally restricted to
	// records carrying every tag in tagFilter. Scores are raw; higher is
	// better. Normalization is the search engine's job.
	SearchText(ctx context.Context, query string, limit int, tagFilter []string) ([]TextResult, error)

	// FilterByTags returns the subset of ids whose records carry every
	// tag in tags (AND semantics), matched case-insensitively.
	FilterByTags(ctx context.Context, ids []string, tags []string) ([]string, error)

	// ListTags returns every tag with a live association count, computed
	// by aggregation at query time. Category is optional.
	ListTags(ctx context.Context, category types.TagCategory) ([]types.TagCount, error)

	// SetStatus transitions a record's index status.
	SetStatus(ctx context.Context, id string, status types.IndexStatus) error

	// DeleteSolution removes a record; associations cascade. No tool
	// invokes this, but the schema supports it.
	DeleteSolution(ctx context.Context, id string) (bool, error)

	// Stats returns record and tag counts.
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// TextResult is one lexical-branch hit.
type TextResult struct {
	SolutionID string
	Score      float64 // raw BM25-derived score, higher is better
}

// Stats contains store-level counts.
type Stats struct {
	Solutions int
	Tags      int
	Degraded  int
}
