package searcher

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/solmem-mcp/internal/embedder"
	"github.com/dshills/solmem-mcp/internal/storage"
	"github.com/dshills/solmem-mcp/internal/vecstore"
	"github.com/dshills/solmem-mcp/pkg/types"
)

// SearchMode selects which branches contribute to scoring.
type SearchMode string

const (
	ModeHybrid   SearchMode = "hybrid"
	ModeSemantic SearchMode = "semantic"
	ModeKeyword  SearchMode = "keyword"
)

// Scoring and limit defaults.
const (
	DefaultSemanticWeight = 0.6
	DefaultLimit          = 5
	MaxLimit              = 20
	// SemanticBudget bounds the embed-and-scan leg of a query so a slow
	// provider cannot stall the whole request past its latency target.
	SemanticBudget = 300 * time.Millisecond
)

// Request describes a single search call.
type Request struct {
	Query string
	Limit int
	Tags  []string
	Mode  SearchMode
}

// Response carries the ranked results. Degraded is set when the semantic
// branch was requested but could not contribute.
type Response struct {
	Results  []types.SolutionSummary
	Total    int
	Mode     SearchMode
	Degraded bool
}

// VectorSearcher is the slice of the vector store the engine needs.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]vecstore.Result, error)
}

// Engine fuses lexical and semantic retrieval.
type Engine struct {
	store          storage.Store
	vectors        VectorSearcher
	embedder       embedder.Embedder
	semanticWeight float64
	semanticBudget time.Duration
}

// New creates an Engine with default weighting and budget.
func New(store storage.Store, vectors VectorSearcher, emb embedder.Embedder) *Engine {
	return &Engine{
		store:          store,
		vectors:        vectors,
		embedder:       emb,
		semanticWeight: DefaultSemanticWeight,
		semanticBudget: SemanticBudget,
	}
}

// Search executes a query and returns ranked summaries. An empty result
// set is returned as a successful response with Total 0.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, &types.ValidationError{Field: "query", Reason: "is required"}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	mode := req.Mode
	switch mode {
	case ModeHybrid, ModeSemantic, ModeKeyword:
	default:
		mode = ModeHybrid
	}

	// Over-fetch per branch so fusion has candidates to reorder.
	fetchLimit := limit * 2

	var (
		kwScores  map[string]float64
		semScores map[string]float64
		semErr    error
	)

	g, gctx := errgroup.WithContext(ctx)

	if mode != ModeSemantic {
		g.Go(func() error {
			scores, err := e.keywordBranch(gctx, query, fetchLimit, req.Tags)
			if err != nil {
				return err
			}
			kwScores = scores
			return nil
		})
	}

	if mode != ModeKeyword && e.vectors != nil && e.embedder != nil {
		g.Go(func() error {
			scores, err := e.semanticBranch(gctx, query, fetchLimit, req.Tags)
			if err != nil {
				// Best effort: record and keep the request alive.
				semErr = err
				return nil
			}
			semScores = scores
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	degraded := false
	if mode != ModeKeyword && semScores == nil {
		degraded = true
		if semErr != nil {
			log.Printf("search: semantic branch unavailable, keyword-only: %v", semErr)
		}
		if kwScores == nil {
			// Semantic-only request with a dead semantic leg still
			// answers from the lexical index.
			scores, err := e.keywordBranch(ctx, query, fetchLimit, req.Tags)
			if err != nil {
				return nil, err
			}
			kwScores = scores
		}
		mode = ModeKeyword
	}

	normalize(kwScores)
	normalize(semScores)

	fused := fuse(mode, e.semanticWeight, kwScores, semScores)
	results, err := e.assemble(ctx, fused, kwScores, semScores, limit)
	if err != nil {
		return nil, err
	}

	return &Response{Results: results, Total: len(results), Mode: mode, Degraded: degraded}, nil
}

func (e *Engine) keywordBranch(ctx context.Context, query string, limit int, tags []string) (map[string]float64, error) {
	hits, err := e.store.SearchText(ctx, query, limit, tags)
	if err != nil {
		return nil, &types.StorageError{Op: "search_text", Err: err}
	}
	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		scores[h.SolutionID] = h.Score
	}
	return scores, nil
}

func (e *Engine) semanticBranch(ctx context.Context, query string, limit int, tags []string) (map[string]float64, error) {
	bctx, cancel := context.WithTimeout(ctx, e.semanticBudget)
	defer cancel()

	emb, err := e.embedder.GenerateEmbedding(bctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := e.vectors.Search(bctx, emb.Vector, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return map[string]float64{}, nil
	}

	allowed, err := e.tagAllowed(ctx, hits, tags)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		if allowed != nil {
			if _, ok := allowed[h.SolutionID]; !ok {
				continue
			}
		}
		scores[h.SolutionID] = h.Similarity
	}
	return scores, nil
}

// tagAllowed returns the subset of hit ids carrying every requested tag,
// or nil when no tag filter applies.
func (e *Engine) tagAllowed(ctx context.Context, hits []vecstore.Result, tags []string) (map[string]struct{}, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.SolutionID)
	}
	kept, err := e.store.FilterByTags(ctx, ids, tags)
	if err != nil {
		return nil, fmt.Errorf("tag filter: %w", err)
	}
	allowed := make(map[string]struct{}, len(kept))
	for _, id := range kept {
		allowed[id] = struct{}{}
	}
	return allowed, nil
}

// normFloor is the normalized score of the weakest candidate in a
// branch. A record the branch matched still carries weight in fusion;
// only records the branch never returned score zero.
const normFloor = 0.05

// normalize rescales scores in place via min-max within the candidate
// set, into [normFloor, 1.0]. A zero-variance set maps every score to
// 1.0, so the branch maximum is always exactly 1.0.
func normalize(scores map[string]float64) {
	if len(scores) == 0 {
		return
	}
	var min, max float64
	first := true
	for _, v := range scores {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		for id := range scores {
			scores[id] = 1.0
		}
		return
	}
	span := max - min
	for id, v := range scores {
		scores[id] = normFloor + (1-normFloor)*(v-min)/span
	}
}

// fuse combines normalized branch scores. A record missing from one
// branch contributes zero on that axis.
func fuse(mode SearchMode, semWeight float64, kw, sem map[string]float64) map[string]float64 {
	switch mode {
	case ModeKeyword:
		return kw
	case ModeSemantic:
		return sem
	}
	fused := make(map[string]float64, len(kw)+len(sem))
	for id, v := range sem {
		fused[id] = semWeight * v
	}
	for id, v := range kw {
		fused[id] += (1 - semWeight) * v
	}
	return fused
}

func (e *Engine) assemble(ctx context.Context, fused, kw, sem map[string]float64, limit int) ([]types.SolutionSummary, error) {
	if len(fused) == 0 {
		return []types.SolutionSummary{}, nil
	}

	ids := make([]string, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}

	// The relational store is authoritative: ids known only to the
	// vector index are dropped here.
	solutions, err := e.store.GetSolutionsByIDs(ctx, ids)
	if err != nil {
		return nil, &types.StorageError{Op: "load_results", Err: err}
	}

	results := make([]types.SolutionSummary, 0, len(solutions))
	for _, sol := range solutions {
		results = append(results, types.SolutionSummary{
			ID:            sol.ID,
			Title:         sol.Title,
			Problem:       types.TruncateProblem(sol.Problem),
			Relevance:     fused[sol.ID],
			SemanticScore: sem[sol.ID],
			KeywordScore:  kw[sol.ID],
			ProjectName:   sol.ProjectName,
			CreatedAt:     sol.CreatedAt,
			Tags:          sol.Tags,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
