package ingest

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/solmem-mcp/internal/embedder"
	"github.com/dshills/solmem-mcp/internal/storage"
	"github.com/dshills/solmem-mcp/internal/vecstore"
	"github.com/dshills/solmem-mcp/pkg/types"
)

// VectorIndex is the slice of the vector store the coordinator needs.
type VectorIndex interface {
	Upsert(ctx context.Context, e vecstore.Entry) error
}

// Coordinator performs the dual write: relational transaction first, then
// a best-effort embedding upsert.
type Coordinator struct {
	store    storage.Store
	vectors  VectorIndex
	embedder embedder.Embedder
	retry    embedder.RetryConfig
}

// New creates a Coordinator. All collaborators are passed explicitly so
// tests can substitute doubles for the vector index and the provider.
func New(store storage.Store, vectors VectorIndex, emb embedder.Embedder) *Coordinator {
	return &Coordinator{
		store:    store,
		vectors:  vectors,
		embedder: emb,
		retry:    embedder.DefaultRetryConfig(),
	}
}

// SaveSolution validates, redacts and persists a new record, returning
// its id. Two calls with identical content produce two distinct records;
// variants accumulate by design.
//
// The semantic leg never fails the call: after bounded retries the record
// is marked degraded and the id is still returned.
func (c *Coordinator) SaveSolution(ctx context.Context, in types.SolutionInput) (string, error) {
	in = redactInput(in)
	if err := validateInput(in); err != nil {
		return "", err
	}

	now := time.Now()
	sol := &types.Solution{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Problem:       in.Problem,
		Solution:      in.Solution,
		RootCause:     in.RootCause,
		ErrorMessages: in.ErrorMessages,
		ProjectName:   in.ProjectName,
		Status:        types.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := c.store.SaveSolution(ctx, sol, in.Tags); err != nil {
		return "", err
	}

	status := types.StatusIndexed
	if err := c.indexVector(ctx, sol); err != nil {
		log.Printf("semantic index leg failed for %s, marking degraded: %v", sol.ID, err)
		status = types.StatusDegraded
	}
	if err := c.store.SetStatus(ctx, sol.ID, status); err != nil {
		return "", err
	}
	sol.Status = status

	return sol.ID, nil
}

// indexVector embeds the problem text and upserts it into the vector
// index, retrying the whole leg with bounded backoff. The upsert is keyed
// by id, so repeats after a partial failure cannot create duplicates.
func (c *Coordinator) indexVector(ctx context.Context, sol *types.Solution) error {
	doc := buildDocument(sol.Problem, sol.ErrorMessages)

	_, err := embedder.RetryWithBackoff(ctx, c.retry, func() (struct{}, error) {
		emb, err := c.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: doc})
		if err != nil {
			return struct{}{}, err
		}
		err = c.vectors.Upsert(ctx, vecstore.Entry{
			SolutionID: sol.ID,
			Vector:     emb.Vector,
			Title:      sol.Title,
			CreatedAt:  sol.CreatedAt,
		})
		return struct{}{}, err
	})
	return err
}
