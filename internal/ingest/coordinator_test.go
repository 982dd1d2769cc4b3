package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/solmem-mcp/internal/embedder"
	"github.com/dshills/solmem-mcp/internal/storage"
	"github.com/dshills/solmem-mcp/internal/vecstore"
	"github.com/dshills/solmem-mcp/pkg/types"
)

// failingVectorIndex always rejects upserts, simulating a dead semantic
// store.
type failingVectorIndex struct {
	calls int
}

func (f *failingVectorIndex) Upsert(ctx context.Context, e vecstore.Entry) error {
	f.calls++
	return errors.New("vector store unavailable")
}

// recordingVectorIndex captures upserts in memory.
type recordingVectorIndex struct {
	entries []vecstore.Entry
}

func (r *recordingVectorIndex) Upsert(ctx context.Context, e vecstore.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func newTestCoordinator(t *testing.T, vectors VectorIndex) (*Coordinator, storage.Store) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = emb.Close() })

	c := New(store, vectors, emb)
	// keep test retries fast
	c.retry = embedder.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}
	return c, store
}

func validInput() types.SolutionInput {
	return types.SolutionInput{
		Title:         "Docker OOM on startup",
		Problem:       "Container exits immediately with code 137",
		Solution:      "Raise the memory limit",
		RootCause:     "OOM killer",
		ErrorMessages: []string{"OOMKilled"},
		Tags: []types.TagInput{
			{Name: "docker", Category: types.CategoryTechStack},
		},
		ProjectName: "billing-api",
	}
}

func TestSaveSolution_HappyPath(t *testing.T) {
	vectors := &recordingVectorIndex{}
	c, store := newTestCoordinator(t, vectors)

	ctx := context.Background()
	id, err := c.SaveSolution(ctx, validInput())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sol, err := store.GetSolution(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIndexed, sol.Status)
	assert.Equal(t, []string{"docker"}, sol.Tags)

	require.Len(t, vectors.entries, 1)
	assert.Equal(t, id, vectors.entries[0].SolutionID)
	assert.NotEmpty(t, vectors.entries[0].Vector)
}

func TestSaveSolution_DistinctIDsForIdenticalContent(t *testing.T) {
	c, _ := newTestCoordinator(t, &recordingVectorIndex{})

	ctx := context.Background()
	first, err := c.SaveSolution(ctx, validInput())
	require.NoError(t, err)
	second, err := c.SaveSolution(ctx, validInput())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSaveSolution_DegradedOnVectorFailure(t *testing.T) {
	vectors := &failingVectorIndex{}
	c, store := newTestCoordinator(t, vectors)

	ctx := context.Background()
	id, err := c.SaveSolution(ctx, validInput())
	require.NoError(t, err) // semantic leg failure never fails the call
	require.NotEmpty(t, id)

	sol, err := store.GetSolution(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDegraded, sol.Status)
	assert.Equal(t, 2, vectors.calls) // bounded retries

	// the record is still keyword-searchable
	results, err := store.SearchText(ctx, "137", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].SolutionID)
}

func TestSaveSolution_Validation(t *testing.T) {
	c, _ := newTestCoordinator(t, &recordingVectorIndex{})
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*types.SolutionInput)
		field  string
	}{
		{"missing title", func(in *types.SolutionInput) { in.Title = "" }, "title"},
		{"whitespace title", func(in *types.SolutionInput) { in.Title = "   " }, "title"},
		{"title too long", func(in *types.SolutionInput) { in.Title = strings.Repeat("x", 501) }, "title"},
		{"missing problem", func(in *types.SolutionInput) { in.Problem = "" }, "problem"},
		{"missing solution", func(in *types.SolutionInput) { in.Solution = "" }, "solution"},
		{"bad tag category", func(in *types.SolutionInput) {
			in.Tags = []types.TagInput{{Name: "x", Category: "made_up"}}
		}, "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, err := c.SaveSolution(ctx, in)
			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSaveSolution_TitleAt500CharsIsAccepted(t *testing.T) {
	c, _ := newTestCoordinator(t, &recordingVectorIndex{})

	in := validInput()
	in.Title = strings.Repeat("x", 500)
	_, err := c.SaveSolution(context.Background(), in)
	assert.NoError(t, err)
}

func TestSaveSolution_PrivacyMarkersStripped(t *testing.T) {
	vectors := &recordingVectorIndex{}
	c, store := newTestCoordinator(t, vectors)

	in := validInput()
	in.Problem = "Login fails for [PRIVATE]user@corp.example[/PRIVATE] after deploy"
	in.Solution = "Rotate the [PRIVATE]API key abc123[/PRIVATE] and redeploy"
	in.ErrorMessages = []string{"[PRIVATE]token=secret[/PRIVATE]", "401 unauthorized"}

	ctx := context.Background()
	id, err := c.SaveSolution(ctx, in)
	require.NoError(t, err)

	sol, err := store.GetSolution(ctx, id)
	require.NoError(t, err)
	assert.NotContains(t, sol.Problem, "user@corp.example")
	assert.NotContains(t, sol.Problem, "[PRIVATE]")
	assert.NotContains(t, sol.Solution, "abc123")
	assert.Equal(t, []string{"401 unauthorized"}, sol.ErrorMessages)

	// nothing marked private reaches the embedding document either
	results, err := store.SearchText(ctx, "secret", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSaveSolution_FullyPrivateFieldFailsValidation(t *testing.T) {
	c, _ := newTestCoordinator(t, &recordingVectorIndex{})

	in := validInput()
	in.Problem = "[PRIVATE]everything about this is secret[/PRIVATE]"

	_, err := c.SaveSolution(context.Background(), in)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "problem", verr.Field)
}

func TestBuildDocument(t *testing.T) {
	assert.Equal(t, "p", buildDocument("p", nil))
	assert.Equal(t, "p Error messages: a | b", buildDocument("p", []string{"a", "b"}))
}
