package vecstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/dshills/solmem-mcp/internal/storage"
)

// Result is one semantic-branch hit. Similarity is 1 - cosine distance,
// clipped to [0, 1].
type Result struct {
	SolutionID string
	Similarity float64
}

// Entry is a stored vector with its display metadata.
type Entry struct {
	SolutionID string
	Vector     []float32
	Title      string
	CreatedAt  time.Time
}

// VecStore persists embeddings in a SQLite file separate from the
// relational store, so unavailability of the semantic leg never affects
// the system of record.
type VecStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS vectors (
    solution_id TEXT PRIMARY KEY,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    title TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

// New opens (or creates) the vector store at dbPath.
func New(dbPath string) (*VecStore, error) {
	db, err := sql.Open(storage.DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create vector schema: %w", err)
	}

	return &VecStore{db: db}, nil
}

// Close closes the database connection.
func (v *VecStore) Close() error {
	return v.db.Close()
}

// Upsert stores the embedding for a solution id. The operation is keyed
// by id: repeating it with the same id leaves exactly one entry.
func (v *VecStore) Upsert(ctx context.Context, e Entry) error {
	_, err := v.db.ExecContext(ctx, `
		INSERT INTO vectors (solution_id, vector, dimension, title, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(solution_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			title = excluded.title
	`, e.SolutionID, SerializeVector(e.Vector), len(e.Vector), e.Title, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	return nil
}

// Search scans all stored vectors and returns the limit nearest entries
// by cosine similarity, best first. Entries whose dimension does not
// match the query are skipped.
func (v *VecStore) Search(ctx context.Context, queryVector []float32, limit int) ([]Result, error) {
	if limit <= 0 {
		return []Result{}, nil
	}

	rows, err := v.db.QueryContext(ctx, "SELECT solution_id, vector FROM vectors")
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]Result, 0, 64)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}

		vec := DeserializeVector(blob)
		if len(vec) != len(queryVector) {
			continue // dimension mismatch, likely a provider change
		}

		sim := 1.0 - cosineDistance(queryVector, vec)
		if sim < 0 {
			sim = 0
		} else if sim > 1 {
			sim = 1
		}
		results = append(results, Result{SolutionID: id, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes the vector for a solution id.
func (v *VecStore) Delete(ctx context.Context, solutionID string) (bool, error) {
	res, err := v.db.ExecContext(ctx, "DELETE FROM vectors WHERE solution_id = ?", solutionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete vector: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of stored vectors.
func (v *VecStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}
