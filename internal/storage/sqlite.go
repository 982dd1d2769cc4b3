package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/solmem-mcp/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite with an FTS5
// lexical projection kept in sync by triggers.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSolution persists the record, its tags, and the links in one
// transaction. The FTS triggers fire inside the same transaction, so the
// lexical projection commits together with the base row.
func (s *SQLiteStore) SaveSolution(ctx context.Context, sol *types.Solution, tags []types.TagInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	msgs, err := json.Marshal(sol.ErrorMessages)
	if err != nil {
		return fmt.Errorf("marshal error messages: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO solutions (id, title, problem, solution, root_cause, error_messages, project_name, index_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sol.ID, sol.Title, sol.Problem, sol.Solution,
		nullString(sol.RootCause), string(msgs), nullString(sol.ProjectName),
		string(sol.Status), sol.CreatedAt, sol.UpdatedAt)
	if err != nil {
		return &types.StorageError{Op: "insert solution", Err: err}
	}

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		if err := s.linkTag(ctx, tx, sol.ID, tag); err != nil {
			return err
		}
		names = append(names, tag.Name)
	}
	sol.Tags = names

	if err := tx.Commit(); err != nil {
		return &types.StorageError{Op: "commit", Err: err}
	}
	return nil
}

// linkTag ensures the tag row exists and links it to the solution. The
// tags.name column carries COLLATE NOCASE, so both the insert conflict
// and the lookup match existing names case-insensitively.
func (s *SQLiteStore) linkTag(ctx context.Context, tx *sql.Tx, solutionID string, tag types.TagInput) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO tags (name, category) VALUES (?, ?)",
		tag.Name, string(tag.Category))
	if err != nil {
		return &types.StorageError{Op: "insert tag", Err: err}
	}

	var tagID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", tag.Name).Scan(&tagID)
	if err != nil {
		return &types.StorageError{Op: "lookup tag", Err: err}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO solution_tags (solution_id, tag_id) VALUES (?, ?)",
		solutionID, tagID)
	if err != nil {
		return &types.StorageError{Op: "link tag", Err: err}
	}
	return nil
}

// GetSolution fetches a record by id with its tags
func (s *SQLiteStore) GetSolution(ctx context.Context, id string) (*types.Solution, error) {
	query := `
		SELECT id, title, problem, solution, root_cause, error_messages,
		       project_name, index_status, created_at, updated_at
		FROM solutions
		WHERE id = ?
	`
	sol, err := scanSolution(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Op: "get solution", Err: err}
	}

	tags, err := s.tagsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	sol.Tags = tags[id]
	return sol, nil
}

// GetSolutionsByIDs fetches multiple records with their tags, skipping
// ids that no longer exist.
func (s *SQLiteStore) GetSolutionsByIDs(ctx context.Context, ids []string) ([]*types.Solution, error) {
	if len(ids) == 0 {
		return []*types.Solution{}, nil
	}

	query := `
		SELECT id, title, problem, solution, root_cause, error_messages,
		       project_name, index_status, created_at, updated_at
		FROM solutions
		WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, &types.StorageError{Op: "get solutions", Err: err}
	}
	defer func() { _ = rows.Close() }()

	solutions := make([]*types.Solution, 0, len(ids))
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, &types.StorageError{Op: "scan solution", Err: err}
		}
		solutions = append(solutions, sol)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Op: "get solutions", Err: err}
	}

	tags, err := s.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, sol := range solutions {
		if names, ok := tags[sol.ID]; ok {
			sol.Tags = names
		} else {
			sol.Tags = []string{}
		}
	}
	return solutions, nil
}

// tagsFor loads tag names for a set of solution ids in one query
func (s *SQLiteStore) tagsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	query := `
		SELECT st.solution_id, t.name
		FROM solution_tags st
		JOIN tags t ON st.tag_id = t.id
		WHERE st.solution_id IN (` + placeholders(len(ids)) + `)
		ORDER BY t.name`
	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, &types.StorageError{Op: "get tags", Err: err}
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, &types.StorageError{Op: "scan tag", Err: err}
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

// SearchText runs a BM25 full-text query over the lexical projection.
// Raw scores are negated bm25() values, so higher is better. When
// tagFilter is non-empty, only records carrying every listed tag match.
func (s *SQLiteStore) SearchText(ctx context.Context, query string, limit int, tagFilter []string) ([]TextResult, error) {
	match := buildFTSQuery(query)
	if match == "" {
		return []TextResult{}, nil
	}

	sqlQuery := `
		SELECT s.id, -bm25(solutions_fts) AS score
		FROM solutions_fts
		JOIN solutions s ON solutions_fts.rowid = s.rowid
		WHERE solutions_fts MATCH ?
	`
	args := []interface{}{match}

	if len(tagFilter) > 0 {
		sqlQuery += `
		AND s.id IN (
			SELECT st.solution_id
			FROM solution_tags st
			JOIN tags t ON st.tag_id = t.id
			WHERE t.name IN (` + placeholders(len(tagFilter)) + `)
			GROUP BY st.solution_id
			HAVING COUNT(DISTINCT t.id) = ?
		)`
		args = append(args, stringArgs(tagFilter)...)
		args = append(args, len(tagFilter))
	}

	sqlQuery += " ORDER BY score DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, &types.StorageError{Op: "fts search", Err: err}
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var r TextResult
		if err := rows.Scan(&r.SolutionID, &r.Score); err != nil {
			return nil, &types.StorageError{Op: "scan fts result", Err: err}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Op: "fts search", Err: err}
	}
	return results, nil
}

// FilterByTags returns the ids whose records carry every tag in tags
func (s *SQLiteStore) FilterByTags(ctx context.Context, ids []string, tags []string) ([]string, error) {
	if len(ids) == 0 || len(tags) == 0 {
		return ids, nil
	}

	query := `
		SELECT st.solution_id
		FROM solution_tags st
		JOIN tags t ON st.tag_id = t.id
		WHERE st.solution_id IN (` + placeholders(len(ids)) + `)
		AND t.name IN (` + placeholders(len(tags)) + `)
		GROUP BY st.solution_id
		HAVING COUNT(DISTINCT t.id) = ?`
	args := stringArgs(ids)
	args = append(args, stringArgs(tags)...)
	args = append(args, len(tags))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.StorageError{Op: "filter by tags", Err: err}
	}
	defer func() { _ = rows.Close() }()

	matched := make([]string, 0, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &types.StorageError{Op: "scan filter result", Err: err}
		}
		matched = append(matched, id)
	}
	return matched, rows.Err()
}

// ListTags returns every tag with a live association count. Counts are
// aggregated per call, never cached, so they reflect the latest ingest.
func (s *SQLiteStore) ListTags(ctx context.Context, category types.TagCategory) ([]types.TagCount, error) {
	query := `
		SELECT t.name, t.category, COUNT(st.solution_id) AS count
		FROM tags t
		LEFT JOIN solution_tags st ON t.id = st.tag_id
	`
	args := []interface{}{}
	if category != "" {
		query += " WHERE t.category = ?"
		args = append(args, string(category))
	}
	query += " GROUP BY t.id ORDER BY count DESC, t.name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.StorageError{Op: "list tags", Err: err}
	}
	defer func() { _ = rows.Close() }()

	out := make([]types.TagCount, 0)
	for rows.Next() {
		var tc types.TagCount
		var cat string
		if err := rows.Scan(&tc.Name, &cat, &tc.Count); err != nil {
			return nil, &types.StorageError{Op: "scan tag count", Err: err}
		}
		tc.Category = types.TagCategory(cat)
		out = append(out, tc)
	}
	return out, rows.Err()
}

// SetStatus transitions a record's index status
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status types.IndexStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE solutions SET index_status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now(), id)
	if err != nil {
		return &types.StorageError{Op: "set status", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &types.StorageError{Op: "set status", Err: err}
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// DeleteSolution removes a record; tag associations cascade
func (s *SQLiteStore) DeleteSolution(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM solutions WHERE id = ?", id)
	if err != nil {
		return false, &types.StorageError{Op: "delete solution", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &types.StorageError{Op: "delete solution", Err: err}
	}
	return n > 0, nil
}

// Stats returns record and tag counts
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM solutions").Scan(&stats.Solutions); err != nil {
		return nil, &types.StorageError{Op: "stats", Err: err}
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&stats.Tags); err != nil {
		return nil, &types.StorageError{Op: "stats", Err: err}
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM solutions WHERE index_status = 'degraded'").Scan(&stats.Degraded); err != nil {
		return nil, &types.StorageError{Op: "stats", Err: err}
	}
	return stats, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanSolution
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSolution(row rowScanner) (*types.Solution, error) {
	var sol types.Solution
	var rootCause, projectName sql.NullString
	var msgs sql.NullString
	var status string

	err := row.Scan(&sol.ID, &sol.Title, &sol.Problem, &sol.Solution,
		&rootCause, &msgs, &projectName, &status,
		&sol.CreatedAt, &sol.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sol.RootCause = rootCause.String
	sol.ProjectName = projectName.String
	sol.Status = types.IndexStatus(status)
	sol.ErrorMessages = []string{}
	if msgs.Valid && msgs.String != "" {
		if err := json.Unmarshal([]byte(msgs.String), &sol.ErrorMessages); err != nil {
			return nil, fmt.Errorf("unmarshal error messages: %w", err)
		}
	}
	return &sol, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(in []string) []interface{} {
	args := make([]interface{}, len(in))
	for i, s := range in {
		args[i] = s
	}
	return args
}

// buildFTSQuery turns free-form user text into a safe FTS5 match
// expression: bare terms are quoted and OR-joined, so punctuation and
// FTS5 operators in pasted error messages cannot break the query.
func buildFTSQuery(query string) string {
	terms := strings.FieldsFunc(query, func(r rune) bool {
		return !(r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9'))
	})
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}
