package types

import "time"

// IndexStatus tracks which indexes hold a solution record.
type IndexStatus string

const (
	// StatusPending is the transient state while the relational
	// transaction is in flight.
	StatusPending IndexStatus = "pending"
	// StatusIndexed means the record is present in both the lexical and
	// the semantic index.
	StatusIndexed IndexStatus = "indexed"
	// StatusDegraded means the semantic upsert failed after retries; the
	// record exists only in the lexical index and has no vector.
	StatusDegraded IndexStatus = "degraded"
)

// Solution is a persisted problem/solution record. Records are immutable
// once indexed; there is no update operation.
type Solution struct {
	ID            string
	Title         string
	Problem       string
	Solution      string
	RootCause     string
	ErrorMessages []string
	Tags          []string
	ProjectName   string
	Status        IndexStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SolutionInput is the validated ingest payload. Title, Problem and
// Solution are required; everything else is optional.
type SolutionInput struct {
	Title         string
	Problem       string
	Solution      string
	RootCause     string
	ErrorMessages []string
	Tags          []TagInput
	ProjectName   string
}

// TagInput names a tag to attach to a record. Category is used only when
// the tag does not already exist; existing tags are matched by name,
// case-insensitively.
type TagInput struct {
	Name     string
	Category TagCategory
}

// MaxTitleLength bounds the title field.
const MaxTitleLength = 500
