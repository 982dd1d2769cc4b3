package types

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateProblem(t *testing.T) {
	short := "fits entirely"
	assert.Equal(t, short, TruncateProblem(short))

	exact := strings.Repeat("x", SummaryProblemLength)
	assert.Equal(t, exact, TruncateProblem(exact))

	long := strings.Repeat("x", SummaryProblemLength+50)
	got := TruncateProblem(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, got, SummaryProblemLength+3)
}

func TestTruncateProblem_MultibyteSafe(t *testing.T) {
	long := strings.Repeat("ü", SummaryProblemLength+10)
	got := TruncateProblem(long)

	assert.True(t, strings.HasSuffix(got, "..."))
	// cut lands on a rune boundary, so the result stays valid UTF-8
	assert.Equal(t, strings.Repeat("ü", SummaryProblemLength)+"...", got)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryTechStack))
	assert.True(t, ValidCategory(CategoryProblemType))
	assert.True(t, ValidCategory(CategoryErrorCode))
	assert.False(t, ValidCategory("made_up"))
	assert.False(t, ValidCategory(""))
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "title", Reason: "required"}
	assert.Equal(t, "invalid title: required", err.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(errors.New("other")))
}

func TestStorageError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := &StorageError{Op: "insert", Err: inner}

	assert.Contains(t, err.Error(), "insert")
	assert.ErrorIs(t, err, inner)
}
