package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by direct lookup when no record has the
// requested id. Search never returns it; an empty result set is a normal
// outcome there.
var ErrNotFound = errors.New("solution not found")

// ValidationError reports a rejected ingest payload with field-level
// detail so callers can branch on the failing field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError wraps a relational store failure. These are fatal to the
// call; there is no fallback for the lexical index.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
