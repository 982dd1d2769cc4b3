// Package types defines the shared data model for the solution memory:
// solution records, tags, search result payloads, and the error taxonomy
// used across the ingest and search paths.
package types
