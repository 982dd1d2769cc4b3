// Package vecstore is the semantic index: a SQLite-backed vector store
// keyed by solution id, holding one embedding per record plus minimal
// display metadata.
//
// It is a derived projection of the relational store and is never
// authoritative for record existence. Upserts are keyed by id, so retries
// after a partial ingest failure are safe to repeat.
package vecstore
