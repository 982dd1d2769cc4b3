// Package ingest implements the dual-write coordinator: it validates and
// redacts the payload, persists the record and its tags in one relational
// transaction, then upserts the embedding into the vector index as a
// best-effort second leg.
//
// The relational store is always written first and is the source of truth
// for existence. A semantic-leg failure after bounded retries marks the
// record degraded and still reports success to the caller; the relational
// write is never rolled back for it.
package ingest
