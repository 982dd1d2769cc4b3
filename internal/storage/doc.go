// Package storage provides the SQLite system of record for solution
// records: base rows, the tag catalog, tag associations, and the
// synchronized FTS5 lexical projection.
//
// The lexical projection is maintained by triggers inside the same
// transaction as the base-table write, so a committed record is always
// searchable. The store is authoritative for record existence; the vector
// index (package vecstore) holds only a derived projection.
//
// Two build configurations are supported:
//
// CGO build (sqlite_vec tag), using github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec,fts5" ./...
//
// Pure Go build (default), using modernc.org/sqlite:
//
//	CGO_ENABLED=0 go build ./...
package storage
