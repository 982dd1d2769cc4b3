// Package searcher implements hybrid retrieval over the lexical and
// semantic indexes.
//
// The two branches run concurrently against independent stores. Raw
// scores are min-max normalized within each branch's candidate set, then
// fused as a weighted sum (semantic weight 0.6 by default). A record
// found by only one branch still competes on that branch's contribution.
//
// The lexical index is required: its failure is a hard error. The
// semantic branch is best effort: provider or vector-store failure, or a
// branch timeout, silently narrows the request to keyword-only scoring.
// An empty result set is a normal outcome, never an error.
package searcher
