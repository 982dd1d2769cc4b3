// Package embedder provides the embedding capability behind a narrow
// interface: text in, fixed-length vector out.
//
// Three providers are supported: Ollama (local HTTP, default), OpenAI,
// and a deterministic in-process provider for offline use and tests.
// Providers are stateless and swappable; the rest of the system depends
// only on the Embedder interface, so a fake provider slots in for tests.
//
// Embeddings are cached in-memory by content hash with LRU eviction,
// since identical input yields an identical vector within a provider
// version.
package embedder
