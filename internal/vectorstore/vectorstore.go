// Package vectorstore defines the pluggable vector-store contract used as
// an alternate backend for chunk embeddings, selectable
// via config.QdrantConfig. Postgres remains the system of record for every
// ingestion artifact; a VectorStore, when configured, is a write-through
// sink the orchestrator populates alongside Postgres so a future ANN-backed
// retrieval surface has somewhere to query against. Grounded on
// internal/persistence/databases/interfaces.go's VectorStore/VectorResult
// contract.
package vectorstore

import "context"

// Result is a single nearest-neighbor hit. Score is similarity, not
// distance: higher is closer for the default cosine metric.
type Result struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Store is the minimum interface a pluggable vector backend must satisfy.
type Store interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error)
	Dimension() int
	Close() error
}
