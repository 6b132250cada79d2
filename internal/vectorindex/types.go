// Package vectorindex is the HNSW-backed projection store (spec §4.2). It
// holds one vector per episode, keyed by episode id, and answers nearest
// neighbor queries with a similarity value normalized to [0,1].
package vectorindex

import (
	"context"
	"fmt"
)

// Result is a single nearest-neighbor hit.
type Result struct {
	ID         string  // episode id
	Distance   float32 // raw index distance; lower is closer
	Similarity float32 // normalized to [0,1], higher is closer
}

// Config configures the index.
type Config struct {
	// Dimensions is the embedding vector length. All vectors added must match.
	Dimensions int

	// Metric is the distance metric: "cos" (cosine) or "l2" (euclidean).
	Metric string

	// M is the max graph connections per layer (coder/hnsw default: 16).
	M int

	// EfSearch is the query-time search width.
	EfSearch int
}

// DefaultConfig returns sensible defaults for the given dimension.
func DefaultConfig(dimensions int) Config {
	return Config{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   20,
	}
}

// Index is the projection store contract (spec §4.2): index, search, delete.
type Index interface {
	// Add inserts or overwrites vectors keyed by id.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search returns up to k nearest neighbors to query.
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)

	// Delete removes vectors by id. Missing ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns every indexed id, for reconciliation against the
	// content store.
	AllIDs() []string

	// Contains reports whether id has a projection.
	Contains(id string) bool

	// Count returns the number of live (non-orphaned) vectors.
	Count() int

	// Save persists the index to path.
	Save(path string) error

	// Load replaces the index contents with what is persisted at path.
	Load(path string) error

	// Close releases resources. Idempotent.
	Close() error
}

// ErrDimensionMismatch indicates a vector's length doesn't match the
// index's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
