// Package embedadapter bridges the engine to the external embed(text)→vector
// collaborator (spec §1): model acquisition, warm-up, and backend selection
// are the collaborator's concern, not the engine's.
package embedadapter

import (
	"context"
	"math"
)

// DefaultCacheSize is the default number of query embeddings kept in memory.
const DefaultCacheSize = 1000

// Embedder generates vector embeddings for text. Implementations must be
// deterministic per input and return vectors of a fixed Dimensions().
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
