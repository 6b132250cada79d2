// Package lexindex is the lexical fallback used when the vector index is
// absent or empty (spec §4.3). It tokenizes each episode's projection text
// and the query, and scores by token-overlap Jaccard similarity rather than
// a frequency-weighted ranking, so it agrees with the Retriever's [0,1]
// similarity contract without a separate normalization step.
package lexindex

import "context"

// Document is a single projection-text record to index, keyed by episode id.
type Document struct {
	ID   string
	Text string
}

// Result is a single lexical match.
type Result struct {
	ID         string
	Similarity float64 // Jaccard token overlap, in [0,1]
}

// Stats reports index size.
type Stats struct {
	DocumentCount int
}

// Index is the lexical fallback contract.
type Index interface {
	// Index adds or replaces documents.
	Index(ctx context.Context, docs []*Document) error

	// Search returns up to limit documents ranked by Jaccard similarity to
	// query, highest first. Documents with zero overlap are omitted.
	Search(ctx context.Context, query string, limit int) ([]*Result, error)

	// Delete removes documents by id.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns every indexed id, for reconciliation.
	AllIDs(ctx context.Context) ([]string, error)

	// Stats reports index statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases resources. Idempotent.
	Close() error
}
