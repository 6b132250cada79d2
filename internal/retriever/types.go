// Package retriever ranks episodes against a query (spec §4.3): semantic
// retrieval via the vector index with a utility-blended score, a lexical
// fallback when the vector index is absent or empty, and plain listing
// and single-episode fetch.
package retriever

import "github.com/Aman-CERP/epimem/internal/episode"

// Ranked pairs an Episode with the score it was ranked by.
type Ranked struct {
	Episode    *episode.Episode
	Score      float64
	Similarity float64
}

// Options tunes a single retrieve call, overriding the engine's
// configured defaults where set.
type Options struct {
	// K is the number of results to return. Zero uses the caller's default.
	K int

	// Filter narrows candidates by project/task_type/outcome/time/utility.
	Filter episode.Filter

	// UtilityWeight is (1-α) in spec §4.3's score formula. A nil value uses
	// the configured default. 0 means pure-similarity ranking (α=1).
	UtilityWeight *float64

	// MinSimilarity drops candidates below this threshold. A nil value
	// uses the configured default.
	MinSimilarity *float64
}
