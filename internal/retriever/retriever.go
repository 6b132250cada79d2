package retriever

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Aman-CERP/epimem/internal/config"
	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/embedadapter"
	"github.com/Aman-CERP/epimem/internal/engerr"
	"github.com/Aman-CERP/epimem/internal/episode"
	"github.com/Aman-CERP/epimem/internal/indexer"
	"github.com/Aman-CERP/epimem/internal/lexindex"
	"github.com/Aman-CERP/epimem/internal/utility"
	"github.com/Aman-CERP/epimem/internal/vectorindex"
)

// Retriever answers retrieve/list/fetch against the content, vector, and
// lexical stores, per spec §4.3.
type Retriever struct {
	content   contentstore.Store
	vectors   vectorindex.Index
	lexical   lexindex.Index
	embedder  embedadapter.Embedder
	cfg       config.RetrievalConfig
	decayRate float64
	log       *slog.Logger
}

// New constructs a Retriever. vectors, lexical, and embedder may be nil;
// the retriever falls back to lexical-only or errors accordingly.
// decayRate is spec §4.4.2's utility.decay_rate, applied lazily to every
// episode this retriever reads.
func New(content contentstore.Store, vectors vectorindex.Index, lexical lexindex.Index, embedder embedadapter.Embedder, cfg config.RetrievalConfig, decayRate float64, log *slog.Logger) *Retriever {
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{content: content, vectors: vectors, lexical: lexical, embedder: embedder, cfg: cfg, decayRate: decayRate, log: log}
}

// Retrieve ranks episodes against query, per spec §4.3's seven-step
// algorithm, falling back to lexical Jaccard matching when the vector
// index is absent or empty. A successful retrieve records a best-effort
// retrieval footprint on every returned episode.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]*Ranked, error) {
	k := opts.K
	if k <= 0 {
		k = r.cfg.DefaultLimit
	}
	if k <= 0 {
		k = 3
	}

	utilityWeight := r.cfg.UtilityWeight
	if opts.UtilityWeight != nil {
		utilityWeight = *opts.UtilityWeight
	}
	minSimilarity := r.cfg.MinSimilarity
	if opts.MinSimilarity != nil {
		minSimilarity = *opts.MinSimilarity
	}
	alpha := 1 - utilityWeight

	ranked, err := r.semanticRetrieve(ctx, query, k, opts.Filter, alpha, minSimilarity)
	if err != nil {
		if !engerr.IsFatal(err) {
			ranked, err = r.lexicalRetrieve(ctx, query, k, opts.Filter, alpha, minSimilarity)
		}
		if err != nil {
			return nil, err
		}
	}

	r.recordFootprint(ctx, ranked, query, opts.Filter.Project)
	return ranked, nil
}

func (r *Retriever) semanticRetrieve(ctx context.Context, query string, k int, filter episode.Filter, alpha, minSimilarity float64) ([]*Ranked, error) {
	if r.vectors == nil || r.embedder == nil || r.vectors.Count() == 0 {
		return r.lexicalRetrieve(ctx, query, k, filter, alpha, minSimilarity)
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, engerr.EmbeddingUnavailableError("embed query", err)
	}

	hits, err := r.vectors.Search(ctx, vec, overfetchK(k))
	if err != nil {
		return nil, engerr.IndexError("search vector index", err)
	}

	ranked := make([]*Ranked, 0, len(hits))
	for _, hit := range hits {
		if float64(hit.Similarity) < minSimilarity {
			continue
		}
		e, err := r.content.Get(ctx, hit.ID)
		if err != nil {
			continue
		}
		if !filter.IsZero() && !filter.Match(e) {
			continue
		}
		e = r.decayOnRead(ctx, e)
		ranked = append(ranked, &Ranked{
			Episode:    e,
			Similarity: float64(hit.Similarity),
			Score:      alpha*float64(hit.Similarity) + (1-alpha)*e.Utility.Score,
		})
	}

	sortRanked(ranked)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}

func (r *Retriever) lexicalRetrieve(ctx context.Context, query string, k int, filter episode.Filter, alpha, minSimilarity float64) ([]*Ranked, error) {
	if r.lexical == nil {
		return nil, engerr.EmbeddingUnavailableError("no lexical fallback configured", nil)
	}

	hits, err := r.lexical.Search(ctx, query, overfetchK(k))
	if err != nil {
		return nil, engerr.IndexError("search lexical index", err)
	}

	ranked := make([]*Ranked, 0, len(hits))
	for _, hit := range hits {
		if hit.Similarity < minSimilarity {
			continue
		}
		e, err := r.content.Get(ctx, hit.ID)
		if err != nil {
			continue
		}
		if !filter.IsZero() && !filter.Match(e) {
			continue
		}
		e = r.decayOnRead(ctx, e)
		ranked = append(ranked, &Ranked{
			Episode:    e,
			Similarity: hit.Similarity,
			Score:      alpha*hit.Similarity + (1-alpha)*e.Utility.Score,
		})
	}

	sortRanked(ranked)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// overfetchK returns max(3k, k+10), spec §4.3 step 2's candidate budget.
func overfetchK(k int) int {
	if 3*k > k+10 {
		return 3 * k
	}
	return k + 10
}

// sortRanked orders by score descending, breaking ties by created_at
// descending, per spec §4.3 step 6.
func sortRanked(ranked []*Ranked) {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Episode.CreatedAt.After(ranked[j].Episode.CreatedAt)
	})
}

// recordFootprint increments retrieval_count, appends a retrieval_history
// entry, and sets last_retrieved_at on every returned episode. Best-effort:
// failures are logged, not propagated, per spec §4.3's Footprint rule.
func (r *Retriever) recordFootprint(ctx context.Context, ranked []*Ranked, query string, project *string) {
	if len(ranked) == 0 {
		return
	}
	now := time.Now().UTC()
	proj := ""
	if project != nil {
		proj = *project
	}

	for _, hit := range ranked {
		id := hit.Episode.ID
		updated, err := r.content.UpdateUtility(ctx, id, func(e *episode.Episode) {
			e.Utility.RetrievalCount++
			e.Utility.LastRetrievedAt = &now
			e.Utility.AppendRetrieval(episode.RetrievalEvent{At: now, Query: query, Project: proj})
		})
		if err != nil {
			r.log.Warn("retrieval_footprint_failed", slog.String("episode_id", id), slog.String("error", err.Error()))
			continue
		}
		hit.Episode = updated
	}
}

// List returns every episode matching filter, without ranking, ordered
// by created_at descending (delegated to the content store). Each
// episode's utility is decayed lazily before it's returned.
func (r *Retriever) List(ctx context.Context, filter episode.Filter) ([]*episode.Episode, error) {
	episodes, err := r.content.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i, e := range episodes {
		episodes[i] = r.decayOnRead(ctx, e)
	}
	return episodes, nil
}

// Fetch returns the single episode with id, or a not-found error. Its
// utility is decayed lazily before it's returned.
func (r *Retriever) Fetch(ctx context.Context, id string) (*episode.Episode, error) {
	e, err := r.content.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.decayOnRead(ctx, e), nil
}

// decayOnRead applies spec §4.4.2's lazy decay-on-read to e and, if it
// changed anything, persists the write-back. Best-effort: a persist
// failure is logged and the in-memory decayed value is still returned,
// mirroring recordFootprint's best-effort contract.
func (r *Retriever) decayOnRead(ctx context.Context, e *episode.Episode) *episode.Episode {
	if !utility.ApplyDecay(e, r.decayRate, time.Now().UTC()) {
		return e
	}

	score, lastUpdatedAt := e.Utility.Score, e.Utility.LastUpdatedAt
	updated, err := r.content.UpdateUtility(ctx, e.ID, func(target *episode.Episode) {
		target.Utility.Score = score
		target.Utility.LastUpdatedAt = lastUpdatedAt
	})
	if err != nil {
		r.log.Warn("decay_on_read_failed", slog.String("episode_id", e.ID), slog.String("error", err.Error()))
		return e
	}
	return updated
}

// ProjectionText re-exposes indexer.ProjectionText for callers (e.g. the
// engine's temporal-credit pass) that need the same canonical text used
// at index time, without importing the indexer package directly.
func ProjectionText(e *episode.Episode) string {
	return indexer.ProjectionText(e)
}
