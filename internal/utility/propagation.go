package utility

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Aman-CERP/epimem/internal/config"
	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/embedadapter"
	"github.com/Aman-CERP/epimem/internal/episode"
	"github.com/Aman-CERP/epimem/internal/indexer"
	"github.com/Aman-CERP/epimem/internal/vectorindex"
)

// PropagationReport summarizes a single propagation pass.
type PropagationReport struct {
	Seeds   int
	Updated int
}

// Propagator runs spec §4.4.3's Bellman-style single-pass utility
// spread from high-scoring seed episodes to their similar neighbors.
type Propagator struct {
	content  contentstore.Store
	vectors  vectorindex.Index
	embedder embedadapter.Embedder
	cfg      config.UtilityConfig
	log      *slog.Logger
}

// NewPropagator constructs a Propagator. vectors/embedder may be nil, in
// which case every pass uses the domain_tags Jaccard fallback.
func NewPropagator(content contentstore.Store, vectors vectorindex.Index, embedder embedadapter.Embedder, cfg config.UtilityConfig, log *slog.Logger) *Propagator {
	if log == nil {
		log = slog.Default()
	}
	return &Propagator{content: content, vectors: vectors, embedder: embedder, cfg: cfg, log: log}
}

// Run executes one propagation pass over every episode in the content
// store, per spec §4.4.3: seeds are episodes with score ≥ seed_threshold,
// iterated in descending score order so high-confidence seeds influence
// neighbors before being updated themselves within the same pass.
func (p *Propagator) Run(ctx context.Context, now time.Time) (*PropagationReport, error) {
	episodes, err := p.content.List(ctx, episode.Filter{})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*episode.Episode, len(episodes))
	for _, e := range episodes {
		byID[e.ID] = e
	}

	seeds := make([]*episode.Episode, 0)
	for _, e := range episodes {
		if e.Utility.Score >= p.cfg.SeedThreshold {
			seeds = append(seeds, e)
		}
	}
	sort.SliceStable(seeds, func(i, j int) bool {
		return seeds[i].Utility.Score > seeds[j].Utility.Score
	})

	report := &PropagationReport{Seeds: len(seeds)}
	updatedIDs := make(map[string]struct{})

	for _, seed := range seeds {
		neighbors, err := p.neighbors(ctx, seed, episodes)
		if err != nil {
			p.log.Warn("propagation_neighbor_lookup_failed",
				slog.String("episode_id", seed.ID), slog.String("error", err.Error()))
			continue
		}

		for _, nb := range neighbors {
			target, ok := byID[nb.ID]
			if !ok || target.ID == seed.ID {
				continue
			}
			p.applyUpdate(target, seed.Utility.Score, nb.Similarity, now)
			updatedIDs[target.ID] = struct{}{}
		}
	}

	for id := range updatedIDs {
		if err := p.content.Put(ctx, byID[id]); err != nil {
			p.log.Warn("propagation_write_failed", slog.String("episode_id", id), slog.String("error", err.Error()))
			continue
		}
		report.Updated++
	}

	return report, nil
}

// applyUpdate performs the Bellman-style update from spec §4.4.3:
// target = γ · seedScore · similarity; n.score += α · (target - n.score).
func (p *Propagator) applyUpdate(target *episode.Episode, seedScore, similarity float64, now time.Time) {
	goal := p.cfg.DiscountFactor * seedScore * similarity
	target.Utility.Score += p.cfg.LearningRate * (goal - target.Utility.Score)
	target.Utility.LastUpdatedAt = now
}

type neighborHit struct {
	ID         string
	Similarity float64
}

// neighbors finds up to cfg.Fanout episodes similar to seed with
// similarity ≥ propagation_threshold, via the vector index when
// available, else via domain_tags Jaccard overlap (spec §4.4.3).
func (p *Propagator) neighbors(ctx context.Context, seed *episode.Episode, all []*episode.Episode) ([]neighborHit, error) {
	if p.vectors != nil && p.embedder != nil && p.vectors.Count() > 0 {
		return p.vectorNeighbors(ctx, seed)
	}
	return p.tagNeighbors(seed, all), nil
}

func (p *Propagator) vectorNeighbors(ctx context.Context, seed *episode.Episode) ([]neighborHit, error) {
	text := indexer.ProjectionText(seed)
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	hits, err := p.vectors.Search(ctx, vec, p.cfg.Fanout+1)
	if err != nil {
		return nil, err
	}

	result := make([]neighborHit, 0, len(hits))
	for _, h := range hits {
		if h.ID == seed.ID {
			continue
		}
		if float64(h.Similarity) < p.cfg.PropagationThreshold {
			continue
		}
		result = append(result, neighborHit{ID: h.ID, Similarity: float64(h.Similarity)})
		if len(result) >= p.cfg.Fanout {
			break
		}
	}
	return result, nil
}

// tagNeighbors ranks every other episode by domain_tags Jaccard overlap
// with seed, the fallback spec §4.4.3 requires when vector search is
// unavailable.
func (p *Propagator) tagNeighbors(seed *episode.Episode, all []*episode.Episode) []neighborHit {
	seedTags := tagSet(seed)
	if len(seedTags) == 0 {
		return nil
	}

	candidates := make([]neighborHit, 0, len(all))
	for _, e := range all {
		if e.ID == seed.ID {
			continue
		}
		sim := jaccard(seedTags, tagSet(e))
		if sim < p.cfg.PropagationThreshold {
			continue
		}
		candidates = append(candidates, neighborHit{ID: e.ID, Similarity: sim})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Similarity > candidates[j].Similarity })
	if len(candidates) > p.cfg.Fanout {
		candidates = candidates[:p.cfg.Fanout]
	}
	return candidates
}

func tagSet(e *episode.Episode) map[string]struct{} {
	set := make(map[string]struct{}, len(e.Intent.DomainTags))
	for _, tag := range e.Intent.DomainTags {
		set[tag] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tag := range a {
		if _, ok := b[tag]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
