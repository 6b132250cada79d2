package indexer

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/embedadapter"
	"github.com/Aman-CERP/epimem/internal/engerr"
	"github.com/Aman-CERP/epimem/internal/episode"
	"github.com/Aman-CERP/epimem/internal/lexindex"
	"github.com/Aman-CERP/epimem/internal/vectorindex"
)

// Indexer writes episodes into the content store and keeps the vector and
// lexical indexes consistent with it, per spec §4.2's consistency policy:
// on capture, the content-store record is written before the
// vector-index projection; on delete, the vector entry is removed before
// the content-store record.
type Indexer struct {
	content  contentstore.Store
	vectors  vectorindex.Index
	lexical  lexindex.Index
	embedder embedadapter.Embedder
	log      *slog.Logger
}

// New constructs an Indexer over the given stores and embedder.
func New(content contentstore.Store, vectors vectorindex.Index, lexical lexindex.Index, embedder embedadapter.Embedder, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{content: content, vectors: vectors, lexical: lexical, embedder: embedder, log: log}
}

// Capture persists e to the content store, then attempts to project it
// into the vector and lexical indexes. A vector-projection failure does
// not fail the capture: e is still retrievable by id or lexical fallback,
// and is left in IndexStatePending for a later IndexAll to reconcile.
func (idx *Indexer) Capture(ctx context.Context, e *episode.Episode) error {
	e.IndexState = episode.IndexStatePending

	if err := idx.content.Put(ctx, e); err != nil {
		return err
	}

	if err := idx.project(ctx, e); err != nil {
		idx.log.Warn("episode_projection_failed",
			slog.String("episode_id", e.ID), slog.String("error", err.Error()))
		return nil
	}

	e.IndexState = episode.IndexStateIndexed
	if err := idx.content.Put(ctx, e); err != nil {
		idx.log.Warn("episode_index_state_update_failed",
			slog.String("episode_id", e.ID), slog.String("error", err.Error()))
	}
	return nil
}

// project embeds e's projection text and writes it to both the vector
// index and the lexical index. Lexical indexing always runs (no embedder
// dependency); a vector failure is reported to the caller, but the
// lexical write still lands.
func (idx *Indexer) project(ctx context.Context, e *episode.Episode) error {
	text := ProjectionText(e)

	if idx.lexical != nil {
		if err := idx.lexical.Index(ctx, []*lexindex.Document{{ID: e.ID, Text: text}}); err != nil {
			idx.log.Warn("episode_lexical_index_failed",
				slog.String("episode_id", e.ID), slog.String("error", err.Error()))
		}
	}

	if idx.vectors == nil || idx.embedder == nil {
		return engerr.EmbeddingUnavailableError("no vector index or embedder configured", nil)
	}

	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return engerr.EmbeddingUnavailableError("embed projection text", err)
	}
	if err := idx.vectors.Add(ctx, []string{e.ID}, [][]float32{vec}); err != nil {
		return engerr.IndexError("write vector projection", err)
	}
	return nil
}

// Delete removes id's vector and lexical projections before its
// content-store record, per spec §4.2's delete ordering.
func (idx *Indexer) Delete(ctx context.Context, id string) error {
	if idx.vectors != nil {
		if err := idx.vectors.Delete(ctx, []string{id}); err != nil {
			return engerr.IndexError("delete vector projection", err)
		}
	}
	if idx.lexical != nil {
		if err := idx.lexical.Delete(ctx, []string{id}); err != nil {
			idx.log.Warn("episode_lexical_delete_failed",
				slog.String("episode_id", id), slog.String("error", err.Error()))
		}
	}
	return idx.content.Delete(ctx, id)
}

// ReconcileReport summarizes an IndexAll pass.
type ReconcileReport struct {
	Scanned        int
	Indexed        int
	Failed         int
	OrphansRemoved int
}

// IndexAll scans every content-store episode and projects any that are
// not IndexStateIndexed (pending, including earlier projection failures),
// or every episode when force is set; it does not detect projections made
// by a different embedder. It also removes vector
// and lexical entries that no longer have a corresponding content-store
// record, reconciling prior partial-failure states per spec §4.2.
func (idx *Indexer) IndexAll(ctx context.Context, force bool) (*ReconcileReport, error) {
	episodes, err := idx.content.List(ctx, episode.Filter{})
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Scanned: len(episodes)}
	liveIDs := make(map[string]struct{}, len(episodes))

	for _, e := range episodes {
		liveIDs[e.ID] = struct{}{}

		if !force && e.IndexState == episode.IndexStateIndexed {
			continue
		}

		if err := idx.project(ctx, e); err != nil {
			report.Failed++
			idx.log.Warn("episode_reindex_failed",
				slog.String("episode_id", e.ID), slog.String("error", err.Error()))
			continue
		}

		e.IndexState = episode.IndexStateIndexed
		if err := idx.content.Put(ctx, e); err != nil {
			idx.log.Warn("episode_index_state_update_failed",
				slog.String("episode_id", e.ID), slog.String("error", err.Error()))
		}
		report.Indexed++
	}

	if idx.vectors != nil {
		for _, vid := range idx.vectors.AllIDs() {
			if _, ok := liveIDs[vid]; !ok {
				if err := idx.vectors.Delete(ctx, []string{vid}); err == nil {
					report.OrphansRemoved++
				}
			}
		}
	}
	if idx.lexical != nil {
		lexIDs, err := idx.lexical.AllIDs(ctx)
		if err == nil {
			for _, lid := range lexIDs {
				if _, ok := liveIDs[lid]; !ok {
					if err := idx.lexical.Delete(ctx, []string{lid}); err == nil {
						report.OrphansRemoved++
					}
				}
			}
		}
	}

	return report, nil
}
