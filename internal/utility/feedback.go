package utility

import (
	"context"
	"time"

	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/engerr"
	"github.com/Aman-CERP/epimem/internal/episode"
)

// Kind is a feedback verdict on a previously retrieved episode.
type Kind string

const (
	KindHelpful    Kind = "helpful"
	KindNotHelpful Kind = "not_helpful"
	KindMixed      Kind = "mixed"
)

// helpfulDelta returns the amount Kind contributes to helpful_count,
// per spec §4.4.1: 1 for helpful, 0 for not_helpful, 0.5 for mixed.
func helpfulDelta(k Kind) (float64, error) {
	switch k {
	case KindHelpful:
		return 1, nil
	case KindNotHelpful:
		return 0, nil
	case KindMixed:
		return 0.5, nil
	default:
		return 0, engerr.ValidationError("feedback kind must be helpful, not_helpful, or mixed", nil)
	}
}

// ApplyFeedback records kind against id's most recent retrieval and
// recomputes utility.score as the Wilson lower bound, per spec §4.4.1.
// If the most recent retrieval_history entry is still awaiting a
// verdict (a retrieve footprint that hasn't been fed back on yet), this
// verdict fills it in and retrieval_count is left alone — it was already
// bumped at retrieval time. Otherwise (no retrieval on record, or the
// most recent one already has a verdict) this feedback event is its own
// retrieval: retrieval_count is incremented and a new history entry is
// appended, so direct feedback on a freshly captured episode still
// drives n upward instead of leaving p guarded to zero forever.
func ApplyFeedback(ctx context.Context, store contentstore.Store, id string, kind Kind, query string, now time.Time) (*episode.Episode, error) {
	delta, err := helpfulDelta(kind)
	if err != nil {
		return nil, err
	}

	return store.UpdateUtility(ctx, id, func(e *episode.Episode) {
		e.Utility.HelpfulCount += delta
		helpful := delta > 0

		if len(e.Utility.RetrievalHistory) > 0 && e.Utility.RetrievalHistory[0].Helpful == nil {
			e.Utility.RetrievalHistory[0].Helpful = &helpful
		} else {
			e.Utility.RetrievalCount++
			e.Utility.AppendRetrieval(episode.RetrievalEvent{At: now, Query: query, Helpful: &helpful})
		}

		e.Utility.Score = WilsonLowerBound(e.Utility.RetrievalCount, helpfulProportion(e))
		e.Utility.LastUpdatedAt = now
	})
}

// helpfulProportion computes p = helpful_count / retrieval_count for the
// Wilson formula, guarding against division by zero.
func helpfulProportion(e *episode.Episode) float64 {
	if e.Utility.RetrievalCount <= 0 {
		return 0
	}
	return e.Utility.HelpfulCount / float64(e.Utility.RetrievalCount)
}
