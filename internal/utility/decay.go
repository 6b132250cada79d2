package utility

import (
	"context"
	"math"
	"time"

	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/episode"
)

// Decay applies spec §4.4.2's exponential time decay to score, given the
// age in days since the episode was last consulted. Decay never
// increases score and is floor-clamped at 0.
func Decay(score, decayRate, ageDays float64) float64 {
	if ageDays <= 0 {
		return score
	}
	decayed := score * math.Exp(-decayRate*ageDays)
	if decayed < 0 {
		return 0
	}
	return decayed
}

// AgeDays returns the number of days between since and now. since is
// typically last_retrieved_at if set, else last_updated_at.
func AgeDays(since, now time.Time) float64 {
	return now.Sub(since).Hours() / 24
}

// ApplyDecay mutates e's utility in place per spec §4.4.2: it decays
// score by the age since e was last consulted (last_retrieved_at, or
// last_updated_at if it has never been retrieved) and, if that changes
// the stored score, advances last_updated_at to now. Reports whether it
// changed anything, so callers can skip a write-back for a no-op decay
// (fresh episode, zero elapsed age, or an already-zero score).
func ApplyDecay(e *episode.Episode, decayRate float64, now time.Time) bool {
	since := e.Utility.LastUpdatedAt
	if e.Utility.LastRetrievedAt != nil {
		since = *e.Utility.LastRetrievedAt
	}

	decayed := Decay(e.Utility.Score, decayRate, AgeDays(since, now))
	if decayed == e.Utility.Score {
		return false
	}

	e.Utility.Score = decayed
	e.Utility.LastUpdatedAt = now
	return true
}

// DecayReport summarizes a batch decay maintenance pass.
type DecayReport struct {
	Scanned int
	Updated int
}

// DecayAll applies ApplyDecay to every episode matching filter and
// persists the ones it changed, per spec §4.4.2's "in batch during
// maintenance" requirement. Complements the lazy decay-on-read path for
// episodes that are never read again but still need their stored score
// to reflect elapsed time.
func DecayAll(ctx context.Context, store contentstore.Store, decayRate float64, filter episode.Filter, now time.Time) (*DecayReport, error) {
	episodes, err := store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	report := &DecayReport{Scanned: len(episodes)}
	for _, e := range episodes {
		if !ApplyDecay(e, decayRate, now) {
			continue
		}
		if err := store.Put(ctx, e); err != nil {
			return nil, err
		}
		report.Updated++
	}
	return report, nil
}
