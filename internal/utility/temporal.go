package utility

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/epimem/internal/config"
	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/episode"
)

// TemporalCreditReport summarizes one temporal-credit assignment pass.
type TemporalCreditReport struct {
	Updated int
}

// rewardFor maps an outcome status to the reward spec §4.4.4 assigns:
// 1.0 for success, 0.5 for partial, 0.0 otherwise.
func rewardFor(status episode.OutcomeStatus) float64 {
	switch status {
	case episode.OutcomeSuccess:
		return 1.0
	case episode.OutcomePartial:
		return 0.5
	default:
		return 0.0
	}
}

// AssignTemporalCredit propagates credit from a just-concluded session s
// to every earlier episode retrieved during s's window — any episode
// whose retrieval_history contains an entry with at ∈
// [s.CreatedAt, s.EndedAt] — per spec §4.4.4. Runs at capture time for
// the new episode and at explicit propagate --temporal invocations.
func AssignTemporalCredit(ctx context.Context, store contentstore.Store, cfg config.UtilityConfig, s *episode.Episode, now time.Time, log *slog.Logger) (*TemporalCreditReport, error) {
	if log == nil {
		log = slog.Default()
	}
	if !s.Outcome.Status.IsTerminal() {
		return &TemporalCreditReport{}, nil
	}

	reward := rewardFor(s.Outcome.Status)
	windowStart := s.CreatedAt
	windowEnd := s.EndedAt

	episodes, err := store.List(ctx, episode.Filter{})
	if err != nil {
		return nil, err
	}

	report := &TemporalCreditReport{}
	for _, e := range episodes {
		if e.ID == s.ID {
			continue
		}
		if !retrievedDuring(e, windowStart, windowEnd) {
			continue
		}

		_, err := store.UpdateUtility(ctx, e.ID, func(target *episode.Episode) {
			target.Utility.Score += cfg.LearningRate * (cfg.DiscountFactor*reward - target.Utility.Score)
			target.Utility.LastUpdatedAt = now
		})
		if err != nil {
			log.Warn("temporal_credit_write_failed", slog.String("episode_id", e.ID), slog.String("error", err.Error()))
			continue
		}
		report.Updated++
	}

	return report, nil
}

// retrievedDuring reports whether e's retrieval_history contains an
// entry timestamped within [start, end].
func retrievedDuring(e *episode.Episode, start, end time.Time) bool {
	for _, ev := range e.Utility.RetrievalHistory {
		if !ev.At.Before(start) && !ev.At.After(end) {
			return true
		}
	}
	return false
}
