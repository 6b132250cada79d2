// Package stats computes read-only rollups over the content store, per
// spec §4.6.
package stats

import (
	"context"
	"sort"

	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/episode"
)

// UtilityDistribution summarizes the spread of utility.score across
// a set of episodes.
type UtilityDistribution struct {
	Min    float64
	Mean   float64
	Median float64
	Max    float64
}

// Report is the complete stats rollup (spec §4.6).
type Report struct {
	Total int

	ByProject  map[string]int
	ByTaskType map[string]int
	ByOutcome  map[string]int

	SuccessRate float64

	Utility UtilityDistribution

	TotalRetrievals int
	TotalFeedback   int

	IndexedCount   int
	UnindexedCount int
}

// Compute scans every episode in the content store and builds a Report.
func Compute(ctx context.Context, store contentstore.Store) (*Report, error) {
	episodes, err := store.List(ctx, episode.Filter{})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Total:      len(episodes),
		ByProject:  make(map[string]int),
		ByTaskType: make(map[string]int),
		ByOutcome:  make(map[string]int),
	}
	if report.Total == 0 {
		return report, nil
	}

	scores := make([]float64, 0, len(episodes))
	successCount := 0

	for _, e := range episodes {
		report.ByProject[e.Project]++
		report.ByTaskType[string(e.Intent.TaskType)]++
		report.ByOutcome[string(e.Outcome.Status)]++

		if e.Outcome.Status == episode.OutcomeSuccess {
			successCount++
		}

		scores = append(scores, e.Utility.Score)
		report.TotalRetrievals += e.Utility.RetrievalCount
		report.TotalFeedback += feedbackCount(e)

		if e.IndexState == episode.IndexStateIndexed {
			report.IndexedCount++
		} else {
			report.UnindexedCount++
		}
	}

	report.SuccessRate = float64(successCount) / float64(report.Total)
	report.Utility = distributionOf(scores)

	return report, nil
}

// feedbackCount counts how many of an episode's retrieval_history
// entries carry an explicit helpful verdict.
func feedbackCount(e *episode.Episode) int {
	n := 0
	for _, ev := range e.Utility.RetrievalHistory {
		if ev.Helpful != nil {
			n++
		}
	}
	return n
}

func distributionOf(scores []float64) UtilityDistribution {
	if len(scores) == 0 {
		return UtilityDistribution{}
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	sum := 0.0
	for _, s := range sorted {
		sum += s
	}

	return UtilityDistribution{
		Min:    sorted[0],
		Mean:   sum / float64(len(sorted)),
		Median: median(sorted),
		Max:    sorted[len(sorted)-1],
	}
}

// median assumes sorted is already sorted ascending.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
