// Package pruner selects and removes episodes that have aged out and
// accrued no positive value, per spec §4.5.
package pruner

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/epimem/internal/config"
	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/episode"
	"github.com/Aman-CERP/epimem/internal/indexer"
)

// Candidate is one episode eligible for pruning.
type Candidate struct {
	ID        string
	AgeDays   float64
	Score     float64
	Project   string
	CreatedAt time.Time
}

// Report summarizes a dry-run or execute pass.
type Report struct {
	Candidates []Candidate
	Deleted    int
	Failed     int
}

// Pruner computes and removes aged, low-utility, never-helpful episodes.
type Pruner struct {
	content contentstore.Store
	indexer *indexer.Indexer
	cfg     config.PruneConfig
	log     *slog.Logger
}

// New constructs a Pruner.
func New(content contentstore.Store, idx *indexer.Indexer, cfg config.PruneConfig, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{content: content, indexer: idx, cfg: cfg, log: log}
}

// candidates returns every episode satisfying spec §4.5's selection
// predicate: age > max_age_days AND score < min_utility AND
// helpful_count = 0. The helpful_count = 0 conjunct protects episodes
// with any positive explicit feedback from automatic deletion.
func (p *Pruner) candidates(ctx context.Context, now time.Time) ([]Candidate, error) {
	episodes, err := p.content.List(ctx, episode.Filter{})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0)
	for _, e := range episodes {
		age := now.Sub(e.CreatedAt).Hours() / 24
		if age <= float64(p.cfg.MaxAgeDays) {
			continue
		}
		if e.Utility.Score >= p.cfg.MinUtilityThreshold {
			continue
		}
		if e.Utility.HelpfulCount != 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:        e.ID,
			AgeDays:   age,
			Score:     e.Utility.Score,
			Project:   e.Project,
			CreatedAt: e.CreatedAt,
		})
	}
	return candidates, nil
}

// DryRun returns the candidate set without mutating any store. Pure and
// idempotent: repeated calls against unchanged data return the same set.
func (p *Pruner) DryRun(ctx context.Context, now time.Time) (*Report, error) {
	candidates, err := p.candidates(ctx, now)
	if err != nil {
		return nil, err
	}
	return &Report{Candidates: candidates}, nil
}

// Execute deletes every candidate episode, vector-index entry first and
// content-store record second, per spec §4.2's delete ordering. The
// operation is resumable: each deletion is independent, so a run
// interrupted mid-way leaves a consistent state and a subsequent run
// simply recomputes the (now smaller) candidate set.
func (p *Pruner) Execute(ctx context.Context, now time.Time) (*Report, error) {
	candidates, err := p.candidates(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &Report{Candidates: candidates}
	for _, c := range candidates {
		if err := p.indexer.Delete(ctx, c.ID); err != nil {
			report.Failed++
			p.log.Warn("prune_delete_failed", slog.String("episode_id", c.ID), slog.String("error", err.Error()))
			continue
		}
		report.Deleted++
	}
	return report, nil
}
