// Package engine is the Core API Facade (spec §4.7, §6.1): the single
// entry surface CLI and other adapters call into. Every method is
// independently valid, returns a typed result, performs its own locking
// via the component stores, and translates internal errors into the
// taxonomy in internal/engerr.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/epimem/internal/config"
	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/embedadapter"
	"github.com/Aman-CERP/epimem/internal/engerr"
	"github.com/Aman-CERP/epimem/internal/episode"
	"github.com/Aman-CERP/epimem/internal/indexer"
	"github.com/Aman-CERP/epimem/internal/lexindex"
	"github.com/Aman-CERP/epimem/internal/pruner"
	"github.com/Aman-CERP/epimem/internal/retriever"
	"github.com/Aman-CERP/epimem/internal/stats"
	"github.com/Aman-CERP/epimem/internal/utility"
	"github.com/Aman-CERP/epimem/internal/vectorindex"
)

// vectorIndexFile is where the HNSW graph persists under DataDir/vectors.
const vectorIndexFile = "index.hnsw"

// Engine wires every component package behind the facade's ten operations.
type Engine struct {
	cfg *config.Config

	content  contentstore.Store
	vectors  vectorindex.Index
	lexical  lexindex.Index
	embedder embedadapter.Embedder

	indexer    *indexer.Indexer
	retriever  *retriever.Retriever
	propagator *utility.Propagator
	pruner     *pruner.Pruner

	log *slog.Logger
}

// Open opens an engine over dataDir, which must hold a config.toml
// (created by Init); without one it returns a NotInitialized error.
// Callers that have just run Init may call Open immediately.
func Open(dataDir string, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}

	if _, statErr := os.Stat(filepath.Join(dataDir, config.FileName)); os.IsNotExist(statErr) {
		return nil, engerr.NotInitialized(fmt.Sprintf("data directory %s has no config.toml; run 'epimem init' first", dataDir), nil)
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}

	content, err := contentstore.Open(dataDir)
	if err != nil {
		return nil, err
	}

	vectors, err := vectorindex.NewHNSWIndex(vectorindex.DefaultConfig(cfg.Embedding.Dimension))
	if err != nil {
		_ = content.Close()
		return nil, engerr.IndexError("create vector index", err)
	}
	vectorPath := filepath.Join(dataDir, "vectors", vectorIndexFile)
	if _, statErr := os.Stat(vectorPath); statErr == nil {
		if err := vectors.Load(vectorPath); err != nil {
			log.Warn("vector_index_load_failed", slog.String("error", err.Error()))
		}
	}

	lexical, err := lexindex.NewSQLiteIndex(filepath.Join(dataDir, "vectors", "lexical.sqlite"))
	if err != nil {
		_ = content.Close()
		_ = vectors.Close()
		return nil, engerr.IndexError("open lexical index", err)
	}

	embedder, err := embedadapter.New(cfg.Embedding)
	if err != nil {
		_ = content.Close()
		_ = vectors.Close()
		_ = lexical.Close()
		return nil, engerr.EmbeddingUnavailableError("construct embedder", err)
	}

	idx := indexer.New(content, vectors, lexical, embedder, log)
	r := retriever.New(content, vectors, lexical, embedder, cfg.Retrieval, cfg.Utility.DecayRate, log)
	prop := utility.NewPropagator(content, vectors, embedder, cfg.Utility, log)
	pr := pruner.New(content, idx, cfg.Prune, log)

	return &Engine{
		cfg: cfg, content: content, vectors: vectors, lexical: lexical, embedder: embedder,
		indexer: idx, retriever: r, propagator: prop, pruner: pr, log: log,
	}, nil
}

// Init creates the on-disk layout at dataDir and writes a config.toml if
// one does not already exist (spec §6.1, §6.2). Idempotent.
func Init(dataDir string, overrides *config.Config) (*config.Config, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, "episodes"), 0o755); err != nil {
		return nil, engerr.StoreIOError("create episodes directory", err)
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "vectors"), 0o755); err != nil {
		return nil, engerr.StoreIOError("create vectors directory", err)
	}

	cfgPath := filepath.Join(dataDir, config.FileName)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := overrides
		if cfg == nil {
			cfg = config.Default()
		}
		cfg.DataDir = dataDir
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	feedbackLogPath := filepath.Join(dataDir, feedbackLogName)
	if _, err := os.Stat(feedbackLogPath); os.IsNotExist(err) {
		f, err := os.OpenFile(feedbackLogPath, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, engerr.StoreIOError("create feedback log", err)
		}
		_ = f.Close()
	}

	return config.Load(dataDir)
}

// Close releases every component's resources, persisting the vector
// index first.
func (e *Engine) Close() error {
	vectorPath := filepath.Join(e.cfg.DataDir, "vectors", vectorIndexFile)
	if err := e.vectors.Save(vectorPath); err != nil {
		e.log.Warn("vector_index_save_failed", slog.String("error", err.Error()))
	}

	var firstErr error
	for _, closer := range []func() error{e.vectors.Close, e.lexical.Close, e.embedder.Close, e.content.Close} {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CaptureResult is capture's typed result.
type CaptureResult struct {
	ID string
}

// Capture stores, indexes, and — if the outcome is terminal — runs
// temporal credit for a new episode (spec §6.1).
func (e *Engine) Capture(ctx context.Context, input episode.Input) (*CaptureResult, error) {
	ep := &episode.Episode{
		ID:        uuid.NewString(),
		CreatedAt: input.CreatedAt,
		EndedAt:   input.EndedAt,
		Project:   input.Project,
		Intent:    input.Intent,
		Context:   input.Context,
		Outcome:   input.Outcome,
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now().UTC()
	}
	ep.Utility.LastUpdatedAt = ep.CreatedAt

	if err := e.indexer.Capture(ctx, ep); err != nil {
		return nil, err
	}

	if ep.Outcome.Status.IsTerminal() {
		if _, err := utility.AssignTemporalCredit(ctx, e.content, e.cfg.Utility, ep, time.Now().UTC(), e.log); err != nil {
			e.log.Warn("temporal_credit_failed", slog.String("episode_id", ep.ID), slog.String("error", err.Error()))
		}
	}

	return &CaptureResult{ID: ep.ID}, nil
}

// Retrieve ranks episodes against query (spec §6.1).
func (e *Engine) Retrieve(ctx context.Context, query string, opts retriever.Options) ([]*retriever.Ranked, error) {
	return e.retriever.Retrieve(ctx, query, opts)
}

// Fetch returns the episode with id, or a not-found error.
func (e *Engine) Fetch(ctx context.Context, id string) (*episode.Episode, error) {
	return e.retriever.Fetch(ctx, id)
}

// List returns every episode matching filter.
func (e *Engine) List(ctx context.Context, filter episode.Filter) ([]*episode.Episode, error) {
	return e.retriever.List(ctx, filter)
}

// FeedbackResult is feedback's typed result: ids successfully updated.
type FeedbackResult struct {
	Updated []string
	Failed  []string
}

// Feedback applies kind to every id and appends one line to feedback.log
// for each id whose update succeeded (spec §6.1, §6.2).
func (e *Engine) Feedback(ctx context.Context, ids []string, kind utility.Kind, query string) (*FeedbackResult, error) {
	now := time.Now().UTC()
	result := &FeedbackResult{}

	for _, id := range ids {
		if _, err := utility.ApplyFeedback(ctx, e.content, id, kind, query, now); err != nil {
			e.log.Warn("feedback_apply_failed", slog.String("episode_id", id), slog.String("error", err.Error()))
			result.Failed = append(result.Failed, id)
			continue
		}
		e.appendFeedbackLog(id, kind, query, now)
		result.Updated = append(result.Updated, id)
	}

	return result, nil
}

const feedbackLogName = "feedback.log"

// appendFeedbackLog appends one JSON line per feedback event. Best-effort:
// a logging failure never fails the feedback call itself.
func (e *Engine) appendFeedbackLog(id string, kind utility.Kind, query string, at time.Time) {
	path := filepath.Join(e.cfg.DataDir, feedbackLogName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		e.log.Warn("feedback_log_open_failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf(`{"at":%q,"episode_id":%q,"kind":%q,"query":%q}`+"\n",
		at.Format(time.RFC3339), id, kind, query)
	if _, err := f.WriteString(line); err != nil {
		e.log.Warn("feedback_log_write_failed", slog.String("error", err.Error()))
	}
}

// IndexAllResult is index_all's typed result.
type IndexAllResult struct {
	Written int
	Failed  int
}

// IndexAll projects every episode not yet indexed, or every episode when
// force is set, and removes orphaned index entries (spec §6.1).
func (e *Engine) IndexAll(ctx context.Context, force bool) (*IndexAllResult, error) {
	report, err := e.indexer.IndexAll(ctx, force)
	if err != nil {
		return nil, err
	}
	return &IndexAllResult{Written: report.Indexed, Failed: report.Failed}, nil
}

// PropagateOptions selects which propagation passes to run.
type PropagateOptions struct {
	Temporal bool
	Project  *string
}

// PropagateResult is propagate's typed result.
type PropagateResult struct {
	UpdatedCount int
	DecayedCount int
}

// Propagate runs spec §4.4.2's batch decay maintenance pass, then the
// Bellman-style utility spread, then, if requested, an explicit
// temporal-credit pass over every terminal episode (spec §6.1).
func (e *Engine) Propagate(ctx context.Context, opts PropagateOptions) (*PropagateResult, error) {
	now := time.Now().UTC()
	total := 0

	decayFilter := episode.Filter{}
	if opts.Project != nil {
		decayFilter.Project = opts.Project
	}
	decayReport, err := utility.DecayAll(ctx, e.content, e.cfg.Utility.DecayRate, decayFilter, now)
	if err != nil {
		return nil, err
	}

	report, err := e.propagator.Run(ctx, now)
	if err != nil {
		return nil, err
	}
	total += report.Updated

	if opts.Temporal {
		filter := episode.Filter{}
		if opts.Project != nil {
			filter.Project = opts.Project
		}
		episodes, err := e.content.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, ep := range episodes {
			if !ep.Outcome.Status.IsTerminal() {
				continue
			}
			tReport, err := utility.AssignTemporalCredit(ctx, e.content, e.cfg.Utility, ep, now, e.log)
			if err != nil {
				e.log.Warn("temporal_credit_failed", slog.String("episode_id", ep.ID), slog.String("error", err.Error()))
				continue
			}
			total += tReport.Updated
		}
	}

	return &PropagateResult{UpdatedCount: total, DecayedCount: decayReport.Updated}, nil
}

// PruneOptions tunes a single prune call, overriding config defaults.
type PruneOptions struct {
	MaxAgeDays *int
	MinUtility *float64
	Execute    bool
}

// PruneResult is prune's typed result.
type PruneResult struct {
	Candidates   []pruner.Candidate
	DeletedCount int
}

// Prune computes (and, if requested, deletes) aged low-utility
// never-helped episodes (spec §6.1, §4.5).
func (e *Engine) Prune(ctx context.Context, opts PruneOptions) (*PruneResult, error) {
	cfg := e.cfg.Prune
	if opts.MaxAgeDays != nil {
		cfg.MaxAgeDays = *opts.MaxAgeDays
	}
	if opts.MinUtility != nil {
		cfg.MinUtilityThreshold = *opts.MinUtility
	}

	p := pruner.New(e.content, e.indexer, cfg, e.log)
	now := time.Now().UTC()

	if !opts.Execute {
		report, err := p.DryRun(ctx, now)
		if err != nil {
			return nil, err
		}
		return &PruneResult{Candidates: report.Candidates}, nil
	}

	report, err := p.Execute(ctx, now)
	if err != nil {
		return nil, err
	}
	var result error
	if report.Failed > 0 {
		result = engerr.New(engerr.CodePruneIncomplete, fmt.Sprintf("%d of %d candidates failed to delete", report.Failed, len(report.Candidates)), nil)
	}
	return &PruneResult{Candidates: report.Candidates, DeletedCount: report.Deleted}, result
}

// Stats computes the read-only rollup (spec §6.1, §4.6), optionally
// scoped to a single project.
func (e *Engine) Stats(ctx context.Context, project *string) (*stats.Report, error) {
	if project == nil {
		return stats.Compute(ctx, e.content)
	}
	return stats.Compute(ctx, &projectScopedStore{Store: e.content, project: *project})
}

// HealthView is status's typed result (spec §6.1).
type HealthView struct {
	DataDir        string
	EpisodeCount   int
	VectorCount    int
	LexicalCount   int
	EmbeddingOK    bool
	EmbeddingModel string
}

// Status reports a lightweight health snapshot without mutating anything.
func (e *Engine) Status(ctx context.Context, project *string) (*HealthView, error) {
	filter := episode.Filter{}
	if project != nil {
		filter.Project = project
	}
	episodes, err := e.content.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	lexStats, err := e.lexical.Stats(ctx)
	if err != nil {
		lexStats = &lexindex.Stats{}
	}

	return &HealthView{
		DataDir:        e.cfg.DataDir,
		EpisodeCount:   len(episodes),
		VectorCount:    e.vectors.Count(),
		LexicalCount:   lexStats.DocumentCount,
		EmbeddingOK:    e.embedder.Available(ctx),
		EmbeddingModel: e.embedder.ModelName(),
	}, nil
}
