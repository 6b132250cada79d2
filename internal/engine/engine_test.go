package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/epimem/internal/engerr"
	"github.com/Aman-CERP/epimem/internal/episode"
	"github.com/Aman-CERP/epimem/internal/retriever"
	"github.com/Aman-CERP/epimem/internal/utility"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()

	cfg, err := Init(dir, nil)
	require.NoError(t, err)
	require.Equal(t, dir, cfg.DataDir)

	e, err := Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func testInput(project, prompt string) episode.Input {
	return episode.Input{
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndedAt:   time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC),
		Project:   project,
		Intent:    episode.Intent{RawPrompt: prompt, TaskType: episode.TaskBugfix},
		Outcome:   episode.Outcome{Status: episode.OutcomeSuccess},
	}
}

func TestEngine_InitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir, nil)
	require.NoError(t, err)
	cfg, err := Init(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retrieval.DefaultLimit)
}

func TestEngine_CaptureAndFetch(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.Capture(context.Background(), testInput("proj", "fix login bug"))
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)

	got, err := e.Fetch(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, "proj", got.Project)
}

func TestEngine_CaptureAndRetrieve(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.Capture(context.Background(), testInput("proj", "fix login authentication bug"))
	require.NoError(t, err)

	results, err := e.Retrieve(context.Background(), "fix login authentication bug", retriever.Options{K: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, result.ID, results[0].Episode.ID)
}

func TestEngine_Feedback_UpdatesUtilityAndLog(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.Capture(context.Background(), testInput("proj", "fix login bug"))
	require.NoError(t, err)

	_, err = e.Retrieve(context.Background(), "fix login bug", retriever.Options{K: 1})
	require.NoError(t, err)

	fbResult, err := e.Feedback(context.Background(), []string{result.ID}, utility.KindHelpful, "fix login bug")
	require.NoError(t, err)
	assert.Contains(t, fbResult.Updated, result.ID)

	got, err := e.Fetch(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Greater(t, got.Utility.Score, 0.0)

	logData, err := os.ReadFile(filepath.Join(e.cfg.DataDir, feedbackLogName))
	require.NoError(t, err)
	assert.Contains(t, string(logData), result.ID)
}

func TestEngine_IndexAll(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Capture(context.Background(), testInput("proj", "fix login bug"))
	require.NoError(t, err)

	result, err := e.IndexAll(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)
}

func TestEngine_Propagate(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Capture(context.Background(), testInput("proj", "fix login bug"))
	require.NoError(t, err)

	result, err := e.Propagate(context.Background(), PropagateOptions{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.UpdatedCount, 0)
	assert.GreaterOrEqual(t, result.DecayedCount, 0)
}

// TestEngine_Propagate_DecaysStaleUtility covers spec §4.4.2's batch
// maintenance requirement: propagate must decay every episode's stored
// score, not just the ones a read happens to touch.
func TestEngine_Propagate_DecaysStaleUtility(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Capture(context.Background(), testInput("proj", "fix login bug"))
	require.NoError(t, err)

	thirtyDaysAgo := time.Now().UTC().Add(-30 * 24 * time.Hour)
	_, err = e.content.UpdateUtility(context.Background(), result.ID, func(ep *episode.Episode) {
		ep.Utility.Score = 0.8
		ep.Utility.LastRetrievedAt = &thirtyDaysAgo
	})
	require.NoError(t, err)

	propResult, err := e.Propagate(context.Background(), PropagateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, propResult.DecayedCount)

	got, err := e.content.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Less(t, got.Utility.Score, 0.8)
}

func TestEngine_Prune_DryRunThenExecute(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Capture(context.Background(), testInput("proj", "fix login bug"))
	require.NoError(t, err)

	maxAge := 0
	minUtil := 1.0
	dry, err := e.Prune(context.Background(), PruneOptions{MaxAgeDays: &maxAge, MinUtility: &minUtil})
	require.NoError(t, err)
	require.Len(t, dry.Candidates, 1)

	exec, err := e.Prune(context.Background(), PruneOptions{MaxAgeDays: &maxAge, MinUtility: &minUtil, Execute: true})
	require.NoError(t, err)
	assert.Equal(t, 1, exec.DeletedCount)

	_, err = e.Fetch(context.Background(), dry.Candidates[0].ID)
	require.Error(t, err)
}

func TestEngine_Stats(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Capture(context.Background(), testInput("proj", "fix login bug"))
	require.NoError(t, err)

	report, err := e.Stats(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
}

func TestEngine_Stats_ScopedToProject(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Capture(context.Background(), testInput("proj-a", "fix login bug"))
	require.NoError(t, err)
	_, err = e.Capture(context.Background(), testInput("proj-b", "unrelated work"))
	require.NoError(t, err)

	proj := "proj-a"
	report, err := e.Stats(context.Background(), &proj)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
}

func TestEngine_Status(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Capture(context.Background(), testInput("proj", "fix login bug"))
	require.NoError(t, err)

	health, err := e.Status(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, health.EpisodeCount)
	assert.True(t, health.EmbeddingOK)
}

func TestEngine_Fetch_NotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Fetch(context.Background(), "missing")
	require.Error(t, err)
}

func TestEngine_Open_NotInitialized(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, nil)
	require.Error(t, err)
	assert.Equal(t, engerr.KindNotInitialized, engerr.GetKind(err))
}
