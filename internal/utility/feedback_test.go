package utility

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/episode"
)

func newFeedbackTestEpisode(t *testing.T, store contentstore.Store, id string) *episode.Episode {
	t.Helper()
	e := &episode.Episode{
		ID:        id,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Project:   "proj",
		Intent:    episode.Intent{RawPrompt: "fix bug", TaskType: episode.TaskBugfix},
		Outcome:   episode.Outcome{Status: episode.OutcomeSuccess},
	}
	require.NoError(t, store.Put(context.Background(), e))
	return e
}

// TestApplyFeedback_OnFreshEpisode_DrivesRetrievalCountUpward covers the
// n=1 testable property: feedback(helpful) on a never-retrieved episode
// must bump retrieval_count itself, not just helpful_count, since there
// is no prior retrieve footprint to attach the verdict to.
func TestApplyFeedback_OnFreshEpisode_DrivesRetrievalCountUpward(t *testing.T) {
	store, err := contentstore.Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	newFeedbackTestEpisode(t, store, "a")
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	got, err := ApplyFeedback(context.Background(), store, "a", KindHelpful, "fix login bug", now)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Utility.RetrievalCount)
	assert.Equal(t, 1.0, got.Utility.HelpfulCount)
	assert.InDelta(t, 0.2065, got.Utility.Score, 0.0005)
	require.NotEmpty(t, got.Utility.RetrievalHistory)
	require.NotNil(t, got.Utility.RetrievalHistory[0].Helpful)
	assert.True(t, *got.Utility.RetrievalHistory[0].Helpful)
	assert.Equal(t, "fix login bug", got.Utility.RetrievalHistory[0].Query)
}

// TestApplyFeedback_RepeatedHelpful_MatchesSeedScenario covers seed
// scenario 2: capture A, then feedback(helpful) x3 on an episode with no
// intervening retrieval footprints yields (n=3, p=1) ≈ 0.4385.
func TestApplyFeedback_RepeatedHelpful_MatchesSeedScenario(t *testing.T) {
	store, err := contentstore.Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	newFeedbackTestEpisode(t, store, "a")
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	var got *episode.Episode
	for i := 0; i < 3; i++ {
		got, err = ApplyFeedback(context.Background(), store, "a", KindHelpful, "", now)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, got.Utility.RetrievalCount)
	assert.Equal(t, 3.0, got.Utility.HelpfulCount)
	assert.InDelta(t, 0.4385, got.Utility.Score, 0.0005)
}

// TestApplyFeedback_FillsPendingRetrieval covers the companion case: a
// retrieve footprint already incremented retrieval_count and appended a
// pending (Helpful == nil) history entry, so feedback must fill that
// entry in place rather than double-count.
func TestApplyFeedback_FillsPendingRetrieval(t *testing.T) {
	store, err := contentstore.Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	e := newFeedbackTestEpisode(t, store, "a")
	_, err = store.UpdateUtility(context.Background(), e.ID, func(e *episode.Episode) {
		e.Utility.RetrievalCount++
		e.Utility.AppendRetrieval(episode.RetrievalEvent{At: time.Now(), Query: "q"})
	})
	require.NoError(t, err)

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	got, err := ApplyFeedback(context.Background(), store, "a", KindHelpful, "q", now)
	require.NoError(t, err)

	assert.Equal(t, 1, got.Utility.RetrievalCount, "feedback on a pending retrieval must not bump retrieval_count again")
	require.Len(t, got.Utility.RetrievalHistory, 1)
	require.NotNil(t, got.Utility.RetrievalHistory[0].Helpful)
	assert.True(t, *got.Utility.RetrievalHistory[0].Helpful)
}

func TestApplyFeedback_NotHelpful(t *testing.T) {
	store, err := contentstore.Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	newFeedbackTestEpisode(t, store, "a")
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	got, err := ApplyFeedback(context.Background(), store, "a", KindNotHelpful, "", now)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Utility.Score)
	assert.Equal(t, 0.0, got.Utility.HelpfulCount)
	assert.Equal(t, 1, got.Utility.RetrievalCount)
}

func TestApplyFeedback_Mixed(t *testing.T) {
	store, err := contentstore.Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	newFeedbackTestEpisode(t, store, "a")
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	got, err := ApplyFeedback(context.Background(), store, "a", KindMixed, "", now)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.Utility.HelpfulCount)
}

func TestApplyFeedback_InvalidKind(t *testing.T) {
	store, err := contentstore.Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	newFeedbackTestEpisode(t, store, "a")
	_, err = ApplyFeedback(context.Background(), store, "a", Kind("bogus"), "", time.Now())
	require.Error(t, err)
}
