package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesSpecDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, 0.5, cfg.Retrieval.MinSimilarity)
	assert.Equal(t, 0.7, cfg.Retrieval.UtilityWeight)
	assert.Equal(t, 0.01, cfg.Utility.DecayRate)
	assert.Equal(t, 0.9, cfg.Utility.DiscountFactor)
	assert.Equal(t, 0.1, cfg.Utility.LearningRate)
	assert.Equal(t, 0.5, cfg.Utility.PropagationThreshold)
	assert.Equal(t, 180, cfg.Prune.MaxAgeDays)
	assert.Equal(t, 0.05, cfg.Prune.MinUtilityThreshold)
	assert.Equal(t, 384, cfg.Embedding.Dimension)

	require.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default().Retrieval, cfg.Retrieval)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_ReadsTOMLOverrides(t *testing.T) {
	dir := t.TempDir()
	toml := `
[retrieval]
default_limit = 5
min_similarity = 0.6
utility_weight = 0.4

[prune]
max_age_days = 90
min_utility_threshold = 0.1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(toml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, 0.6, cfg.Retrieval.MinSimilarity)
	assert.Equal(t, 0.4, cfg.Retrieval.UtilityWeight)
	assert.Equal(t, 90, cfg.Prune.MaxAgeDays)
	assert.Equal(t, 0.1, cfg.Prune.MinUtilityThreshold)
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	toml := "[retrieval]\ndefault_limit = 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(toml), 0o644))

	t.Setenv("EPIMEM_RETRIEVAL_DEFAULT_LIMIT", "9")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Retrieval.DefaultLimit)
}

func TestLoad_InvalidTOMLReturnsValidationError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("not valid [[[ toml"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestValidate_RejectsOutOfRangeValues(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.MinSimilarity = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Utility.LearningRate = -0.1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Embedding.Dimension = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Embedding.Provider = "http"
	cfg.Embedding.Endpoint = ""
	assert.Error(t, cfg.Validate())
}

func TestSave_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DataDir = dir
	cfg.Retrieval.DefaultLimit = 7

	require.NoError(t, cfg.Save())

	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.Retrieval.DefaultLimit)
}
