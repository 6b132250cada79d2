package engerr

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	err := New(CodeFileNotFound, "episode partition 'episodes-2026-07-30.json' not found", nil)

	result := FormatForUser(err)

	assert.Contains(t, result, "episode partition")
	assert.Contains(t, result, "[ENG_201_FILE_NOT_FOUND]")
}

func TestFormatForUser_WithSuggestion(t *testing.T) {
	err := New(CodeEmbeddingUnavailable, "embedding provider is not reachable", nil).
		WithSuggestion("set embedding.provider to 'static' in config.toml")

	result := FormatForUser(err)

	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "config.toml")
}

func TestFormatForUser_StandardError(t *testing.T) {
	err := errors.New("something went wrong")

	result := FormatForUser(err)

	assert.Contains(t, result, "something went wrong")
}

func TestFormatForUser_NilError(t *testing.T) {
	result := FormatForUser(nil)

	assert.Empty(t, result)
}

func TestFormatJSON_BasicError(t *testing.T) {
	err := New(CodeFileNotFound, "episode not found", nil).
		WithDetail("episode_id", "ep_0001").
		WithSuggestion("check the episode id")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, CodeFileNotFound, result["code"])
	assert.Equal(t, "episode not found", result["message"])
	assert.Equal(t, string(CategoryStoreIO), result["category"])
	assert.Equal(t, string(SeverityError), result["severity"])
	assert.Equal(t, "check the episode id", result["suggestion"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ep_0001", details["episode_id"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	err := errors.New("generic error")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, CodeInternal, result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	data, err := FormatJSON(nil)

	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(CodeInternal, "operation failed", cause)

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}

func TestFormatForCLI_IncludesErrorCode(t *testing.T) {
	err := New(CodeCorruptRecord, "episode record is corrupt", nil).
		WithSuggestion("run 'epimem reindex' to rebuild the projection index")

	result := FormatForCLI(err)

	assert.Contains(t, result, "episode record is corrupt")
	assert.Contains(t, result, "ENG_203_CORRUPT_RECORD")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	err := New(CodeFileNotFound, "file not found", nil)

	result := FormatForCLI(err)

	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "should be concise")
}

func TestFormatForLog_IncludesStructuredFields(t *testing.T) {
	err := New(CodeEmbeddingUnavailable, "provider timeout", errors.New("dial tcp: timeout")).
		WithDetail("provider", "http")

	fields := FormatForLog(err)

	assert.Equal(t, CodeEmbeddingUnavailable, fields["error_code"])
	assert.Equal(t, true, fields["retryable"])
	assert.Equal(t, "http", fields["detail_provider"])
}
