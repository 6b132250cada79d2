package embedadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Aman-CERP/epimem/internal/engerr"
)

// HTTPEmbedder calls an external embed(text)→vector provider over HTTP,
// the "remote" half of the embedding collaborator contract (spec §1). The
// provider is expected to accept `{"texts": [...]}` and reply with
// `{"vectors": [[...], ...]}`, one vector per input text in order.
type HTTPEmbedder struct {
	endpoint string
	dim      int
	client   *http.Client
	breaker  *engerr.CircuitBreaker
	model    string
}

// NewHTTPEmbedder creates a remote embedder against endpoint, guarded by a
// circuit breaker so a flapping provider degrades to EmbeddingUnavailable
// quickly instead of retrying indefinitely.
func NewHTTPEmbedder(endpoint string, dim int) *HTTPEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HTTPEmbedder{
		endpoint: endpoint,
		dim:      dim,
		client:   &http.Client{Timeout: 30 * time.Second},
		breaker:  engerr.NewCircuitBreaker("embedder-http"),
		model:    "remote",
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// Embed generates the embedding for a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts via one remote call,
// retried once on transient failure and tripped through a circuit breaker.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if !e.breaker.Allow() {
		return nil, engerr.EmbeddingUnavailableError("embedding provider circuit open", fmt.Errorf("circuit open for %s", e.endpoint))
	}

	var result [][]float32
	callErr := CallWithRetry(ctx, DefaultRetryConfig(), func() error {
		vecs, err := e.call(ctx, texts)
		if err != nil {
			return err
		}
		result = vecs
		return nil
	})

	if callErr != nil {
		e.breaker.RecordFailure()
		return nil, engerr.EmbeddingUnavailableError("embedding provider call failed", callErr)
	}
	e.breaker.RecordSuccess()

	for i, v := range result {
		if len(v) != e.dim {
			return nil, engerr.ValidationError(fmt.Sprintf(
				"embedding %d has dimension %d, expected %d", i, len(v), e.dim), nil)
		}
	}

	return result, nil
}

func (e *HTTPEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding provider returned %d: %s", resp.StatusCode, string(data))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	if len(out.Vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d vectors, got %d", len(texts), len(out.Vectors))
	}
	return out.Vectors, nil
}

// Dimensions returns the embedding dimension.
func (e *HTTPEmbedder) Dimensions() int { return e.dim }

// ModelName returns the model identifier reported by the remote provider.
func (e *HTTPEmbedder) ModelName() string { return e.model }

// Available probes the provider without consuming API-level retries.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	if !e.breaker.Allow() {
		return false
	}
	_, err := e.call(ctx, []string{"ping"})
	return err == nil
}

// Close releases resources held by the HTTP client (none to release).
func (e *HTTPEmbedder) Close() error { return nil }
