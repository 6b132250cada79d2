package embedadapter

import (
	"context"

	"github.com/Aman-CERP/epimem/internal/config"
)

// New builds the configured Embedder: the deterministic local provider, or
// a remote HTTP provider, wrapped with LRU caching (spec §1's embedding
// collaborator contract — the engine depends only on the Embedder
// interface, never on a specific backend).
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var inner Embedder

	switch cfg.Provider {
	case "http":
		inner = NewHTTPEmbedder(cfg.Endpoint, cfg.Dimension)
	default:
		inner = NewStaticEmbedder(cfg.Dimension)
	}

	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

// Background returns a context suitable for embedder warm-up calls made
// outside a facade operation's own context (e.g. during init).
func Background() context.Context {
	return context.Background()
}
