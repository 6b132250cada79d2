package engine

import (
	"context"

	"github.com/Aman-CERP/epimem/internal/contentstore"
	"github.com/Aman-CERP/epimem/internal/episode"
)

// projectScopedStore narrows List to a single project, letting
// internal/stats.Compute scan a project-scoped view without a
// project-aware stats API of its own.
type projectScopedStore struct {
	contentstore.Store
	project string
}

func (s *projectScopedStore) List(ctx context.Context, filter episode.Filter) ([]*episode.Episode, error) {
	filter.Project = &s.project
	return s.Store.List(ctx, filter)
}
