// Package contentstore is the durable episode store (spec §4.1): episodes
// persisted as self-describing JSON records under per-day partitions, with
// a SQLite side-index for O(1) id lookup and filtered listing. Each
// episode's write is crash-consistent at single-episode granularity via a
// write-to-temp-then-rename, and concurrent writers for the same id are
// serialized by an in-process per-id lock; writers for distinct ids
// proceed independently.
package contentstore

import (
	"context"

	"github.com/Aman-CERP/epimem/internal/episode"
)

// Mutator transforms an episode in place; used by UpdateUtility for
// read-modify-write cycles under the per-id lock.
type Mutator func(e *episode.Episode)

// Store is the content-store contract (spec §4.1).
type Store interface {
	// Put persists episode, creating or overwriting its record.
	Put(ctx context.Context, e *episode.Episode) error

	// Get loads an episode by id. Returns an engerr NotFound error if
	// absent.
	Get(ctx context.Context, id string) (*episode.Episode, error)

	// List returns every episode matching filter, across all date
	// partitions it intersects.
	List(ctx context.Context, filter episode.Filter) ([]*episode.Episode, error)

	// UpdateUtility loads the episode by id, applies mut, and persists
	// the result, all under the per-id lock.
	UpdateUtility(ctx context.Context, id string, mut Mutator) (*episode.Episode, error)

	// Delete removes an episode's record. Deleting a missing id is a
	// no-op.
	Delete(ctx context.Context, id string) error

	// Close releases resources. Idempotent.
	Close() error
}
