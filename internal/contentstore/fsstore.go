package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/epimem/internal/engerr"
	"github.com/Aman-CERP/epimem/internal/episode"
)

// episodesDirName is the subdirectory under the data root holding the
// per-day JSON partitions.
const episodesDirName = "episodes"

// FSStore is a Store backed by per-day JSON partitions under rootDir, with
// a SQLite side-index for O(1) id lookup and filtered listing.
type FSStore struct {
	rootDir string
	idx     *sqliteIndex
	locks   *idLocks
}

var _ Store = (*FSStore)(nil)

// Open creates or opens a content store rooted at rootDir.
func Open(rootDir string) (*FSStore, error) {
	episodesDir := filepath.Join(rootDir, episodesDirName)
	if err := os.MkdirAll(episodesDir, 0o755); err != nil {
		return nil, engerr.StoreIOError("create episodes directory", err)
	}

	idx, err := newSQLiteIndex(rootDir)
	if err != nil {
		return nil, engerr.StoreIOError("open content store index", err)
	}

	return &FSStore{rootDir: rootDir, idx: idx, locks: newIDLocks()}, nil
}

// recordPath returns id's record path, relative to rootDir, partitioned
// by e's capture date.
func recordPath(e *episode.Episode) string {
	return filepath.Join(episodesDirName, partitionFor(e.CreatedAt), fmt.Sprintf("session-%s.json", e.ID))
}

// Put persists e, creating or overwriting its record. The write is
// crash-consistent: the record is written to a temp file in its partition
// directory and atomically renamed into place, so a reader always sees
// either the prior record or the complete new one.
func (s *FSStore) Put(ctx context.Context, e *episode.Episode) error {
	unlock := s.locks.lock(e.ID)
	defer unlock()

	relPath := recordPath(e)
	absPath := filepath.Join(s.rootDir, relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return engerr.StoreIOError("create partition directory", err)
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return engerr.InternalError("marshal episode", err)
	}

	tmpPath := absPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return engerr.StoreIOError("write episode record", err)
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		os.Remove(tmpPath)
		return engerr.StoreIOError("rename episode record", err)
	}

	if err := s.idx.upsert(ctx, e, relPath); err != nil {
		return engerr.StoreIOError("update content store index", err)
	}

	return nil
}

// Get loads an episode by id.
func (s *FSStore) Get(ctx context.Context, id string) (*episode.Episode, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	return s.getLocked(ctx, id)
}

func (s *FSStore) getLocked(ctx context.Context, id string) (*episode.Episode, error) {
	relPath, err := s.idx.path(ctx, id)
	if err != nil {
		return nil, engerr.StoreIOError("lookup episode path", err)
	}
	if relPath == "" {
		return nil, engerr.NotFoundError(fmt.Sprintf("episode %q not found", id), nil)
	}

	return s.readRecord(relPath)
}

func (s *FSStore) readRecord(relPath string) (*episode.Episode, error) {
	data, err := os.ReadFile(filepath.Join(s.rootDir, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, engerr.NotFoundError("episode record missing from disk", err)
		}
		return nil, engerr.StoreIOError("read episode record", err)
	}

	var e episode.Episode
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, engerr.StoreIOError("decode episode record", err)
	}
	return &e, nil
}

// List returns every episode matching filter.
func (s *FSStore) List(ctx context.Context, filter episode.Filter) ([]*episode.Episode, error) {
	paths, err := s.idx.listCandidates(ctx, filter)
	if err != nil {
		return nil, engerr.StoreIOError("list episode candidates", err)
	}

	episodes := make([]*episode.Episode, 0, len(paths))
	for _, relPath := range paths {
		e, err := s.readRecord(relPath)
		if err != nil {
			if engerr.GetCode(err) == engerr.CodeNotFound {
				continue // reconciled away by a concurrent delete
			}
			return nil, err
		}
		episodes = append(episodes, e)
	}
	return episodes, nil
}

// UpdateUtility loads id, applies mut, and persists the result atomically
// under id's lock.
func (s *FSStore) UpdateUtility(ctx context.Context, id string, mut Mutator) (*episode.Episode, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	e, err := s.getLocked(ctx, id)
	if err != nil {
		return nil, err
	}

	mut(e)

	relPath := recordPath(e)
	absPath := filepath.Join(s.rootDir, relPath)
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, engerr.InternalError("marshal episode", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, engerr.StoreIOError("create partition directory", err)
	}

	tmpPath := absPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return nil, engerr.StoreIOError("write episode record", err)
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		os.Remove(tmpPath)
		return nil, engerr.StoreIOError("rename episode record", err)
	}

	if err := s.idx.upsert(ctx, e, relPath); err != nil {
		return nil, engerr.StoreIOError("update content store index", err)
	}

	return e, nil
}

// Delete removes id's record. A missing id is a no-op.
func (s *FSStore) Delete(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	relPath, err := s.idx.path(ctx, id)
	if err != nil {
		return engerr.StoreIOError("lookup episode path", err)
	}
	if relPath == "" {
		return nil
	}

	if err := s.idx.delete(ctx, id); err != nil {
		return engerr.StoreIOError("delete content store index entry", err)
	}

	absPath := filepath.Join(s.rootDir, relPath)
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return engerr.StoreIOError("remove episode record", err)
	}
	return nil
}

// Close releases resources. Idempotent.
func (s *FSStore) Close() error {
	return s.idx.close()
}
