package contentstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"github.com/Aman-CERP/epimem/internal/episode"
)

// sqliteIndex is the id→path auxiliary index (spec §4.1) that makes
// lookup-by-id and filtered listing cheap without scanning every
// per-day partition.
type sqliteIndex struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

func newSQLiteIndex(rootDir string) (*sqliteIndex, error) {
	path := filepath.Join(rootDir, "index.sqlite")
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create content store directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open content store index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	idx := &sqliteIndex{db: db}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init content store index schema: %w", err)
	}
	return idx, nil
}

func (s *sqliteIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS episodes (
		id             TEXT PRIMARY KEY,
		path           TEXT NOT NULL,
		project        TEXT NOT NULL DEFAULT '',
		task_type      TEXT NOT NULL DEFAULT '',
		outcome_status TEXT NOT NULL DEFAULT '',
		created_at     INTEGER NOT NULL,
		utility_score  REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_episodes_project ON episodes(project);
	CREATE INDEX IF NOT EXISTS idx_episodes_created_at ON episodes(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// upsert records or replaces id's location and filterable fields.
func (s *sqliteIndex) upsert(ctx context.Context, e *episode.Episode, relPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("content store index is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes(id, path, project, task_type, outcome_status, created_at, utility_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path=excluded.path, project=excluded.project, task_type=excluded.task_type,
			outcome_status=excluded.outcome_status, created_at=excluded.created_at,
			utility_score=excluded.utility_score
	`, e.ID, relPath, e.Project, string(e.Intent.TaskType), string(e.Outcome.Status),
		e.CreatedAt.Unix(), e.Utility.Score)
	if err != nil {
		return fmt.Errorf("upsert episode index entry: %w", err)
	}
	return nil
}

// path returns id's relative path, or "" with no error if id is unknown.
func (s *sqliteIndex) path(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("content store index is closed")
	}

	var relPath string
	err := s.db.QueryRowContext(ctx, `SELECT path FROM episodes WHERE id = ?`, id).Scan(&relPath)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup episode path: %w", err)
	}
	return relPath, nil
}

// listCandidates returns the paths of episodes matching the index-backed
// portion of filter (project/task_type/outcome/created_at/utility),
// narrowing the set of per-day partitions the caller needs to decode.
func (s *sqliteIndex) listCandidates(ctx context.Context, filter episode.Filter) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("content store index is closed")
	}

	query := `SELECT path FROM episodes WHERE 1=1`
	var args []any

	if filter.Project != nil {
		query += ` AND project = ?`
		args = append(args, *filter.Project)
	}
	if filter.TaskType != nil {
		query += ` AND task_type = ?`
		args = append(args, string(*filter.TaskType))
	}
	if filter.OutcomeStatus != nil {
		query += ` AND outcome_status = ?`
		args = append(args, string(*filter.OutcomeStatus))
	}
	if filter.CreatedAfter != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.Unix())
	}
	if filter.CreatedBefore != nil {
		query += ` AND created_at <= ?`
		args = append(args, filter.CreatedBefore.Unix())
	}
	if filter.MinUtility != nil {
		query += ` AND utility_score >= ?`
		args = append(args, *filter.MinUtility)
	}
	if filter.MaxUtility != nil {
		query += ` AND utility_score <= ?`
		args = append(args, *filter.MaxUtility)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episode candidates: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *sqliteIndex) delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("content store index is closed")
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete episode index entry: %w", err)
	}
	return nil
}

func (s *sqliteIndex) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// partitionFor returns the YYYY-MM-DD partition directory name for t.
func partitionFor(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
