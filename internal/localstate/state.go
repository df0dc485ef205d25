// Package localstate owns the client-local continuity database: the last
// session (selected item and scroll offset) and the set of jobs whose files
// were already retrieved, so a restart never re-downloads. A file lock keeps
// two clients from sharing one state directory.
package localstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"streamq/internal/api"
	"streamq/internal/config"
)

// Session is the restorable UI position.
type Session struct {
	LastItemID   string
	ScrollOffset int
}

// State is the open continuity database plus the instance lock.
type State struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open acquires the instance lock and initializes the database. A second
// client on the same state directory gets an ErrBusy.
func Open(cfg *config.Config) (*State, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.StateDir, "streamq.lock"))
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !held {
		return nil, api.Wrap(api.ErrBusy, "localstate", "open", "another instance holds the state directory", nil)
	}

	dbPath := filepath.Join(cfg.StateDir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	state := &State{db: db, path: dbPath, lock: lock}
	if err := state.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return state, nil
}

func (s *State) applyMigrations(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS session (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            last_item_id TEXT NOT NULL DEFAULT '',
            scroll_offset INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS downloaded (
            job_id TEXT PRIMARY KEY,
            fetched_at TEXT NOT NULL
        )`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// Close releases the database and the instance lock.
func (s *State) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LastSession returns the stored UI position. A fresh database reads as the
// zero session.
func (s *State) LastSession(ctx context.Context) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT last_item_id, scroll_offset FROM session WHERE id = 1`)
	var session Session
	if err := row.Scan(&session.LastItemID, &session.ScrollOffset); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return session, nil
}

// SaveSession stores the UI position, replacing any previous one.
func (s *State) SaveSession(ctx context.Context, session Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (id, last_item_id, scroll_offset) VALUES (1, ?, ?)
         ON CONFLICT(id) DO UPDATE SET last_item_id = excluded.last_item_id,
             scroll_offset = excluded.scroll_offset`,
		session.LastItemID, session.ScrollOffset)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// MarkDownloaded records that a job's file was retrieved. Re-marking is a
// no-op.
func (s *State) MarkDownloaded(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO downloaded (job_id, fetched_at) VALUES (?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
         ON CONFLICT(job_id) DO NOTHING`, jobID)
	if err != nil {
		return fmt.Errorf("mark downloaded: %w", err)
	}
	return nil
}

// Downloaded reports whether a job's file was already retrieved.
func (s *State) Downloaded(ctx context.Context, jobID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM downloaded WHERE job_id = ?`, jobID)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("read downloaded: %w", err)
	}
	return count > 0, nil
}

// DownloadedIDs returns every job id whose file was retrieved.
func (s *State) DownloadedIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id FROM downloaded ORDER BY job_id`)
	if err != nil {
		return nil, fmt.Errorf("list downloaded: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan downloaded: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloaded: %w", err)
	}
	return ids, nil
}
