package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Index mirrors per-session metadata into SQLite so session listings and
// lookups do not have to scan every JSONL file.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// WAL mode so a concurrent reader does not block appends.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().Str("path", path).Msg("Session index opened")
	return idx, nil
}

func (idx *Index) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		key TEXT PRIMARY KEY,
		message_count INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		last_modified TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_modified ON sessions(last_modified);
	`
	if _, err := idx.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize index schema: %w", err)
	}
	return nil
}

// Touch inserts or updates a session's metadata row.
func (idx *Index) Touch(info Info) error {
	_, err := idx.db.Exec(`
		INSERT INTO sessions (key, message_count, size, last_modified)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			message_count = excluded.message_count,
			size = excluded.size,
			last_modified = excluded.last_modified`,
		info.Key, info.MessageCount, info.Size, info.LastModified,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session metadata: %w", err)
	}
	return nil
}

// Remove deletes a session's metadata row.
func (idx *Index) Remove(key string) error {
	if _, err := idx.db.Exec(`DELETE FROM sessions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete session metadata: %w", err)
	}
	return nil
}

// Get returns the indexed metadata for one session.
func (idx *Index) Get(key string) (Info, error) {
	var info Info
	err := idx.db.QueryRow(`
		SELECT key, message_count, size, last_modified
		FROM sessions WHERE key = ?`, key,
	).Scan(&info.Key, &info.MessageCount, &info.Size, &info.LastModified)
	if err == sql.ErrNoRows {
		return Info{}, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	if err != nil {
		return Info{}, fmt.Errorf("failed to query session metadata: %w", err)
	}
	return info, nil
}

// MostRecent returns up to limit sessions ordered by last modification,
// newest first. A non-positive limit returns everything.
func (idx *Index) MostRecent(limit int) ([]Info, error) {
	query := `SELECT key, message_count, size, last_modified FROM sessions ORDER BY last_modified DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = idx.db.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = idx.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		if err := rows.Scan(&info.Key, &info.MessageCount, &info.Size, &info.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// StaleBefore returns keys of sessions last modified before cutoff.
func (idx *Index) StaleBefore(cutoff time.Time) ([]string, error) {
	rows, err := idx.db.Query(`SELECT key FROM sessions WHERE last_modified < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale sessions: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan session key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the underlying database.
func (idx *Index) Close() error {
	return idx.db.Close()
}
