package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS monitored_pages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	url             TEXT NOT NULL UNIQUE,
	kind            TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL,
	last_checked_at TIMESTAMP,
	last_error      TEXT
);

CREATE TABLE IF NOT EXISTS meetings (
	id                TEXT PRIMARY KEY,
	page_url          TEXT NOT NULL,
	source_url        TEXT NOT NULL,
	detail_url        TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	speaker           TEXT NOT NULL DEFAULT '',
	start_text        TEXT NOT NULL DEFAULT '',
	start_at          TIMESTAMP,
	location          TEXT NOT NULL DEFAULT '',
	mode              TEXT NOT NULL DEFAULT 'unknown',
	abstract          TEXT NOT NULL DEFAULT '',
	online_link       TEXT NOT NULL DEFAULT '',
	speaker_intro     TEXT NOT NULL DEFAULT '',
	speaker_intro_url TEXT NOT NULL DEFAULT '',
	first_seen        TIMESTAMP NOT NULL,
	last_seen         TIMESTAMP NOT NULL,
	last_updated      TIMESTAMP NOT NULL,
	version           INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS meeting_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	meeting_id  TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	recorded_at TIMESTAMP NOT NULL,
	data_hash   TEXT NOT NULL,
	payload     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_meetings_page ON meetings(page_url);
CREATE INDEX IF NOT EXISTS idx_history_meeting ON meeting_history(meeting_id);
`

// Store wraps the SQLite database.
type Store struct {
	db *sqlx.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per identity key
}

// Open opens (creating if necessary) the database at path. "~/" expands to
// the home directory; ":memory:" opens an in-memory database for tests.
func Open(path string) (*Store, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// sqlite allows a single writer; one connection keeps the driver from
	// returning SQLITE_BUSY under concurrent page crawls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// keyLock returns the mutex serializing writes for one identity key.
func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
