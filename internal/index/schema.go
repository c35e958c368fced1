// Package index provides the SQLite-backed note index: links, tags, todos,
// heading blocks, full-text search and the sync metadata that keeps them
// current with the vault.
package index

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/quire/internal/apperr"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS links (
	from_note TEXT NOT NULL,
	to_note   TEXT NOT NULL,
	UNIQUE(from_note, to_note)
);

CREATE TABLE IF NOT EXISTS tags (
	tag       TEXT NOT NULL,
	note_path TEXT NOT NULL,
	UNIQUE(tag, note_path)
);

CREATE TABLE IF NOT EXISTS todos (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	note_path          TEXT    NOT NULL,
	line_number        INTEGER NOT NULL,
	content            TEXT    NOT NULL,
	is_completed       INTEGER NOT NULL DEFAULT 0,
	due_date           TEXT,
	priority           TEXT,
	indent_level       INTEGER NOT NULL DEFAULT 0,
	parent_line        INTEGER,
	recurrence_pattern TEXT,
	UNIQUE(note_path, line_number)
);

CREATE TABLE IF NOT EXISTS blocks (
	block_id    TEXT    NOT NULL,
	note_path   TEXT    NOT NULL,
	line_number INTEGER NOT NULL,
	content     TEXT    NOT NULL,
	UNIQUE(note_path, block_id)
);

CREATE TABLE IF NOT EXISTS sync_metadata (
	note_path   TEXT PRIMARY KEY,
	mtime_secs  INTEGER NOT NULL,
	mtime_nanos INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_links_from      ON links(from_note);
CREATE INDEX IF NOT EXISTS idx_links_to        ON links(to_note);
CREATE INDEX IF NOT EXISTS idx_tags_tag        ON tags(tag);
CREATE INDEX IF NOT EXISTS idx_tags_note       ON tags(note_path);
CREATE INDEX IF NOT EXISTS idx_todos_note      ON todos(note_path);
CREATE INDEX IF NOT EXISTS idx_todos_completed ON todos(is_completed);
CREATE INDEX IF NOT EXISTS idx_todos_due       ON todos(due_date);
CREATE INDEX IF NOT EXISTS idx_todos_priority  ON todos(priority);
CREATE INDEX IF NOT EXISTS idx_blocks_note     ON blocks(note_path);
CREATE INDEX IF NOT EXISTS idx_blocks_id       ON blocks(block_id);
`

// DB is the index handle. Every public method holds mu for its own
// duration; the connection is never exposed.
type DB struct {
	conn   *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// Open opens (or creates) the SQLite database and applies the schema.
// A nil logger falls back to slog.Default.
func Open(dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w: %w", apperr.ErrStorage, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w: %w", apperr.ErrStorage, err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w: %w", apperr.ErrStorage, err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w: %w", apperr.ErrStorage, err)
	}
	if !fullTextStemming {
		logger.Warn("index: built without FTS5, search has no stemming or ranking; rebuild with -tags sqlite_fts5")
	}
	return &DB{conn: conn, logger: logger}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}
