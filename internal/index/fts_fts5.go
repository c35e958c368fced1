//go:build sqlite_fts5

package index

import (
	"database/sql"
	"strings"

	"github.com/starford/quire/internal/models"
)

const fullTextStemming = true

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS note_content USING fts5(
			note_path UNINDEXED,
			title,
			content,
			tokenize = 'porter unicode61'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, content string) error {
	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO note_content (note_path, title, content) VALUES (?, ?, ?)`,
		path, title, content)
	if err != nil {
		return storageErr("upsert fts", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM note_content WHERE note_path = ?`, path); err != nil {
		return storageErr("delete fts", err)
	}
	return nil
}

// Search runs an FTS5 query and returns hits by relevance.
func (db *DB) Search(query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := strings.TrimSpace(sanitizeQuery(query))
	if q == "" {
		return []models.SearchResult{}, nil
	}
	return locked(db, "search", func() ([]models.SearchResult, error) {
		rows, err := db.conn.Query(`
			SELECT note_path,
			       title,
			       snippet(note_content, 2, '<b>', '</b>', '...', 32)
			FROM note_content
			WHERE note_content MATCH ?
			ORDER BY rank
			LIMIT ?
		`, q, limit)
		if err != nil {
			return nil, storageErr("search", err)
		}
		defer rows.Close()

		out := []models.SearchResult{}
		for rows.Next() {
			var r models.SearchResult
			if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
				return nil, storageErr("scan search", err)
			}
			out = append(out, r)
		}
		return out, rows.Err()
	})
}
