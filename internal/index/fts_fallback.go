//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"strings"

	"github.com/starford/quire/internal/models"
)

const fullTextStemming = false

// Without FTS5 the note text lives in a plain table next to a lower-cased
// copy, and search does substring matching on the copy.
func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS note_content (
			note_path    TEXT PRIMARY KEY,
			title        TEXT NOT NULL DEFAULT '',
			content      TEXT NOT NULL DEFAULT '',
			title_fold   TEXT NOT NULL DEFAULT '',
			content_fold TEXT NOT NULL DEFAULT ''
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, content string) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO note_content
		(note_path, title, content, title_fold, content_fold) VALUES (?, ?, ?, ?, ?)`,
		path, title, content, strings.ToLower(title), strings.ToLower(content))
	if err != nil {
		return storageErr("upsert content", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM note_content WHERE note_path = ?`, path); err != nil {
		return storageErr("delete content", err)
	}
	return nil
}

// Search matches every whitespace separated term against title or content,
// case-insensitively for any script. Title hits rank first. There is no
// stemming in this build.
func (db *DB) Search(query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := strings.Fields(strings.ToLower(strings.ReplaceAll(query, `"`, "")))
	if len(terms) == 0 {
		return []models.SearchResult{}, nil
	}

	var (
		where []string
		args  []any
	)
	for _, t := range terms {
		where = append(where, `(instr(title_fold, ?) > 0 OR instr(content_fold, ?) > 0)`)
		args = append(args, t, t)
	}
	args = append(args, terms[0], limit)

	q := `SELECT note_path, title, substr(content, 1, 200) FROM note_content
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY CASE WHEN instr(title_fold, ?) > 0 THEN 0 ELSE 1 END, note_path
		LIMIT ?`

	return locked(db, "search", func() ([]models.SearchResult, error) {
		rows, err := db.conn.Query(q, args...)
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
