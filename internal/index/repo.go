package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/resolver"
)

// noteRows is everything derived from one note, built before the lock is taken.
type noteRows struct {
	path    string
	title   string
	content string
	links   []string
	tags    []string
	todos   []models.Todo
	blocks  []models.Block
}

func buildRows(path, title, content string, lookup resolver.Lookup) noteRows {
	res := parser.Parse(content)
	rows := noteRows{
		path:    path,
		title:   title,
		content: content,
		tags:    res.Tags,
		todos:   res.Todos,
		blocks:  res.Blocks,
	}
	for _, target := range res.Links {
		if to, ok := lookup.Resolve(target); ok {
			rows.links = append(rows.links, to)
		}
	}
	return rows
}

// ReindexNote replaces every derived row for path with what content yields.
// Link targets are resolved by walking notesRoot; targets that match no file
// are dropped.
func (db *DB) ReindexNote(path, title, content, notesRoot string) error {
	return db.ReindexNoteWith(path, title, content, resolver.Walker{Root: notesRoot})
}

// ReindexNoteWith is ReindexNote with a caller supplied resolver. Extraction
// and resolution run outside the lock; the delete and insert run in one
// transaction, so readers see either the old rows or the new ones.
func (db *DB) ReindexNoteWith(path, title, content string, lookup resolver.Lookup) error {
	return db.reindex(buildRows(path, title, content, lookup), nil)
}

// ReindexNoteAt is ReindexNoteWith that also records the file's mtime in
// the same transaction. The stored mtime always belongs to the content the
// stored rows came from.
func (db *DB) ReindexNoteAt(path, title, content string, lookup resolver.Lookup, secs, nanos int64) error {
	return db.reindex(buildRows(path, title, content, lookup), &fileMtime{secs: secs, nanos: nanos})
}

type fileMtime struct {
	secs, nanos int64
}

func (db *DB) reindex(rows noteRows, mt *fileMtime) error {
	return db.withLock("reindex", func() error {
		tx, err := db.conn.Begin()
		if err != nil {
			return storageErr("begin tx", err)
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		if err := deleteDerived(tx, rows.path); err != nil {
			return err
		}
		if err := insertRows(tx, rows); err != nil {
			return err
		}
		if mt != nil {
			if err := upsertMtime(tx, rows.path, mt.secs, mt.nanos); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return storageErr("commit reindex", err)
		}
		return nil
	})
}

// RemoveNote deletes every derived row for path. Sync metadata is left
// to the caller.
func (db *DB) RemoveNote(path string) error {
	return db.withLock("remove", func() error {
		tx, err := db.conn.Begin()
		if err != nil {
			return storageErr("begin tx", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if err := deleteDerived(tx, path); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return storageErr("commit remove", err)
		}
		return nil
	})
}

// ToggleTodo flips the completion flag of the todo at (path, line) and
// returns the new value.
func (db *DB) ToggleTodo(path string, line int) (bool, error) {
	return locked(db, "toggle todo", func() (bool, error) {
		tx, err := db.conn.Begin()
		if err != nil {
			return false, storageErr("begin tx", err)
		}
		defer tx.Rollback() //nolint:errcheck

		var completed bool
		err = tx.QueryRow(`SELECT is_completed FROM todos WHERE note_path = ? AND line_number = ?`,
			path, line).Scan(&completed)
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("index: todo %s:%d: %w", path, line, apperr.ErrNotFound)
		}
		if err != nil {
			return false, storageErr("read todo", err)
		}
		completed = !completed
		if _, err := tx.Exec(`UPDATE todos SET is_completed = ? WHERE note_path = ? AND line_number = ?`,
			completed, path, line); err != nil {
			return false, storageErr("update todo", err)
		}
		if err := tx.Commit(); err != nil {
			return false, storageErr("commit toggle", err)
		}
		return completed, nil
	})
}

// SetTodoCompleted writes the completion flag directly. It is used to roll
// back a toggle whose file rewrite failed.
func (db *DB) SetTodoCompleted(path string, line int, completed bool) error {
	return db.withLock("set todo", func() error {
		res, err := db.conn.Exec(`UPDATE todos SET is_completed = ? WHERE note_path = ? AND line_number = ?`,
			completed, path, line)
		if err != nil {
			return storageErr("set todo", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("index: todo %s:%d: %w", path, line, apperr.ErrNotFound)
		}
		return nil
	})
}

func deleteDerived(tx *sql.Tx, path string) error {
	for _, q := range []string{
		`DELETE FROM links WHERE from_note = ?`,
		`DELETE FROM tags WHERE note_path = ?`,
		`DELETE FROM todos WHERE note_path = ?`,
		`DELETE FROM blocks WHERE note_path = ?`,
	} {
		if _, err := tx.Exec(q, path); err != nil {
			return storageErr("delete derived rows", err)
		}
	}
	return ftsDelete(tx, path)
}

func insertRows(tx *sql.Tx, r noteRows) error {
	if err := execEach(tx, `INSERT OR IGNORE INTO links (from_note, to_note) VALUES (?, ?)`,
		len(r.links), func(i int) []any { return []any{r.path, r.links[i]} }); err != nil {
		return storageErr("insert links", err)
	}
	if err := execEach(tx, `INSERT OR IGNORE INTO tags (tag, note_path) VALUES (?, ?)`,
		len(r.tags), func(i int) []any { return []any{r.tags[i], r.path} }); err != nil {
		return storageErr("insert tags", err)
	}
	if err := execEach(tx, `
		INSERT OR REPLACE INTO todos
			(note_path, line_number, content, is_completed, due_date, priority,
			 indent_level, parent_line, recurrence_pattern)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(r.todos), func(i int) []any {
			t := r.todos[i]
			return []any{
				r.path, t.LineNumber, t.Content, t.Completed,
				nullString(t.DueDate), nullString(string(t.Priority)),
				t.IndentLevel, nullInt(t.ParentLine), nullString(t.Recurrence),
			}
		}); err != nil {
		return storageErr("insert todos", err)
	}
	// A repeated heading slug keeps the later heading.
	if err := execEach(tx, `INSERT OR REPLACE INTO blocks (block_id, note_path, line_number, content) VALUES (?, ?, ?, ?)`,
		len(r.blocks), func(i int) []any {
			b := r.blocks[i]
			return []any{b.BlockID, r.path, b.LineNumber, b.Heading}
		}); err != nil {
		return storageErr("insert blocks", err)
	}
	return ftsUpsert(tx, r.path, r.title, r.content)
}

func execEach(tx *sql.Tx, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
