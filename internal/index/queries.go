package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// Stats is a row count per table.
type Stats struct {
	Notes  int `json:"notes"`
	Links  int `json:"links"`
	Tags   int `json:"tags"`
	Todos  int `json:"todos"`
	Blocks int `json:"blocks"`
}

// Backlinks returns the notes that link to path, ordered by path.
func (db *DB) Backlinks(path string) ([]string, error) {
	return db.strings("backlinks",
		`SELECT from_note FROM links WHERE to_note = ? ORDER BY from_note`, path)
}

// OutgoingLinks returns the resolved targets of path, ordered by path.
func (db *DB) OutgoingLinks(path string) ([]string, error) {
	return db.strings("outgoing links",
		`SELECT to_note FROM links WHERE from_note = ? ORDER BY to_note`, path)
}

// AllLinks returns every stored edge.
func (db *DB) AllLinks() ([]models.Link, error) {
	return db.links("all links", `SELECT from_note, to_note FROM links ORDER BY from_note, to_note`)
}

// LinksForNote returns the edges with path at either end.
func (db *DB) LinksForNote(path string) ([]models.Link, error) {
	return db.links("links for note", `
		SELECT from_note, to_note FROM links
		WHERE from_note = ? OR to_note = ?
		ORDER BY from_note, to_note`, path, path)
}

// AllTags returns the distinct tags in lexical order.
func (db *DB) AllTags() ([]string, error) {
	return db.strings("all tags", `SELECT DISTINCT tag FROM tags ORDER BY tag`)
}

// NotesByTag returns the notes carrying tag, ordered by path.
func (db *DB) NotesByTag(tag string) ([]string, error) {
	return db.strings("notes by tag",
		`SELECT note_path FROM tags WHERE tag = ? ORDER BY note_path`, tag)
}

// TagsForNote returns the distinct tags of path.
func (db *DB) TagsForNote(path string) ([]string, error) {
	return db.strings("tags for note",
		`SELECT DISTINCT tag FROM tags WHERE note_path = ? ORDER BY tag`, path)
}

const todoColumns = `id, note_path, line_number, content, is_completed, due_date,
	priority, indent_level, parent_line, recurrence_pattern`

// IncompleteTodos returns open todos ordered by note path then line.
func (db *DB) IncompleteTodos() ([]models.Todo, error) {
	return db.todos("incomplete todos", `SELECT `+todoColumns+` FROM todos
		WHERE is_completed = 0 ORDER BY note_path, line_number`)
}

// AllTodos returns every todo ordered by note path, completion, then line.
func (db *DB) AllTodos() ([]models.Todo, error) {
	return db.todos("all todos", `SELECT `+todoColumns+` FROM todos
		ORDER BY note_path, is_completed, line_number`)
}

// TodosForNote returns the todos of path in line order.
func (db *DB) TodosForNote(path string) ([]models.Todo, error) {
	return db.todos("todos for note", `SELECT `+todoColumns+` FROM todos
		WHERE note_path = ? ORDER BY line_number`, path)
}

// GetTodo returns the todo at (path, line).
func (db *DB) GetTodo(path string, line int) (*models.Todo, error) {
	list, err := db.todos("get todo", `SELECT `+todoColumns+` FROM todos
		WHERE note_path = ? AND line_number = ?`, path, line)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("index: todo %s:%d: %w", path, line, apperr.ErrNotFound)
	}
	return &list[0], nil
}

// Block returns the heading block id of path.
func (db *DB) Block(path, id string) (*models.Block, error) {
	return locked(db, "block", func() (*models.Block, error) {
		b := models.Block{NotePath: path, BlockID: id}
		err := db.conn.QueryRow(`SELECT line_number, content FROM blocks WHERE note_path = ? AND block_id = ?`,
			path, id).Scan(&b.LineNumber, &b.Heading)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("index: block %s#%s: %w", path, id, apperr.ErrNotFound)
		}
		if err != nil {
			return nil, storageErr("block", err)
		}
		return &b, nil
	})
}

// BlocksForNote returns the blocks of path in line order.
func (db *DB) BlocksForNote(path string) ([]models.Block, error) {
	return locked(db, "blocks for note", func() ([]models.Block, error) {
		rows, err := db.conn.Query(`SELECT block_id, line_number, content FROM blocks
			WHERE note_path = ? ORDER BY line_number`, path)
		if err != nil {
			return nil, storageErr("blocks for note", err)
		}
		defer rows.Close()
		out := []models.Block{}
		for rows.Next() {
			b := models.Block{NotePath: path}
			if err := rows.Scan(&b.BlockID, &b.LineNumber, &b.Heading); err != nil {
				return nil, storageErr("scan block", err)
			}
			out = append(out, b)
		}
		return out, rows.Err()
	})
}

// Stats counts indexed rows. Notes is the number of paths with sync metadata.
func (db *DB) Stats() (Stats, error) {
	return locked(db, "stats", func() (Stats, error) {
		var s Stats
		for _, c := range []struct {
			dst   *int
			query string
		}{
			{&s.Notes, `SELECT COUNT(*) FROM sync_metadata`},
			{&s.Links, `SELECT COUNT(*) FROM links`},
			{&s.Tags, `SELECT COUNT(*) FROM tags`},
			{&s.Todos, `SELECT COUNT(*) FROM todos`},
			{&s.Blocks, `SELECT COUNT(*) FROM blocks`},
		} {
			if err := db.conn.QueryRow(c.query).Scan(c.dst); err != nil {
				return Stats{}, storageErr("stats", err)
			}
		}
		return s, nil
	})
}

func (db *DB) strings(op, query string, args ...any) ([]string, error) {
	return locked(db, op, func() ([]string, error) {
		rows, err := db.conn.Query(query, args...)
		if err != nil {
			return nil, storageErr(op, err)
		}
		defer rows.Close()
		out := []string{}
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return nil, storageErr(op, err)
			}
			out = append(out, s)
		}
		return out, rows.Err()
	})
}

func (db *DB) links(op, query string, args ...any) ([]models.Link, error) {
	return locked(db, op, func() ([]models.Link, error) {
		rows, err := db.conn.Query(query, args...)
		if err != nil {
			return nil, storageErr(op, err)
		}
		defer rows.Close()
		out := []models.Link{}
		for rows.Next() {
			var l models.Link
			if err := rows.Scan(&l.From, &l.To); err != nil {
				return nil, storageErr(op, err)
			}
			out = append(out, l)
		}
		return out, rows.Err()
	})
}

func (db *DB) todos(op, query string, args ...any) ([]models.Todo, error) {
	return locked(db, op, func() ([]models.Todo, error) {
		rows, err := db.conn.Query(query, args...)
		if err != nil {
			return nil, storageErr(op, err)
		}
		defer rows.Close()
		out := []models.Todo{}
		for rows.Next() {
			t, err := scanTodo(rows)
			if err != nil {
				return nil, storageErr(op, err)
			}
			out = append(out, t)
		}
		return out, rows.Err()
	})
}

func scanTodo(rows *sql.Rows) (models.Todo, error) {
	var (
		t                models.Todo
		due, prio, recur sql.NullString
		parent           sql.NullInt64
	)
	err := rows.Scan(&t.ID, &t.NotePath, &t.LineNumber, &t.Content, &t.Completed,
		&due, &prio, &t.IndentLevel, &parent, &recur)
	if err != nil {
		return t, err
	}
	t.DueDate = due.String
	t.Priority = models.Priority(prio.String)
	t.Recurrence = recur.String
	if parent.Valid {
		p := int(parent.Int64)
		t.ParentLine = &p
	}
	return t, nil
}
