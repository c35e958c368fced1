package index

import (
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/resolver"
)

// NoteIndex is the read/write surface consumers depend on. The sync engine
// and the watcher use *DB directly for its metadata operations.
type NoteIndex interface {
	ReindexNote(path, title, content, notesRoot string) error
	ReindexNoteWith(path, title, content string, lookup resolver.Lookup) error
	ReindexNoteAt(path, title, content string, lookup resolver.Lookup, secs, nanos int64) error
	RemoveNote(path string) error
	ToggleTodo(path string, line int) (bool, error)
	SetTodoCompleted(path string, line int, completed bool) error

	Backlinks(path string) ([]string, error)
	OutgoingLinks(path string) ([]string, error)
	AllLinks() ([]models.Link, error)
	LinksForNote(path string) ([]models.Link, error)
	AllTags() ([]string, error)
	NotesByTag(tag string) ([]string, error)
	TagsForNote(path string) ([]string, error)
	IncompleteTodos() ([]models.Todo, error)
	AllTodos() ([]models.Todo, error)
	TodosForNote(path string) ([]models.Todo, error)
	GetTodo(path string, line int) (*models.Todo, error)
	Search(query string, limit int) ([]models.SearchResult, error)
	Block(path, id string) (*models.Block, error)
	BlocksForNote(path string) ([]models.Block, error)
	Stats() (Stats, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
