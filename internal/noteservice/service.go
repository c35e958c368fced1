// Package noteservice composes the vault, the index and the recurrence
// engine into the operations the transports expose.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/recurrence"
	"github.com/starford/quire/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	Backlinks []string  `json:"backlinks"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChangeFunc is told about every note the service writes or removes.
type ChangeFunc func(kind index.ChangeKind, path string)

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       *index.DB
	rec      *recurrence.Engine
	logger   *slog.Logger
	onChange ChangeFunc
}

// NewService creates a new note service. rec may be nil, in which case
// completing a recurring todo spawns nothing.
func NewService(store storage.Provider, db *index.DB, rec *recurrence.Engine, logger *slog.Logger) *Service {
	return &Service{store: store, db: db, rec: rec, logger: logger}
}

// OnChange registers fn to be called after the service changes a note.
func (s *Service) OnChange(fn ChangeFunc) { s.onChange = fn }

func (s *Service) notify(kind index.ChangeKind, path string) {
	if s.onChange != nil {
		s.onChange(kind, path)
	}
}

// Root returns the vault directory.
func (s *Service) Root() string { return s.store.Root() }

// GetNote reads a note from storage and enriches it with tags and backlinks.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(abs)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(abs, data)
}

// CreateNote writes a new note and indexes it.
func (s *Service) CreateNote(_ context.Context, path string, content []byte) (*NoteDetail, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Stat(abs); err == nil {
		return nil, fmt.Errorf("noteservice: create %s: %w", path, apperr.ErrAlreadyExists)
	}
	if err := s.store.Write(abs, content); err != nil {
		return nil, err
	}
	if _, err := index.IndexFile(s.db, s.store, abs, true); err != nil {
		return nil, err
	}
	s.notify(index.ChangeCreated, abs)
	return s.buildNoteDetail(abs, content)
}

// UpdateNote writes updated content. ifMatch, when set, must name the
// checksum of the current content (see checksum.Matches).
func (s *Service) UpdateNote(_ context.Context, path string, content []byte, ifMatch string) (*NoteDetail, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.Read(abs)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(ifMatch, existing) {
		return nil, fmt.Errorf("noteservice: update %s: %w", path, apperr.ErrConflict)
	}
	if err := s.store.Write(abs, content); err != nil {
		return nil, err
	}
	if _, err := index.IndexFile(s.db, s.store, abs, true); err != nil {
		return nil, err
	}
	s.notify(index.ChangeUpdated, abs)
	return s.buildNoteDetail(abs, content)
}

// DeleteNote removes a note from storage and index.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	abs, err := s.store.Abs(path)
	if err != nil {
		return err
	}
	if err := s.store.Delete(abs); err != nil {
		return err
	}
	if err := index.Forget(s.db, abs); err != nil {
		return err
	}
	s.notify(index.ChangeDeleted, abs)
	return nil
}

// MoveNote renames a note. Notes that linked to the old path are reindexed
// so their edges follow the name change.
func (s *Service) MoveNote(ctx context.Context, oldPath, newPath string) (*NoteDetail, error) {
	absOld, err := s.store.Abs(oldPath)
	if err != nil {
		return nil, err
	}
	absNew, err := s.store.Abs(newPath)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Stat(absNew); err == nil {
		return nil, fmt.Errorf("noteservice: move to %s: %w", newPath, apperr.ErrAlreadyExists)
	}
	backlinks, err := s.db.Backlinks(absOld)
	if err != nil {
		return nil, err
	}
	if err := s.store.Move(absOld, absNew); err != nil {
		return nil, err
	}
	if err := index.Forget(s.db, absOld); err != nil {
		return nil, err
	}
	if _, err := index.IndexFile(s.db, s.store, absNew, true); err != nil {
		return nil, err
	}
	for _, b := range backlinks {
		if b == absOld {
			continue
		}
		if _, err := index.IndexFile(s.db, s.store, b, true); err != nil {
			s.logger.Warn("noteservice: reindex backlink failed",
				slog.String("path", b), slog.String("error", err.Error()))
		}
	}
	s.notify(index.ChangeDeleted, absOld)
	s.notify(index.ChangeCreated, absNew)
	return s.GetNote(ctx, absNew)
}

// ListNotes returns notes ordered by path, optionally only those carrying
// tag. limit <= 0 returns everything from offset on.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag string) ([]NoteListItem, int, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, 0, err
	}
	var keep map[string]struct{}
	if tag != "" {
		paths, err := s.db.NotesByTag(tag)
		if err != nil {
			return nil, 0, err
		}
		keep = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			keep[p] = struct{}{}
		}
	}
	items := []NoteListItem{}
	for _, m := range metas {
		if keep != nil {
			if _, ok := keep[m.Path]; !ok {
				continue
			}
		}
		items = append(items, NoteListItem{Path: m.Path, Title: m.Title, UpdatedAt: m.UpdatedAt})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })

	total := len(items)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Backlinks returns the notes linking to path.
func (s *Service) Backlinks(_ context.Context, path string) ([]string, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	return s.db.Backlinks(abs)
}

// OutgoingLinks returns the notes path links to.
func (s *Service) OutgoingLinks(_ context.Context, path string) ([]string, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	return s.db.OutgoingLinks(abs)
}

// Tags returns every distinct tag.
func (s *Service) Tags(_ context.Context) ([]string, error) {
	return s.db.AllTags()
}

// NotesByTag returns the notes carrying tag.
func (s *Service) NotesByTag(_ context.Context, tag string) ([]string, error) {
	if tag == "" {
		return nil, fmt.Errorf("noteservice: tag is required: %w", apperr.ErrInvalidInput)
	}
	return s.db.NotesByTag(tag)
}

// Todos returns every todo, or only open ones.
func (s *Service) Todos(_ context.Context, incompleteOnly bool) ([]models.Todo, error) {
	if incompleteOnly {
		return s.db.IncompleteTodos()
	}
	return s.db.AllTodos()
}

// Block returns heading id of path.
func (s *Service) Block(_ context.Context, path, id string) (*models.Block, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	return s.db.Block(abs, id)
}

// BlocksForNote returns the headings of path.
func (s *Service) BlocksForNote(_ context.Context, path string) ([]models.Block, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	return s.db.BlocksForNote(abs)
}

// Stats reports index row counts.
func (s *Service) Stats(_ context.Context) (index.Stats, error) {
	return s.db.Stats()
}

// Sync reconciles the index with the vault. force reindexes every note.
func (s *Service) Sync(_ context.Context, force bool) (*index.SyncStats, error) {
	if force {
		return index.ForceRebuild(s.db, s.store, s.logger)
	}
	return index.Sync(s.db, s.store, s.logger)
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func (s *Service) buildNoteDetail(abs string, data []byte) (*NoteDetail, error) {
	tags, err := s.db.TagsForNote(abs)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(abs)
	if err != nil {
		return nil, err
	}
	updated := time.Now()
	if m, err := s.store.Stat(abs); err == nil {
		updated = m.UpdatedAt
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	return &NoteDetail{
		Path:      abs,
		Title:     storage.Title(abs),
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		Tags:      nonNilSlice(tags),
		Backlinks: nonNilSlice(bl),
		UpdatedAt: updated,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
