package recurrence

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// DefaultDailyDir is the vault folder holding one note per day.
const DefaultDailyDir = "Daily Notes"

// Engine appends the next instance of a completed recurring todo to
// today's daily note.
type Engine struct {
	store    storage.Provider
	db       *index.DB
	dailyDir string
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDailyDir overrides the daily notes folder, relative to the vault root.
func WithDailyDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.dailyDir = dir
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine writing through store and reindexing into db.
func NewEngine(store storage.Provider, db *index.DB, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		db:       db,
		dailyDir: DefaultDailyDir,
		now:      time.Now,
		logger:   logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// DailyNotePath returns the vault-relative path of the daily note for day.
func (e *Engine) DailyNotePath(day time.Time) string {
	return filepath.Join(e.dailyDir, day.Format(DateLayout)+".md")
}

// Spawn writes the next instance of todo into today's daily note, creating
// the note from its template when missing, and reindexes the note. It
// returns the absolute path of the daily note.
func (e *Engine) Spawn(todo models.Todo) (string, error) {
	if todo.Recurrence == "" {
		return "", fmt.Errorf("recurrence: todo %s:%d has no pattern: %w",
			todo.NotePath, todo.LineNumber, apperr.ErrInvalidInput)
	}
	today := e.now()
	date := today.Format(DateLayout)
	rel := e.DailyNotePath(today)

	content, err := e.store.Read(rel)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		content = []byte(dailyTemplate(date))
	case err != nil:
		return "", fmt.Errorf("recurrence: read daily note: %w", err)
	}

	var next *time.Time
	if n, ok := NextOccurrence(todo.Recurrence, today); ok {
		next = &n
	} else {
		e.logger.Warn("recurrence: unknown pattern",
			slog.String("pattern", todo.Recurrence),
			slog.String("path", todo.NotePath))
	}

	text := string(content)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	text += RenderInstance(todo, next) + "\n"

	if err := e.store.Write(rel, []byte(text)); err != nil {
		return "", fmt.Errorf("recurrence: write daily note: %w", err)
	}
	if _, err := index.IndexFile(e.db, e.store, rel, true); err != nil {
		return "", fmt.Errorf("recurrence: index daily note: %w", err)
	}

	abs, _ := e.store.Abs(rel)
	e.logger.Info("recurrence: spawned instance",
		slog.String("from", todo.NotePath),
		slog.String("daily_note", abs))
	return abs, nil
}

func dailyTemplate(date string) string {
	return "# " + date + "\n\n## Tasks\n\n"
}
