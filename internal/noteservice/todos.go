package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/parser"
)

// ToggleResult reports the outcome of ToggleTodo.
type ToggleResult struct {
	Completed bool `json:"completed"`
	// Spawned is the daily note that received the next instance of a
	// recurring todo, if any.
	Spawned string `json:"spawned,omitempty"`
}

// ToggleTodo flips the todo at (path, line) in the index and in the note
// file. Completing a recurring todo appends its next instance to today's
// daily note; a failure there is logged and does not undo the toggle.
func (s *Service) ToggleTodo(_ context.Context, path string, line int) (*ToggleResult, error) {
	abs, err := s.store.Abs(path)
	if err != nil {
		return nil, err
	}
	todo, err := s.db.GetTodo(abs, line)
	if err != nil {
		return nil, err
	}
	completed, err := s.db.ToggleTodo(abs, line)
	if err != nil {
		return nil, err
	}

	if err := s.rewriteCheckbox(abs, line, completed); err != nil {
		if rbErr := s.db.SetTodoCompleted(abs, line, !completed); rbErr != nil {
			s.logger.Error("noteservice: revert toggle failed",
				slog.String("path", abs), slog.Int("line", line), slog.String("error", rbErr.Error()))
		}
		return nil, err
	}
	if _, err := index.IndexFile(s.db, s.store, abs, true); err != nil {
		return nil, err
	}
	s.notify(index.ChangeUpdated, abs)

	res := &ToggleResult{Completed: completed}
	if completed && todo.Recurrence != "" && s.rec != nil {
		todo.NotePath = abs
		spawned, err := s.rec.Spawn(*todo)
		if err != nil {
			s.logger.Warn("noteservice: spawn recurring todo failed",
				slog.String("path", abs), slog.Int("line", line), slog.String("error", err.Error()))
			return res, nil
		}
		res.Spawned = spawned
		s.notify(index.ChangeUpdated, spawned)
	}
	return res, nil
}

// rewriteCheckbox sets the checkbox on line (1-based) of the file. Other
// lines and the trailing newline are left as they are.
func (s *Service) rewriteCheckbox(abs string, line int, completed bool) error {
	data, err := s.store.Read(abs)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if line < 1 || line > len(lines) {
		return fmt.Errorf("noteservice: %s has no line %d: %w", abs, line, apperr.ErrConflict)
	}
	updated, ok := parser.ToggleCheckbox(lines[line-1], completed)
	if !ok {
		return fmt.Errorf("noteservice: %s:%d is not a todo: %w", abs, line, apperr.ErrConflict)
	}
	lines[line-1] = updated
	return s.store.Write(abs, []byte(strings.Join(lines, "\n")))
}
