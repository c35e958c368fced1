// Package resolver maps wikilink targets to note files on disk.
//
// A target matches a .md file whose name without extension equals the
// target case-insensitively. When several files match, the first one in
// lexical walk order wins.
package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/storage"
)

// ErrNotFound is returned when no file matches a target.
var ErrNotFound = fmt.Errorf("resolver: note %w", apperr.ErrNotFound)

var errFound = errors.New("found")

// Lookup resolves a link target to a note path.
type Lookup interface {
	Resolve(target string) (string, bool)
}

// Resolve walks notesRoot, following symbolic links, and returns the first
// note matching target. A "#fragment" and a trailing ".md" are ignored.
func Resolve(target, notesRoot string) (string, error) {
	key := normalize(target)
	if key == "" {
		return "", ErrNotFound
	}
	var match string
	err := storage.Walk(notesRoot, nil, func(p string, _ fs.FileInfo) error {
		if strings.ToLower(storage.Title(p)) == key {
			match = p
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return match, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolver: walk %s: %w: %w", notesRoot, apperr.ErrIO, err)
	}
	return "", ErrNotFound
}

// Walker resolves every target with a fresh walk of Root.
type Walker struct {
	Root string
}

// Resolve implements Lookup.
func (w Walker) Resolve(target string) (string, bool) {
	p, err := Resolve(target, w.Root)
	return p, err == nil
}

// Snapshot is a stem index built from one enumeration of the vault. It
// answers lookups without touching the filesystem and is meant to live for a
// single sync pass.
type Snapshot struct {
	byStem map[string]string
}

// NewSnapshot indexes paths by lower-cased stem. paths must be in walk
// order so the first match wins the same way Resolve does.
func NewSnapshot(paths []string) *Snapshot {
	s := &Snapshot{byStem: make(map[string]string, len(paths))}
	for _, p := range paths {
		key := strings.ToLower(storage.Title(p))
		if _, ok := s.byStem[key]; !ok {
			s.byStem[key] = p
		}
	}
	return s
}

// Resolve implements Lookup.
func (s *Snapshot) Resolve(target string) (string, bool) {
	p, ok := s.byStem[normalize(target)]
	return p, ok
}

// Len returns the number of distinct stems.
func (s *Snapshot) Len() int { return len(s.byStem) }

func normalize(target string) string {
	name := strings.TrimSpace(parser.LinkNoteName(target))
	name = strings.TrimSuffix(name, ".md")
	return strings.ToLower(name)
}
