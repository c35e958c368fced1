package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultReserved are folder names never entered during enumeration.
var DefaultReserved = []string{".quire", "images", ".git"}

// WalkFunc is called for every markdown file found by Walk.
type WalkFunc func(path string, info fs.FileInfo) error

// Walk visits every .md file under root in lexical order. Symbolic links are
// followed; a directory reached twice through links is entered once.
// Directories named in skip are not entered. Unreadable subdirectories and
// dangling links are skipped; an error from fn stops the walk.
func Walk(root string, skip []string, fn WalkFunc) error {
	w := &walker{
		skip: make(map[string]struct{}, len(skip)),
		seen: make(map[string]struct{}),
		fn:   fn,
	}
	for _, s := range skip {
		w.skip[s] = struct{}{}
	}
	return w.walk(root, true)
}

type walker struct {
	skip map[string]struct{}
	seen map[string]struct{}
	fn   WalkFunc
}

func (w *walker) walk(dir string, isRoot bool) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if isRoot {
			return err
		}
		return nil
	}
	if _, ok := w.seen[real]; ok {
		return nil
	}
	w.seen[real] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isRoot {
			return err
		}
		return nil
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.IsDir() {
			if _, reserved := w.skip[e.Name()]; reserved {
				continue
			}
			if err := w.walk(p, false); err != nil {
				return err
			}
			continue
		}
		if !info.Mode().IsRegular() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		if err := w.fn(p, info); err != nil {
			return err
		}
	}
	return nil
}
