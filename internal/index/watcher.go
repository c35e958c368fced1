package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/quire/internal/storage"
)

// ChangeKind describes a watcher-driven index change.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind ChangeKind, path string)

// WatchOptions tunes Watch.
type WatchOptions struct {
	// Debounce delays reindexing until a path has been quiet this long.
	Debounce time.Duration
	// Reserved folder names are neither watched nor indexed.
	Reserved []string
}

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. Writes are debounced per path.
// New directories are added to the watch list; renames and removals trigger
// a reconciliation pass. cb (if non-nil) is called after each change.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, opts WatchOptions, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	if len(opts.Reserved) == 0 {
		opts.Reserved = storage.DefaultReserved
	}
	reserved := make(map[string]struct{}, len(opts.Reserved))
	for _, r := range opts.Reserved {
		reserved[r] = struct{}{}
	}

	root := store.Root()
	if err := addDirsRecursive(w, root, reserved); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	wt := &watchTask{db: db, store: store, logger: logger, cb: cb}

	pending := make(map[string]struct{})
	var flushTimer, reconcileTimer *time.Timer
	var flushCh, reconcileCh <-chan time.Time

	arm := func(t **time.Timer, ch *<-chan time.Time, d time.Duration) {
		if *t == nil {
			*t = time.NewTimer(d)
			*ch = (*t).C
			return
		}
		(*t).Reset(d)
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range []*time.Timer{flushTimer, reconcileTimer} {
				if t != nil {
					t.Stop()
				}
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			for p := range pending {
				wt.reindex(p)
			}
			clear(pending)

		case <-reconcileCh:
			wt.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if inReserved(root, ev.Name, reserved) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name, reserved); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					// Files moved in with the directory produce no events of their own.
					arm(&reconcileTimer, &reconcileCh, opts.Debounce)
					continue
				}
			}

			if filepath.Ext(ev.Name) != ".md" {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[ev.Name] = struct{}{}
				arm(&flushTimer, &flushCh, opts.Debounce)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new path arrives as
				// Create when it stays inside a watched directory.
				delete(pending, ev.Name)
				wt.remove(ev.Name)
				arm(&reconcileTimer, &reconcileCh, opts.Debounce)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

type watchTask struct {
	db     *DB
	store  storage.Provider
	logger *slog.Logger
	cb     EventCallback
}

func (wt *watchTask) notify(kind ChangeKind, path string) {
	if wt.cb != nil {
		wt.cb(kind, path)
	}
}

func (wt *watchTask) reindex(path string) {
	_, _, known, err := wt.db.CachedMtime(path)
	if err != nil {
		wt.logger.Warn("watcher: read metadata failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	changed, err := IndexFile(wt.db, wt.store, path, false)
	if err != nil {
		// The file may already be gone again; reconciliation handles that.
		wt.logger.Warn("watcher: index failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if !changed {
		return
	}
	kind := ChangeUpdated
	if !known {
		kind = ChangeCreated
	}
	wt.logger.Debug("watcher: indexed", slog.String("path", path), slog.String("op", string(kind)))
	wt.notify(kind, path)
}

func (wt *watchTask) remove(path string) {
	if err := Forget(wt.db, path); err != nil {
		wt.logger.Warn("watcher: delete failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	wt.logger.Debug("watcher: deleted", slog.String("path", path))
	wt.notify(ChangeDeleted, path)
}

// reconcile runs a full sync and reports what changed. Sync skips
// unchanged files, so this stays cheap.
func (wt *watchTask) reconcile() {
	before, err := wt.db.AllCachedPaths()
	if err != nil {
		wt.logger.Warn("reconcile: cached paths failed", slog.String("error", err.Error()))
		return
	}
	if _, err := Sync(wt.db, wt.store, wt.logger); err != nil {
		wt.logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
		return
	}
	after, err := wt.db.AllCachedPaths()
	if err != nil {
		return
	}
	for p := range before {
		if _, ok := after[p]; !ok {
			wt.notify(ChangeDeleted, p)
		}
	}
	for p := range after {
		if _, ok := before[p]; !ok {
			wt.notify(ChangeCreated, p)
		}
	}
}

// addDirsRecursive adds root and all its non-reserved subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, reserved map[string]struct{}) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := reserved[d.Name()]; skip && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func inReserved(root, path string, reserved map[string]struct{}) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if _, ok := reserved[part]; ok {
			return true
		}
	}
	return false
}
