package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/storage"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, db *DB, root string, cb EventCallback) {
	t.Helper()
	store, err := storage.NewFS(root)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go Watch(ctx, db, store, quietLogger(), WatchOptions{Debounce: 20 * time.Millisecond}, cb)
	time.Sleep(100 * time.Millisecond)
}

func isIndexed(db *DB, path string) bool {
	_, _, ok, _ := db.CachedMtime(path)
	return ok
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, _, db := syncEnv(t)

	var mu sync.Mutex
	var events []string
	startWatcher(t, db, root, func(kind ChangeKind, path string) {
		mu.Lock()
		events = append(events, string(kind)+":"+filepath.Base(path))
		mu.Unlock()
	})

	p := filepath.Join(root, "new.md")
	require.NoError(t, os.WriteFile(p, []byte("# New\n#fresh"), 0o644))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return isIndexed(db, p)
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "expected created:new.md callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, _, db := syncEnv(t)
	startWatcher(t, db, root, nil)

	subDir := filepath.Join(root, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0o755))
	time.Sleep(100 * time.Millisecond)

	p := filepath.Join(subDir, "deep.md")
	require.NoError(t, os.WriteFile(p, []byte("# Deep"), 0o644))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return isIndexed(db, p)
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_ReservedFolderIgnored(t *testing.T) {
	root, _, db := syncEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	startWatcher(t, db, root, nil)

	hidden := filepath.Join(root, ".git", "x.md")
	require.NoError(t, os.WriteFile(hidden, []byte("#hidden"), 0o644))
	shown := filepath.Join(root, "shown.md")
	require.NoError(t, os.WriteFile(shown, []byte("#shown"), 0o644))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return isIndexed(db, shown)
	}, "visible file not indexed")
	require.False(t, isIndexed(db, hidden))
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := syncEnv(t)
	p := writeFile(t, root, "del.md", "# Delete Me\n#gone")
	_, err := Sync(db, store, quietLogger())
	require.NoError(t, err)
	require.True(t, isIndexed(db, p))

	startWatcher(t, db, root, nil)
	require.NoError(t, os.Remove(p))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		tags, _ := db.AllTags()
		return !isIndexed(db, p) && len(tags) == 0
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := syncEnv(t)
	old := writeFile(t, root, "old.md", "# Rename")
	_, err := Sync(db, store, quietLogger())
	require.NoError(t, err)

	startWatcher(t, db, root, nil)
	renamed := filepath.Join(root, "renamed.md")
	require.NoError(t, os.Rename(old, renamed))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !isIndexed(db, old) && isIndexed(db, renamed)
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
