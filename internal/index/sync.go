package index

import (
	"fmt"
	"log/slog"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/resolver"
	"github.com/starford/quire/internal/storage"
)

// SyncStats counts what a sync pass did.
type SyncStats struct {
	Created   int `json:"created"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
	Deleted   int `json:"deleted"`
	Failed    int `json:"failed"`
}

// Touched is the number of notes that were (re)indexed.
func (s SyncStats) Touched() int { return s.Created + s.Modified }

// Sync brings the index up to date with the vault:
//   - files with no recorded mtime, or a different one, are reindexed
//   - files whose mtime matches are skipped
//   - indexed paths no longer on disk are removed
//
// Enumeration and file reads happen without the index lock. A file that
// cannot be read or indexed is logged and counted in Failed; its metadata
// stays unset so the next pass retries it.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (*SyncStats, error) {
	metas, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("index: sync: %w", err)
	}
	snap := snapshotOf(metas)

	stats := &SyncStats{}
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		secs, nanos, known, err := db.CachedMtime(m.Path)
		if err != nil {
			stats.Failed++
			logger.Warn("sync: read metadata failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if known && secs == m.ModSecs && nanos == m.ModNanos {
			stats.Unchanged++
			continue
		}

		if err := indexMeta(db, store, m, snap); err != nil {
			stats.Failed++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if known {
			stats.Modified++
		} else {
			stats.Created++
		}
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	cached, err := db.AllCachedPaths()
	if err != nil {
		return stats, fmt.Errorf("index: sync: %w", err)
	}
	for p := range cached {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := Forget(db, p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Deleted++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	logger.Info("sync: done",
		slog.Int("created", stats.Created),
		slog.Int("modified", stats.Modified),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("deleted", stats.Deleted),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

// ForceRebuild forgets every recorded mtime and syncs, so every note on
// disk is reindexed.
func ForceRebuild(db *DB, store storage.Provider, logger *slog.Logger) (*SyncStats, error) {
	if err := db.ClearAllMetadata(); err != nil {
		return nil, fmt.Errorf("index: force rebuild: %w", err)
	}
	return Sync(db, store, logger)
}

// IndexFile reindexes a single note and records its mtime. It reports
// false when the recorded mtime already matches and nothing was done.
// Links resolve against the same file set Sync sees, so reserved folders
// never become link targets.
func IndexFile(db *DB, store storage.Provider, path string, force bool) (bool, error) {
	m, err := store.Stat(path)
	if err != nil {
		return false, fmt.Errorf("index: index file: %w", err)
	}
	if !force {
		secs, nanos, known, err := db.CachedMtime(m.Path)
		if err != nil {
			return false, err
		}
		if known && secs == m.ModSecs && nanos == m.ModNanos {
			return false, nil
		}
	}
	metas, err := store.List("")
	if err != nil {
		return false, fmt.Errorf("index: index file: %w", err)
	}
	if err := indexMeta(db, store, m, snapshotOf(metas)); err != nil {
		return false, err
	}
	return true, nil
}

func snapshotOf(metas []models.NoteMetadata) *resolver.Snapshot {
	paths := make([]string, len(metas))
	for i, m := range metas {
		paths[i] = m.Path
	}
	return resolver.NewSnapshot(paths)
}

// indexMeta reads the file described by m, reindexes it and records the
// mtime taken before the read, all in one transaction. A write racing the
// read leaves a newer mtime on disk, which the next pass picks up.
func indexMeta(db *DB, store storage.Provider, m models.NoteMetadata, lookup resolver.Lookup) error {
	data, err := store.Read(m.Path)
	if err != nil {
		return err
	}
	return db.ReindexNoteAt(m.Path, m.Title, string(data), lookup, m.ModSecs, m.ModNanos)
}

// Forget removes path from the index and the sync metadata.
func Forget(db *DB, path string) error {
	if err := db.RemoveNote(path); err != nil {
		return err
	}
	return db.RemoveCachedMtime(path)
}
