package index

import (
	"database/sql"
	"errors"
)

// CachedMtime returns the modification time recorded at the last successful
// index of path. ok is false when none is recorded.
func (db *DB) CachedMtime(path string) (secs, nanos int64, ok bool, err error) {
	err = db.withLock("cached mtime", func() error {
		e := db.conn.QueryRow(`SELECT mtime_secs, mtime_nanos FROM sync_metadata WHERE note_path = ?`, path).
			Scan(&secs, &nanos)
		if errors.Is(e, sql.ErrNoRows) {
			return nil
		}
		if e != nil {
			return storageErr("read metadata", e)
		}
		ok = true
		return nil
	})
	return secs, nanos, ok, err
}

// SetCachedMtime records the modification time for path.
func (db *DB) SetCachedMtime(path string, secs, nanos int64) error {
	return db.withLock("set mtime", func() error {
		return upsertMtime(db.conn, path, secs, nanos)
	})
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertMtime(ex execer, path string, secs, nanos int64) error {
	_, err := ex.Exec(`
		INSERT INTO sync_metadata (note_path, mtime_secs, mtime_nanos) VALUES (?, ?, ?)
		ON CONFLICT(note_path) DO UPDATE SET
			mtime_secs  = excluded.mtime_secs,
			mtime_nanos = excluded.mtime_nanos
	`, path, secs, nanos)
	if err != nil {
		return storageErr("set mtime", err)
	}
	return nil
}

// RemoveCachedMtime forgets path.
func (db *DB) RemoveCachedMtime(path string) error {
	return db.withLock("remove mtime", func() error {
		if _, err := db.conn.Exec(`DELETE FROM sync_metadata WHERE note_path = ?`, path); err != nil {
			return storageErr("remove mtime", err)
		}
		return nil
	})
}

// AllCachedPaths returns every path with recorded metadata.
func (db *DB) AllCachedPaths() (map[string]struct{}, error) {
	return locked(db, "cached paths", func() (map[string]struct{}, error) {
		rows, err := db.conn.Query(`SELECT note_path FROM sync_metadata`)
		if err != nil {
			return nil, storageErr("cached paths", err)
		}
		defer rows.Close()
		out := make(map[string]struct{})
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				return nil, storageErr("scan path", err)
			}
			out[p] = struct{}{}
		}
		return out, rows.Err()
	})
}

// ClearAllMetadata forgets every recorded mtime. Derived rows are kept;
// the next sync rewrites them.
func (db *DB) ClearAllMetadata() error {
	return db.withLock("clear metadata", func() error {
		if _, err := db.conn.Exec(`DELETE FROM sync_metadata`); err != nil {
			return storageErr("clear metadata", err)
		}
		return nil
	})
}
