package index

import (
	"fmt"
	"log/slog"

	"github.com/starford/quire/internal/apperr"
)

// withLock runs fn under the index mutex. The mutex is released on every
// path; a panic inside fn is logged and reported as ErrPoisoned so the next
// caller still gets the lock.
func (db *DB) withLock(op string, fn func() error) (err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			db.logger.Error("index: operation panicked",
				slog.String("op", op),
				slog.Any("panic", r),
			)
			err = fmt.Errorf("index: %s: %w: %v", op, apperr.ErrPoisoned, r)
		}
	}()
	return fn()
}

// locked is withLock for operations that return a value.
func locked[T any](db *DB, op string, fn func() (T, error)) (T, error) {
	var out T
	err := db.withLock(op, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func storageErr(op string, err error) error {
	return fmt.Errorf("index: %s: %w: %w", op, apperr.ErrStorage, err)
}
