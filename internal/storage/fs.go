package storage

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root     string // absolute path to vault directory
	reserved []string
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist. With no reserved names given,
// DefaultReserved applies.
func NewFS(root string, reserved ...string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w: %w", apperr.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s: %w", abs, apperr.ErrInvalidInput)
	}
	if len(reserved) == 0 {
		reserved = DefaultReserved
	}
	return &FS{root: abs, reserved: reserved}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// Abs resolves a relative or absolute path and rejects any result that
// escapes the vault root (directory traversal).
func (f *FS) Abs(p string) (string, error) {
	if p == "" {
		return f.root, nil
	}
	var abs string
	if filepath.IsAbs(p) {
		abs = filepath.Clean(p)
	} else {
		abs = filepath.Join(f.root, filepath.Clean(p))
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s: %w", p, apperr.ErrInvalidInput)
	}
	return abs, nil
}

// List enumerates every .md file under dir. Only file metadata is read.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := f.Abs(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	err = Walk(base, f.reserved, func(p string, info fs.FileInfo) error {
		out = append(out, metadata(p, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w: %w", apperr.ErrIO, err)
	}
	return out, nil
}

// Stat returns metadata for the file at path.
func (f *FS) Stat(path string) (models.NoteMetadata, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return models.NoteMetadata{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.NoteMetadata{}, f.wrap("stat", path, err)
	}
	return metadata(abs, info), nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, f.wrap("read", path, err)
	}
	return data, nil
}

// Write atomically replaces the file content.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w: %w", apperr.ErrIO, err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return f.wrap("write", path, err)
	}
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return f.wrap("delete", path, err)
	}
	return nil
}

// Move renames a file within the vault.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.Abs(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.Abs(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w: %w", apperr.ErrIO, err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return f.wrap("move", oldPath, err)
	}
	return nil
}

func (f *FS) wrap(op, path string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("storage: %s %s: %w", op, path, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s %s: %w: %w", op, path, apperr.ErrIO, err)
}

// Title is the file name without its extension.
func Title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func metadata(path string, info fs.FileInfo) models.NoteMetadata {
	mt := info.ModTime()
	return models.NoteMetadata{
		Path:      path,
		Title:     Title(path),
		ModSecs:   mt.Unix(),
		ModNanos:  int64(mt.Nanosecond()),
		UpdatedAt: mt,
	}
}
