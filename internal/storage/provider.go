// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/quire/internal/models"

// Provider is the interface for vault file operations. Paths may be given
// relative to the vault root or as absolute paths inside it; every path a
// Provider returns is absolute.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// Abs resolves path against the root and rejects escapes.
	Abs(path string) (string, error)
	// List returns metadata for every .md file under dir, skipping reserved folders.
	List(dir string) ([]models.NoteMetadata, error)
	// Stat returns metadata for a single file.
	Stat(path string) (models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
