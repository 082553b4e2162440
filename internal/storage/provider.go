// Package storage defines the content file-system abstraction.
package storage

import "github.com/starford/folio/internal/models"

// Provider is the interface for content file operations.
type Provider interface {
	// Root returns the absolute content root.
	Root() string
	// List returns every Markdown file under dir (relative to the root).
	// Symbolic links are followed. A missing root yields no entries.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
}
