// Package storage defines read-only access to the catalog data directory.
package storage

import "github.com/starford/mediashelf/internal/models"

// Provider is the interface for data directory reads.
type Provider interface {
	// List returns metadata for every .json file under dir (relative to the data root).
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to the data root).
	Read(path string) ([]byte, error)
	// Root returns the absolute data root.
	Root() string
}
