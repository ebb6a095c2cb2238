// Package storage defines the morphology library file-system abstraction.
package storage

import "github.com/starford/morphovis/internal/models"

// Extension is the suffix of files the library tracks.
const Extension = ".swc"

// Provider is the interface for library file operations. Paths are relative
// to the library root.
type Provider interface {
	// List returns metadata for every .swc file under dir.
	List(dir string) ([]models.MorphologyMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

// IsMorphologyFile reports whether name carries the library extension.
func IsMorphologyFile(name string) bool {
	return len(name) > len(Extension) && name[len(name)-len(Extension):] == Extension
}
