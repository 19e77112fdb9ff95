// Package storage abstracts the file system used for list sources and the
// cache file.
package storage

import "time"

// FileInfo describes a file on the provider.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Provider is the interface for source and cache file operations. Paths are
// absolute or relative to the working directory.
type Provider interface {
	// List returns every .md file under dir, sorted by path.
	List(dir string) ([]FileInfo, error)
	// Stat returns metadata for path. A missing file yields an error
	// wrapping fs.ErrNotExist.
	Stat(path string) (FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path, creating parent dirs.
	Write(path string, content []byte) error
}
