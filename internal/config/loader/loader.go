// Package loader reads raw configuration maps from TOML files and the
// environment, and merges them.
package loader

import (
	"io/fs"
	"os"
)

// Loader is the interface for configuration loaders.
type Loader interface {
	// Load reads configuration from the source and returns a map.
	// Returns nil, nil if the source doesn't exist (not an error).
	Load() (map[string]any, error)
}

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Chain runs loaders in order and deep-merges their results, so later
// loaders override earlier ones.
func Chain(loaders ...Loader) (map[string]any, error) {
	merged := make(map[string]any)
	for _, l := range loaders {
		m, err := l.Load()
		if err != nil {
			return nil, err
		}
		merged = DeepMerge(merged, m)
	}
	return merged, nil
}

// Static is a Loader over a fixed map, used for defaults.
type Static map[string]any

// Load returns a deep copy of the map.
func (s Static) Load() (map[string]any, error) {
	return Clone(s), nil
}
