package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Open builds a logger that writes to stderr and, when path is non-empty,
// appends to the file at path as well. The returned closer releases the
// file and is never nil.
func Open(level, path string) (*Logger, io.Closer, error) {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)

	if path == "" {
		return New(cfg), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	cfg.Output = io.MultiWriter(os.Stderr, f)
	return New(cfg), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
