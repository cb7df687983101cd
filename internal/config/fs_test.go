package config

import (
	"io/fs"
	"os"
	"time"
)

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	if s, ok := m[path]; ok {
		return []byte(s), nil
	}
	return nil, os.ErrNotExist
}

func (m memFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m[path]; ok {
		return memInfo{name: path}, nil
	}
	return nil, os.ErrNotExist
}

type memInfo struct{ name string }

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return 0 }
func (i memInfo) Mode() fs.FileMode  { return 0644 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }
