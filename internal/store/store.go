// Package store persists the set of enabled component names.
//
// The on-disk document is a JSON object with a single recognized field:
//
//	{"enabled": ["Echo Agent", "Code Writer"]}
//
// Unknown fields are ignored on read and dropped on write.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// ErrInvalidDocument is wrapped by ReadError when the document is not a
// JSON object with an array-valued "enabled" field.
var ErrInvalidDocument = errors.New("invalid enablement document")

// ReadError reports an enablement document that exists but could not be
// used. Callers treat it as an empty enabled set.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read enablement %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Store reads and writes the enablement document at a fixed path.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store for path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the enabled names in document order with duplicates
// removed. A missing document yields an empty list and no error.
// An unreadable or malformed document yields an empty list and a
// *ReadError. Non-string entries are skipped.
func (s *Store) Load() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return []string{}, &ReadError{Path: s.path, Err: err}
	}
	return Parse(s.path, data)
}

// Parse decodes an enablement document. path is only used for errors.
func Parse(path string, data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return []string{}, &ReadError{Path: path, Err: fmt.Errorf("%w: not valid JSON", ErrInvalidDocument)}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return []string{}, &ReadError{Path: path, Err: fmt.Errorf("%w: not a JSON object", ErrInvalidDocument)}
	}

	field := doc.Get("enabled")
	if !field.Exists() || field.Type == gjson.Null {
		return []string{}, nil
	}
	if !field.IsArray() {
		return []string{}, &ReadError{Path: path, Err: fmt.Errorf("%w: \"enabled\" is not an array", ErrInvalidDocument)}
	}

	var names []string
	for _, item := range field.Array() {
		if item.Type == gjson.String {
			names = append(names, item.String())
		}
	}
	return Dedupe(names), nil
}

// Save writes enabled as the whole document. The write goes to a
// temporary file in the same directory which is then renamed over the
// target, so readers never observe a partial document.
func (s *Store) Save(enabled []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := Encode(enabled)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create enablement dir: %w", err)
	}
	return WriteAtomic(s.path, data, 0644)
}

// Encode renders the enablement document for names.
func Encode(names []string) ([]byte, error) {
	data, err := sjson.SetBytes([]byte("{}"), "enabled", Dedupe(names))
	if err != nil {
		return nil, fmt.Errorf("encode enablement: %w", err)
	}
	return pretty.Pretty(data), nil
}

// Dedupe returns names with later duplicates removed. The result is never
// nil so it always encodes as a JSON array.
func Dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
