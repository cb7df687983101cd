// Package artifact stores files generated by components together with a
// metadata index.
//
// Files are copied into the store directory under "<uuid>_<basename>" and
// described by entries in "<dir>/artifacts.json".
package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/agentdeck/internal/store"
)

// IndexFile is the name of the metadata index inside the store directory.
const IndexFile = "artifacts.json"

// ErrUnregisteredType is returned by Write for unknown artifact types.
var ErrUnregisteredType = errors.New("unregistered artifact type")

// Entry describes one stored artifact.
type Entry struct {
	File      string    `json:"file"`
	Component string    `json:"component"`
	Size      int64     `json:"size"`
	Remark    string    `json:"remark"`
	Type      string    `json:"type"`
	Created   time.Time `json:"created"`
}

// Store manages a directory of artifacts.
type Store struct {
	mu    sync.Mutex
	dir   string
	types map[string]bool
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for Created timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithTypes registers artifact types up front.
func WithTypes(types ...string) Option {
	return func(s *Store) {
		for _, t := range types {
			s.types[t] = true
		}
	}
}

// NewStore creates a store rooted at dir. The directory is created lazily.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:   dir,
		types: make(map[string]bool),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// RegisterType allows components to write artifacts of type t.
func (s *Store) RegisterType(t string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[t] = true
}

// Types returns the registered types in sorted order.
func (s *Store) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Write copies src into the store and records it in the index.
// It returns the path of the stored copy.
func (s *Store) Write(component, src, remark, typ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.types[typ] {
		return "", fmt.Errorf("%w: %q", ErrUnregisteredType, typ)
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("artifact source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("artifact source %s: %w", src, fs.ErrNotExist)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	name := uuid.NewString() + "_" + filepath.Base(src)
	dst := filepath.Join(s.dir, name)
	size, err := copyFile(src, dst, info.Mode().Perm())
	if err != nil {
		return "", err
	}

	entry := Entry{
		File:      name,
		Component: component,
		Size:      size,
		Remark:    remark,
		Type:      typ,
		Created:   s.now().UTC(),
	}
	if err := s.appendIndex(entry); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

// Put stores data as a new artifact named after name and records it in the
// index. It returns the path of the stored file.
func (s *Store) Put(component, name string, data []byte, remark, typ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.types[typ] {
		return "", fmt.Errorf("%w: %q", ErrUnregisteredType, typ)
	}
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("artifact name %q is not a file name", name)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	file := uuid.NewString() + "_" + base
	dst := filepath.Join(s.dir, file)
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}

	entry := Entry{
		File:      file,
		Component: component,
		Size:      int64(len(data)),
		Remark:    remark,
		Type:      typ,
		Created:   s.now().UTC(),
	}
	if err := s.appendIndex(entry); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

// List returns the indexed artifacts whose files still exist, oldest first.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	valid := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.File == "" {
			continue
		}
		info, err := os.Stat(filepath.Join(s.dir, e.File))
		if err == nil && info.Mode().IsRegular() {
			valid = append(valid, e)
		}
	}
	return valid, nil
}

// Open returns the path of a stored artifact by file name. Names that
// would escape the store directory are rejected.
func (s *Store) Open(file string) (string, error) {
	if file == "" || file != filepath.Base(file) || file == IndexFile {
		return "", fmt.Errorf("artifact %q: %w", file, fs.ErrNotExist)
	}
	path := filepath.Join(s.dir, file)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("artifact %q: %w", file, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("artifact %q: %w", file, fs.ErrNotExist)
	}
	return path, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, IndexFile)
}

func (s *Store) readIndex() ([]Entry, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read artifact index: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("read artifact index: invalid JSON")
	}

	var entries []Entry
	gjson.ParseBytes(data).ForEach(func(_, v gjson.Result) bool {
		entries = append(entries, Entry{
			File:      v.Get("file").String(),
			Component: v.Get("component").String(),
			Size:      v.Get("size").Int(),
			Remark:    v.Get("remark").String(),
			Type:      v.Get("type").String(),
			Created:   v.Get("created").Time(),
		})
		return true
	})
	return entries, nil
}

func (s *Store) appendIndex(e Entry) error {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read artifact index: %w", err)
		}
		data = []byte("[]")
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsArray() {
		data = []byte("[]")
	}

	data, err = sjson.SetBytes(data, "-1", e)
	if err != nil {
		return fmt.Errorf("update artifact index: %w", err)
	}
	return store.WriteAtomic(s.indexPath(), pretty.Pretty(data), 0644)
}

func copyFile(src, dst string, perm fs.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open artifact source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return 0, fmt.Errorf("create artifact: %w", err)
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("copy artifact: %w", err)
	}
	return n, nil
}
