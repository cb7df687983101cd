package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestLoadMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "enabled.json"))

	names, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if names == nil || len(names) != 0 {
		t.Errorf("Load() = %#v, want empty non-nil", names)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{enabled: ["},
		{"array root", `["A"]`},
		{"enabled is string", `{"enabled": "A"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "enabled.json")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}

			names, err := New(path).Load()
			var readErr *ReadError
			if !errors.As(err, &readErr) {
				t.Fatalf("Load() error = %v, want *ReadError", err)
			}
			if readErr.Path != path {
				t.Errorf("ReadError.Path = %q, want %q", readErr.Path, path)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Load() error = %v, want ErrInvalidDocument", err)
			}
			if len(names) != 0 {
				t.Errorf("Load() = %v, want empty", names)
			}
		})
	}
}

func TestLoadLenient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enabled.json")
	doc := `{"version": 2, "enabled": ["A", 3, null, "B", "A", {"x": 1}], "extra": true}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	names, err := New(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Load() = %v, want %v", names, want)
	}
}

func TestLoadWithoutEnabledField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enabled.json")
	if err := os.WriteFile(path, []byte(`{"other": 1}`), 0644); err != nil {
		t.Fatal(err)
	}

	names, err := New(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Load() = %v, want empty", names)
	}
}

func TestSaveWritesOnlyEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "enabled.json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"enabled": ["old"], "junk": 1}`), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(path)
	if err := s.Save([]string{"A", "B", "A"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "junk") {
		t.Errorf("Save() kept unknown field: %s", data)
	}
	names, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Load() = %v, want %v", names, want)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1 (temp file left behind?)", len(entries))
	}
}

func TestSaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enabled.json")
	s := New(path)

	if err := s.Save(nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"enabled": []`) {
		t.Errorf("Save(nil) wrote %s, want an empty array", data)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "enabled.json")
	if err := New(path).Save([]string{"X"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Stat() error = %v", err)
	}
}

func TestWriteAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := WriteAtomic(path, []byte("one"), 0600); err != nil {
		t.Fatalf("WriteAtomic() error = %v", err)
	}
	if err := WriteAtomic(path, []byte("two"), 0600); err != nil {
		t.Fatalf("WriteAtomic() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want two", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestWriteAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "file.txt")
	if err := WriteAtomic(path, []byte("x"), 0644); err == nil {
		t.Error("WriteAtomic() into a missing directory should fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfDistinct(rapid.String(), func(s string) string { return s }).Draw(t, "names")
		path := filepath.Join(dir, "roundtrip.json")

		if err := New(path).Save(names); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := New(path).Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(names) == 0 {
			if len(got) != 0 {
				t.Fatalf("Load() = %q, want empty", got)
			}
			return
		}
		if !reflect.DeepEqual(got, names) {
			t.Fatalf("Load() = %q, want %q", got, names)
		}
	})
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"b", "a", "b", "c", "a"})
	if want := []string{"b", "a", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Dedupe() = %v, want %v", got, want)
	}
	if got := Dedupe(nil); got == nil {
		t.Error("Dedupe(nil) = nil, want empty slice")
	}
}
