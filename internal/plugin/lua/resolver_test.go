package lua

import (
	"os"
	"path/filepath"
	"testing"
)

type moduleNames map[string]bool

func (m moduleNames) Has(name string) bool { return m[name] }

func TestResolverBuiltins(t *testing.T) {
	r := NewResolver(nil)

	for _, name := range []string{"string", "table", "math", "coroutine", "package"} {
		if !r.Resolve(name) {
			t.Errorf("Resolve(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"os", "io", "debug", "", "  "} {
		if r.Resolve(name) {
			t.Errorf("Resolve(%q) = true, want false", name)
		}
	}
}

func TestResolverHostModules(t *testing.T) {
	r := NewResolver(moduleNames{"llm": true})

	if !r.Resolve("llm") {
		t.Error("Resolve(llm) = false, want true")
	}
	if r.Resolve("artifacts") {
		t.Error("Resolve(artifacts) = true, want false")
	}
}

func TestResolverSearchDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "pkg", "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pkg", "init.lua"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pkg", "sub", "leaf.lua"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(nil, dir)

	if !r.Resolve("pkg") {
		t.Error("Resolve(pkg) = false, want true")
	}
	path, ok := r.Find("pkg.sub.leaf")
	if !ok {
		t.Fatal("Find(pkg.sub.leaf) not found")
	}
	if want := filepath.Join(dir, "pkg", "sub", "leaf.lua"); path != want {
		t.Errorf("Find() = %q, want %q", path, want)
	}
	if r.Resolve("pkg.sub") {
		t.Error("Resolve(pkg.sub) = true for a directory without init.lua")
	}
}

func TestResolverTracksFilesystem(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(nil, dir)

	if r.Resolve("late") {
		t.Fatal("Resolve(late) = true before the file exists")
	}
	if err := os.WriteFile(filepath.Join(dir, "late.lua"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	if !r.Resolve("late") {
		t.Error("Resolve(late) = false after the file was created")
	}
}

func TestResolverExtraTemplates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sibling.lua"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(nil)
	if r.Resolve("sibling") {
		t.Error("Resolve(sibling) = true without templates")
	}
	if !r.Resolve("sibling", SearchTemplates(dir)...) {
		t.Error("Resolve(sibling, extra) = false, want true")
	}
}

func TestPackagePath(t *testing.T) {
	got := PackagePath([]string{"a/?.lua", "a/?/init.lua"})
	if got != "a/?.lua;a/?/init.lua" {
		t.Errorf("PackagePath() = %q", got)
	}
}
