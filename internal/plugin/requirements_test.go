package plugin

import (
	"testing"

	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

type moduleSet map[string]bool

func (m moduleSet) Has(name string) bool { return m[name] }

func TestMissingBuiltinAndUnknown(t *testing.T) {
	c := NewChecker(nil)
	got := c.Missing([]string{"string", "definitely_not_a_real_package_zzz"})
	want := []string{"definitely_not_a_real_package_zzz"}
	if !equalStrings(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
}

func TestMissingEmpty(t *testing.T) {
	c := NewChecker(nil)
	got := c.Missing(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Missing(nil) = %#v, want empty slice", got)
	}
}

func TestMissingKeepsOrder(t *testing.T) {
	c := NewChecker(plua.NewResolver(moduleSet{"llm": true}))
	got := c.Missing([]string{"zz", "llm", "table", "aa", " ", "io"})
	want := []string{"zz", "aa", " ", "io"}
	if !equalStrings(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
}

func TestMissingTracksFilesystem(t *testing.T) {
	lib := t.TempDir()
	c := NewChecker(plua.NewResolver(nil, lib))

	if got := c.Missing([]string{"helpers.text"}); len(got) != 1 {
		t.Fatalf("Missing() before file exists = %v, want [helpers.text]", got)
	}

	writeFiles(t, lib, map[string]string{"helpers/text.lua": "return {}"})

	if got := c.Missing([]string{"helpers.text"}); len(got) != 0 {
		t.Errorf("Missing() after file exists = %v, want none", got)
	}
}

func TestMissingTrimsNames(t *testing.T) {
	c := NewChecker(nil)
	if got := c.Missing([]string{"  math  "}); len(got) != 0 {
		t.Errorf("Missing() = %v, want none", got)
	}
}
