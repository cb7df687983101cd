package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/agentdeck/internal/plugin/api"
	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

// writeFiles creates files under root. Keys are slash-separated paths.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll(%s) error = %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", rel, err)
		}
	}
}

// componentSource returns a unit that builds a BaseComponent subclass.
func componentSource(name, description, output string) string {
	return `local component = require("component")

local C = component.BaseComponent:extend{
  name = "` + name + `",
  description = "` + description + `",
}

function C:render()
  return "` + output + `"
end

function get_component()
  return C:new()
end
`
}

// newTestLoader returns a loader with the component host module and a
// resolver over it plus dirs.
func newTestLoader(t *testing.T, dirs ...string) (*LuaLoader, *plua.Resolver) {
	t.Helper()
	mods, err := api.NewRegistry(api.NewComponentModule())
	if err != nil {
		t.Fatalf("api.NewRegistry() error = %v", err)
	}
	resolver := plua.NewResolver(mods, dirs...)
	return NewLuaLoader(resolver, WithStateOptions(mods.StateOptions()...)), resolver
}

// memStore is an in-memory EnablementStore.
type memStore struct {
	enabled []string
	loadErr error
	saveErr error
	saves   int
}

func (s *memStore) Load() ([]string, error) {
	if s.loadErr != nil {
		return []string{}, s.loadErr
	}
	return append([]string{}, s.enabled...), nil
}

func (s *memStore) Save(enabled []string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.enabled = append([]string{}, enabled...)
	return nil
}

func names(comps []Component) []string {
	out := make([]string, 0, len(comps))
	for _, c := range comps {
		out = append(out, c.Name())
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func renderString(t *testing.T, c Component) string {
	t.Helper()
	out, err := c.Render(context.Background())
	if err != nil {
		t.Fatalf("Render(%s) error = %v", c.Name(), err)
	}
	return out
}
