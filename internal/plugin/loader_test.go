package plugin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

func loadUnit(t *testing.T, files map[string]string, unitName string) (Component, error) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)
	units, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	for _, u := range units {
		if u.Name == unitName {
			loader, _ := newTestLoader(t)
			comp, err := loader.Load(context.Background(), u)
			if comp != nil {
				t.Cleanup(func() { comp.Close() })
			}
			return comp, err
		}
	}
	t.Fatalf("unit %q not found in %+v", unitName, units)
	return nil, nil
}

func TestLuaLoaderLoadsComponent(t *testing.T) {
	comp, err := loadUnit(t, map[string]string{
		"echo.lua": componentSource("Echo Agent", "Repeats things", "hello"),
	}, "echo")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if comp.Name() != "Echo Agent" {
		t.Errorf("Name() = %q, want Echo Agent", comp.Name())
	}
	if comp.Description() != "Repeats things" {
		t.Errorf("Description() = %q", comp.Description())
	}
	if comp.Status() != StatusLive || !comp.Available() {
		t.Errorf("Status() = %s, Available() = %v; want live, true", comp.Status(), comp.Available())
	}
	if reqs := comp.Requirements(); reqs == nil || len(reqs) != 0 {
		t.Errorf("Requirements() = %#v, want empty slice", reqs)
	}
	if got := renderString(t, comp); got != "hello" {
		t.Errorf("Render() = %q, want hello", got)
	}
}

func TestLuaLoaderPackageRequiresSibling(t *testing.T) {
	comp, err := loadUnit(t, map[string]string{
		"writer/init.lua": `local component = require("component")
local prompts = require("prompts")

local W = component.BaseComponent:extend{
  name = "Writer",
  description = "Writes",
  requirements = {"prompts", "component"},
}

function W:render()
  return prompts.greeting
end

function get_component() return W:new() end
`,
		"writer/prompts.lua": `return { greeting = "hi from sibling" }`,
	}, "writer")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := renderString(t, comp); got != "hi from sibling" {
		t.Errorf("Render() = %q", got)
	}
	if !equalStrings(comp.Requirements(), []string{"prompts", "component"}) {
		t.Errorf("Requirements() = %v", comp.Requirements())
	}
}

func TestLuaLoaderPlainTable(t *testing.T) {
	comp, err := loadUnit(t, map[string]string{
		"plain/main.lua": `
function get_component()
  return {
    name = "Plain",
    description = "",
    render = function(self) return 42 end,
  }
end
`,
	}, "plain")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := renderString(t, comp); got != "42" {
		t.Errorf("Render() = %q, want 42", got)
	}
}

func TestLuaLoaderUnitLoadError(t *testing.T) {
	_, err := loadUnit(t, map[string]string{
		"broken.lua": `local x = require("definitely_not_a_real_package_zzz")
function get_component() return {} end`,
	}, "broken")

	var lerr *UnitLoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("Load() error = %v, want *UnitLoadError", err)
	}
	if lerr.Unit != "broken" {
		t.Errorf("Unit = %q, want broken", lerr.Unit)
	}
	if !strings.Contains(err.Error(), "definitely_not_a_real_package_zzz") {
		t.Errorf("error %q does not name the missing module", err)
	}
}

func TestLuaLoaderFactoryErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"missing factory", `local x = 1`, ErrNoFactory},
		{"returns nothing", `function get_component() end`, ErrInvalidComponent},
		{"returns string", `function get_component() return "x" end`, ErrInvalidComponent},
		{"empty name", `function get_component() return {name = "", description = "", render = function() end} end`, ErrInvalidComponent},
		{"numeric name", `function get_component() return {name = 1, description = "", render = function() end} end`, ErrInvalidComponent},
		{"no render", `function get_component() return {name = "x", description = ""} end`, ErrInvalidComponent},
		{"bad requirements", `function get_component() return {name = "x", description = "", render = function() end, requirements = "x"} end`, ErrInvalidComponent},
		{"raises", `function get_component() error("boom") end`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadUnit(t, map[string]string{"unit.lua": tt.src}, "unit")
			var ferr *FactoryError
			if !errors.As(err, &ferr) {
				t.Fatalf("Load() error = %v, want *FactoryError", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLuaLoaderDefaultRenderRaises(t *testing.T) {
	comp, err := loadUnit(t, map[string]string{
		"lazy.lua": `local component = require("component")
local L = component.BaseComponent:extend{name = "Lazy"}
function get_component() return L:new() end`,
	}, "lazy")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, err = comp.Render(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not implemented") {
		t.Errorf("Render() error = %v, want not implemented", err)
	}
}

func TestLuaLoaderRenderTableIsError(t *testing.T) {
	comp, err := loadUnit(t, map[string]string{
		"tbl.lua": `function get_component()
  return {name = "T", description = "", render = function() return {} end}
end`,
	}, "tbl")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := comp.Render(context.Background()); !errors.Is(err, ErrInvalidComponent) {
		t.Errorf("Render() error = %v, want ErrInvalidComponent", err)
	}
}

func TestLuaLoaderTimeout(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"spin.lua": `while true do end`})
	units, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	loader := NewLuaLoader(nil, WithLoadTimeout(50*time.Millisecond))
	_, err = loader.Load(context.Background(), units[0])
	var lerr *UnitLoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("Load() error = %v, want *UnitLoadError", err)
	}
	if !errors.Is(err, plua.ErrExecutionTimeout) {
		t.Errorf("Load() error = %v, want ErrExecutionTimeout", err)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLuaLoaderUnitOutput(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"noisy.lua": `print("loading", 1)`})
	units, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	var out syncBuffer
	var seen Unit
	loader := NewLuaLoader(nil, WithUnitOutput(func(u Unit) io.Writer {
		seen = u
		return &out
	}))
	if _, err := loader.Load(context.Background(), units[0]); err == nil {
		t.Fatal("Load() error = nil, want missing factory")
	}
	if got := out.String(); got != "loading\t1\n" {
		t.Errorf("output = %q, want %q", got, "loading\t1\n")
	}
	if seen.Entry != filepath.Join(root, "noisy.lua") {
		t.Errorf("output unit = %+v", seen)
	}
}

func TestLuaLoaderSandbox(t *testing.T) {
	for _, src := range []string{
		`local f = io.open("/etc/passwd")`,
		`os.exit(1)`,
		`loadstring("return 1")()`,
		`require("os")`,
	} {
		_, err := loadUnit(t, map[string]string{"bad.lua": src}, "bad")
		var lerr *UnitLoadError
		if !errors.As(err, &lerr) {
			t.Errorf("Load(%q) error = %v, want *UnitLoadError", src, err)
		}
	}
}
