package lua

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ModuleSet reports whether a host module is preloaded into plugin states.
type ModuleSet interface {
	Has(name string) bool
}

// builtinModules are the standard libraries opened in every sandboxed state.
// io, os and debug are never opened and therefore never resolvable.
var builtinModules = map[string]bool{
	lua.LoadLibName:      true,
	lua.TabLibName:       true,
	lua.StringLibName:    true,
	lua.MathLibName:      true,
	lua.CoroutineLibName: true,
}

// Resolver decides whether a module name can be loaded with require.
//
// A name resolves when it is a built-in library, a preloaded host module,
// or a file matching one of the search templates. Templates use the Lua
// package.path syntax: "?" is replaced with the module name after dots
// have been turned into path separators.
//
// Resolver performs no caching. Every call consults the current host
// modules and the filesystem.
type Resolver struct {
	mu        sync.RWMutex
	modules   ModuleSet
	templates []string
}

// NewResolver creates a resolver over the given host modules and search
// directories. Each directory contributes "dir/?.lua" and "dir/?/init.lua".
func NewResolver(modules ModuleSet, dirs ...string) *Resolver {
	r := &Resolver{modules: modules}
	for _, dir := range dirs {
		r.AddSearchDir(dir)
	}
	return r
}

// AddSearchDir appends a directory to the search path.
func (r *Resolver) AddSearchDir(dir string) {
	if dir == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = append(r.templates, SearchTemplates(dir)...)
}

// SearchTemplates returns the package.path templates for a directory.
func SearchTemplates(dir string) []string {
	return []string{
		filepath.Join(dir, "?.lua"),
		filepath.Join(dir, "?", "init.lua"),
	}
}

// Templates returns a copy of the search templates.
func (r *Resolver) Templates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.templates))
	copy(out, r.templates)
	return out
}

// IsBuiltin reports whether name is a standard library opened in the sandbox.
func IsBuiltin(name string) bool {
	return builtinModules[name]
}

// Resolve reports whether require(name) would succeed in finding a loader
// for name, using the resolver's templates plus any extra templates.
func (r *Resolver) Resolve(name string, extra ...string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if IsBuiltin(name) {
		return true
	}
	if r.modules != nil && r.modules.Has(name) {
		return true
	}
	_, ok := r.Find(name, extra...)
	return ok
}

// Find returns the first file on the search path that provides name.
func (r *Resolver) Find(name string, extra ...string) (string, bool) {
	rel := strings.ReplaceAll(name, ".", string(filepath.Separator))
	templates := append(r.Templates(), extra...)
	for _, tmpl := range templates {
		candidate := strings.ReplaceAll(tmpl, "?", rel)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

// PackagePath renders templates as a package.path value.
func PackagePath(templates []string) string {
	return strings.Join(templates, ";")
}
