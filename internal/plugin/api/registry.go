package api

import (
	"fmt"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

// Module is a Lua module implemented in Go.
type Module interface {
	// Name is the name passed to require.
	Name() string

	// Loader builds the module value and pushes it onto the stack.
	Loader(L *lua.LState) int
}

// Registry manages host modules.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates a registry holding mods.
func NewRegistry(mods ...Module) (*Registry, error) {
	r := &Registry{
		modules: make(map[string]Module),
	}
	for _, mod := range mods {
		if err := r.Register(mod); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a module to the registry.
func (r *Registry) Register(mod Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := mod.Name()
	if name == "" {
		return fmt.Errorf("module name is empty")
	}
	if plua.IsBuiltin(name) {
		return fmt.Errorf("module %q shadows a standard library", name)
	}
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}
	r.modules[name] = mod
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[name]
	return mod, ok
}

// Has reports whether name is a registered module.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns all registered module names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StateOptions returns state options preloading every registered module.
func (r *Registry) StateOptions() []plua.StateOption {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := make([]plua.StateOption, 0, len(r.modules))
	for name, mod := range r.modules {
		opts = append(opts, plua.WithModule(name, mod.Loader))
	}
	return opts
}

var _ plua.ModuleSet = (*Registry)(nil)
