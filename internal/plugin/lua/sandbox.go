package lua

import (
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts what plugin code can reach from inside a state.
type Sandbox struct {
	L *lua.LState

	resolver  *Resolver
	templates []string
	output    io.Writer
}

// NewSandbox creates a sandbox for L. templates are extra search templates
// local to this state, consulted after the resolver's own.
func NewSandbox(L *lua.LState, resolver *Resolver, templates []string, output io.Writer) *Sandbox {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Sandbox{
		L:         L,
		resolver:  resolver,
		templates: templates,
		output:    output,
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Loading code from strings or arbitrary paths bypasses require.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
	s.installRequire()
}

// installPrint redirects print to the configured writer, if any.
func (s *Sandbox) installPrint() {
	if s.output == nil {
		return
	}
	w := s.output
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		fmt.Fprintln(w, strings.Join(parts, "\t"))
		return 0
	}))
}

// installRequire replaces require with a version that only loads names the
// resolver accepts. package.path is pinned to the resolver's templates so
// the stock file loader searches exactly the same places.
func (s *Sandbox) installRequire() {
	pkg, ok := s.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	s.L.SetField(pkg, "path", lua.LString(PackagePath(s.SearchPath())))
	s.L.SetField(pkg, "cpath", lua.LString(""))

	originalRequire := s.L.GetGlobal("require")

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !s.Allowed(name) {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		// The resolver's directories may have changed since Install.
		L.SetField(pkg, "path", lua.LString(PackagePath(s.SearchPath())))

		L.Push(originalRequire)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}

// SearchPath returns the full list of templates searched by require.
func (s *Sandbox) SearchPath() []string {
	out := make([]string, 0, len(s.templates))
	out = append(out, s.templates...)
	return append(out, s.resolver.Templates()...)
}

// Allowed reports whether require(name) is permitted in this state.
func (s *Sandbox) Allowed(name string) bool {
	if IsBuiltin(name) {
		return true
	}
	if s.preloaded(name) {
		return true
	}
	return s.resolver.Resolve(name, s.templates...)
}

func (s *Sandbox) preloaded(name string) bool {
	pkg := s.L.GetGlobal("package")
	if pkg == lua.LNil {
		return false
	}
	preload := s.L.GetField(pkg, "preload")
	if preload == lua.LNil {
		return false
	}
	return s.L.GetField(preload, name) != lua.LNil
}
