// Package lua provides Lua runtime integration for the plugin system.
package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// State wraps gopher-lua with the sandbox and module resolution used for
// plugin units.
//
// gopher-lua's LState is not goroutine-safe. The mutex in this struct
// serializes every entry point, so a State may be shared between goroutines
// as long as callers go through its methods.
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	resolver         *Resolver
	searchDirs       []string
	modules          map[string]lua.LGFunction
	output           io.Writer

	sandbox *Sandbox

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout bounds every execution entry point. Zero disables
// the bound; the caller's context still applies.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithResolver sets the resolver consulted by require.
func WithResolver(r *Resolver) StateOption {
	return func(s *State) {
		s.resolver = r
	}
}

// WithSearchDir adds a directory searched by require in this state only.
// Plugin units use it to load their own sibling files.
func WithSearchDir(dir string) StateOption {
	return func(s *State) {
		if dir != "" {
			s.searchDirs = append(s.searchDirs, dir)
		}
	}
}

// WithModule preloads a Go-implemented module under name.
func WithModule(name string, loader lua.LGFunction) StateOption {
	return func(s *State) {
		if s.modules == nil {
			s.modules = make(map[string]lua.LGFunction)
		}
		s.modules[name] = loader
	}
}

// WithOutput redirects print to w.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) {
		s.output = w
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{}
	for _, opt := range opts {
		opt(state)
	}
	if state.resolver == nil {
		state.resolver = NewResolver(nil)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	state.L = L

	if err := openSafeLibraries(L); err != nil {
		L.Close()
		return nil, err
	}

	for name, loader := range state.modules {
		L.PreloadModule(name, loader)
	}

	var templates []string
	for _, dir := range state.searchDirs {
		templates = append(templates, SearchTemplates(dir)...)
	}
	state.sandbox = NewSandbox(L, state.resolver, templates, state.output)
	state.sandbox.Install()

	return state, nil
}

// safeLibraries are opened in every state. io, os and debug are left out.
var safeLibraries = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.CoroutineLibName, lua.OpenCoroutine},
}

func openSafeLibraries(L *lua.LState) error {
	for _, lib := range safeLibraries {
		err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return fmt.Errorf("opening %q library: %w", lib.name, err)
		}
	}
	return nil
}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.run(ctx, func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.run(ctx, func() error {
		return s.L.DoString(code)
	})
}

// CallGlobal calls a global Lua function by name.
func (s *State) CallGlobal(ctx context.Context, name string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn := s.L.GetGlobal(name)
	if fn == lua.LNil {
		return nil, fmt.Errorf("function %q: %w", name, ErrFunctionNotFound)
	}
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%q is not a function (got %s)", name, fn.Type())
	}
	return s.call(ctx, fn, args)
}

// Call calls fn with the given arguments.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(ctx context.Context, fn lua.LValue, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}
	return s.call(ctx, fn, args)
}

// CallMethod looks up method on obj (honoring metatables) and calls it with
// obj as the receiver.
func (s *State) CallMethod(ctx context.Context, obj lua.LValue, method string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn := s.L.GetField(obj, method)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("method %q: %w", method, ErrFunctionNotFound)
	}
	return s.call(ctx, fn, append([]lua.LValue{obj}, args...))
}

func (s *State) call(ctx context.Context, fn lua.LValue, args []lua.LValue) ([]lua.LValue, error) {
	stackTop := s.L.GetTop()

	err := s.run(ctx, func() error {
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(arg)
		}
		return s.L.PCall(len(args), lua.MultRet, nil)
	})
	if err != nil {
		s.L.SetTop(stackTop)
		return nil, err
	}

	nRet := s.L.GetTop() - stackTop
	if nRet <= 0 {
		return []lua.LValue{}, nil
	}
	results := make([]lua.LValue, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.Pop(nRet)
	return results, nil
}

// Inspect runs fn with exclusive access to the underlying LState. It is
// meant for reading values; fn must not call into Lua.
func (s *State) Inspect(fn func(L *lua.LState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return fn(s.L)
}

// run executes fn with ctx installed on the LState, converting panics and
// deadline expiry into errors.
func (s *State) run(ctx context.Context, fn func() error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
		if err != nil {
			switch {
			case errors.Is(ctx.Err(), context.DeadlineExceeded):
				err = fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
			case errors.Is(ctx.Err(), context.Canceled):
				err = fmt.Errorf("%w: %v", context.Canceled, err)
			}
		}
	}()
	return fn()
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// Sandbox returns the sandbox installed in this state.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
// After Close is called, all other methods will return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
