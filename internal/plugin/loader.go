package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

// FactoryName is the global function a unit defines to create its
// component.
const FactoryName = "get_component"

// Loader loads a unit into a component.
//
// Load returns a *UnitLoadError when the unit's code cannot run and a
// *FactoryError when it runs but does not produce a component.
type Loader interface {
	Load(ctx context.Context, unit Unit) (Component, error)
}

// LuaLoader runs units in fresh sandboxed Lua states.
type LuaLoader struct {
	resolver *plua.Resolver
	options  []plua.StateOption
	timeout  time.Duration
	output   func(unit Unit) io.Writer
}

// LuaLoaderOption configures a LuaLoader.
type LuaLoaderOption func(*LuaLoader)

// WithStateOptions adds options to every state, typically host modules.
func WithStateOptions(opts ...plua.StateOption) LuaLoaderOption {
	return func(l *LuaLoader) {
		l.options = append(l.options, opts...)
	}
}

// WithLoadTimeout bounds each call into a unit. Zero means no bound.
func WithLoadTimeout(d time.Duration) LuaLoaderOption {
	return func(l *LuaLoader) {
		l.timeout = d
	}
}

// WithUnitOutput sets where print writes for each unit.
func WithUnitOutput(fn func(unit Unit) io.Writer) LuaLoaderOption {
	return func(l *LuaLoader) {
		l.output = fn
	}
}

// NewLuaLoader creates a loader whose states resolve modules with resolver.
func NewLuaLoader(resolver *plua.Resolver, opts ...LuaLoaderOption) *LuaLoader {
	if resolver == nil {
		resolver = plua.NewResolver(nil)
	}
	l := &LuaLoader{resolver: resolver}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs the unit's entry file and calls its factory.
func (l *LuaLoader) Load(ctx context.Context, unit Unit) (Component, error) {
	opts := make([]plua.StateOption, 0, len(l.options)+4)
	opts = append(opts, l.options...)
	opts = append(opts,
		plua.WithResolver(l.resolver),
		plua.WithSearchDir(unit.Dir),
		plua.WithExecutionTimeout(l.timeout),
	)
	if l.output != nil {
		opts = append(opts, plua.WithOutput(l.output(unit)))
	}

	state, err := plua.NewState(opts...)
	if err != nil {
		return nil, &UnitLoadError{Unit: unit.Name, Path: unit.Entry, Err: err}
	}

	if err := state.DoFile(ctx, unit.Entry); err != nil {
		state.Close()
		return nil, &UnitLoadError{Unit: unit.Name, Path: unit.Entry, Err: err}
	}

	rets, err := state.CallGlobal(ctx, FactoryName)
	if err != nil {
		state.Close()
		if errors.Is(err, plua.ErrFunctionNotFound) {
			err = ErrNoFactory
		}
		return nil, &FactoryError{Unit: unit.Name, Err: err}
	}
	if len(rets) == 0 {
		state.Close()
		return nil, &FactoryError{Unit: unit.Name, Err: fmt.Errorf("%w: %s returned nothing", ErrInvalidComponent, FactoryName)}
	}

	obj := rets[0]
	var desc Descriptor
	err = state.Inspect(func(L *lua.LState) error {
		var verr error
		desc, verr = describe(L, obj)
		return verr
	})
	if err != nil {
		state.Close()
		return nil, &FactoryError{Unit: unit.Name, Err: err}
	}

	return &Live{unit: unit, desc: desc, state: state, obj: obj}, nil
}

// describe checks the component shape and reads its descriptor. Lookups
// go through metatables so inherited fields count.
func describe(L *lua.LState, obj lua.LValue) (Descriptor, error) {
	if obj.Type() != lua.LTTable && obj.Type() != lua.LTUserData {
		return Descriptor{}, fmt.Errorf("%w: %s returned a %s", ErrInvalidComponent, FactoryName, obj.Type())
	}
	b := plua.NewBridge(L)

	name, ok := b.StringField(obj, "name")
	if !ok || name == "" {
		return Descriptor{}, fmt.Errorf("%w: name must be a non-empty string", ErrInvalidComponent)
	}
	description, ok := b.StringField(obj, "description")
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: description must be a string", ErrInvalidComponent)
	}
	if _, ok := b.FuncField(obj, "render"); !ok {
		return Descriptor{}, fmt.Errorf("%w: render must be a function", ErrInvalidComponent)
	}
	reqs, ok := b.StringsField(obj, "requirements")
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: requirements must be a list of strings", ErrInvalidComponent)
	}
	if reqs == nil {
		reqs = []string{}
	}

	return Descriptor{Name: name, Description: description, Requirements: reqs}, nil
}
