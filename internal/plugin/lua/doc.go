// Package lua provides the Lua runtime used to execute plugin units.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed state management with context-aware execution
//   - A module Resolver that is the single definition of "importable"
//   - Go-Lua value conversion helpers
//
// # State
//
// A State is created per plugin unit:
//
//	state, err := lua.NewState(
//	    lua.WithResolver(resolver),
//	    lua.WithSearchDir(unitDir),
//	    lua.WithExecutionTimeout(5 * time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoFile(ctx, "components/echo/init.lua"); err != nil {
//	    return err
//	}
//
// # Sandbox
//
// The Sandbox removes dofile, loadfile, load and loadstring, and replaces
// require with a version that only loads what the Resolver accepts:
//   - the opened standard libraries (string, table, math, coroutine, package)
//   - host modules preloaded into the state
//   - Lua files found on the search path
//
// io, os and debug are never opened.
//
// # Resolver
//
// The Resolver answers "can require(name) succeed?" without executing
// anything, which is what the plugin requirement checker relies on.
package lua
