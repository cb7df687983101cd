package api

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// stateContext returns the context installed on L by the running call.
func stateContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
