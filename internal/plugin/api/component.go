package api

import (
	lua "github.com/yuin/gopher-lua"
)

// baseComponentSource defines BaseComponent. Subclasses are tables whose
// metatable chain ends at BaseComponent, so field lookups on an instance
// fall through its class to the base defaults.
const baseComponentSource = `
local BaseComponent = {
  name = "",
  description = "",
  requirements = {},
}
BaseComponent.__index = BaseComponent

function BaseComponent:extend(def)
  local cls = def or {}
  cls.__index = cls
  return setmetatable(cls, self)
end

function BaseComponent:new(o)
  return setmetatable(o or {}, self)
end

function BaseComponent:render()
  error("render is not implemented for component '" .. tostring(self.name) .. "'", 2)
end

return { BaseComponent = BaseComponent }
`

// ComponentModule provides require("component").
type ComponentModule struct{}

// NewComponentModule creates the component module.
func NewComponentModule() *ComponentModule {
	return &ComponentModule{}
}

// Name returns the module name.
func (m *ComponentModule) Name() string {
	return "component"
}

// Loader pushes the module table.
func (m *ComponentModule) Loader(L *lua.LState) int {
	fn, err := L.LoadString(baseComponentSource)
	if err != nil {
		L.RaiseError("component module: %v", err)
		return 0
	}
	L.Push(fn)
	L.Call(0, 1)
	return 1
}
