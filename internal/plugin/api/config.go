package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/agentdeck/internal/config"
	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

// Settings is the settings registry seen by plugins.
type Settings interface {
	Lookup(key string) (string, bool)
	Register(item config.Item) error
}

// ConfigModule provides require("config").
type ConfigModule struct {
	settings Settings
}

// NewConfigModule creates the config module.
func NewConfigModule(settings Settings) *ConfigModule {
	return &ConfigModule{settings: settings}
}

// Name returns the module name.
func (m *ConfigModule) Name() string {
	return "config"
}

// Loader pushes the module table.
func (m *ConfigModule) Loader(L *lua.LState) int {
	L.Push(L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get":      m.get,
		"register": m.register,
	}))
	return 1
}

// get(key[, default]) -> string or default
func (m *ConfigModule) get(L *lua.LState) int {
	key := L.CheckString(1)
	if key == "" {
		L.ArgError(1, "key cannot be empty")
		return 0
	}
	if v, ok := m.settings.Lookup(key); ok {
		L.Push(lua.LString(v))
		return 1
	}
	L.Push(L.Get(2))
	return 1
}

// register{key=..., description=..., type=..., options={...}, default=...}
func (m *ConfigModule) register(L *lua.LState) int {
	spec := L.CheckTable(1)
	b := plua.NewBridge(L)

	item := config.Item{}
	item.Key, _ = b.StringField(spec, "key")
	item.Description, _ = b.StringField(spec, "description")
	item.Default, _ = b.StringField(spec, "default")
	if t, ok := b.StringField(spec, "type"); ok {
		item.Type = config.ItemType(t)
	}
	options, ok := b.StringsField(spec, "options")
	if !ok {
		L.ArgError(1, "options must be a list of strings")
		return 0
	}
	item.Options = options

	if err := m.settings.Register(item); err != nil {
		L.RaiseError("config.register: %v", err)
		return 0
	}
	return 0
}
