package api

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/agentdeck/internal/artifact"
)

// ArtifactStore is the artifact store seen by plugins.
type ArtifactStore interface {
	RegisterType(t string)
	Types() []string
	Write(component, src, remark, typ string) (string, error)
	Put(component, name string, data []byte, remark, typ string) (string, error)
	List() ([]artifact.Entry, error)
}

// ArtifactsModule provides require("artifacts").
type ArtifactsModule struct {
	store ArtifactStore
}

// NewArtifactsModule creates the artifacts module.
func NewArtifactsModule(store ArtifactStore) *ArtifactsModule {
	return &ArtifactsModule{store: store}
}

// Name returns the module name.
func (m *ArtifactsModule) Name() string {
	return "artifacts"
}

// Loader pushes the module table.
func (m *ArtifactsModule) Loader(L *lua.LState) int {
	L.Push(L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"register_type": m.registerType,
		"types":         m.types,
		"write":         m.write,
		"save":          m.save,
		"list":          m.list,
	}))
	return 1
}

// register_type(type)
func (m *ArtifactsModule) registerType(L *lua.LState) int {
	t := L.CheckString(1)
	if t == "" {
		L.ArgError(1, "type cannot be empty")
		return 0
	}
	m.store.RegisterType(t)
	return 0
}

// types() -> {type, ...}
func (m *ArtifactsModule) types(L *lua.LState) int {
	L.Push(plainStrings(L, m.store.Types()))
	return 1
}

// write(component, src, remark, type) -> path
func (m *ArtifactsModule) write(L *lua.LState) int {
	component := L.CheckString(1)
	src := L.CheckString(2)
	remark := L.OptString(3, "")
	typ := L.CheckString(4)

	path, err := m.store.Write(component, src, remark, typ)
	if err != nil {
		L.RaiseError("artifacts.write: %v", err)
		return 0
	}
	L.Push(lua.LString(path))
	return 1
}

// save(component, name, content, remark, type) -> path
func (m *ArtifactsModule) save(L *lua.LState) int {
	component := L.CheckString(1)
	name := L.CheckString(2)
	content := L.CheckString(3)
	remark := L.OptString(4, "")
	typ := L.CheckString(5)

	path, err := m.store.Put(component, name, []byte(content), remark, typ)
	if err != nil {
		L.RaiseError("artifacts.save: %v", err)
		return 0
	}
	L.Push(lua.LString(path))
	return 1
}

// list() -> {{file=..., component=..., size=..., remark=..., type=..., created=...}, ...}
func (m *ArtifactsModule) list(L *lua.LState) int {
	entries, err := m.store.List()
	if err != nil {
		L.RaiseError("artifacts.list: %v", err)
		return 0
	}
	t := L.CreateTable(len(entries), 0)
	for _, e := range entries {
		row := L.CreateTable(0, 6)
		row.RawSetString("file", lua.LString(e.File))
		row.RawSetString("component", lua.LString(e.Component))
		row.RawSetString("size", lua.LNumber(e.Size))
		row.RawSetString("remark", lua.LString(e.Remark))
		row.RawSetString("type", lua.LString(e.Type))
		row.RawSetString("created", lua.LString(e.Created.Format(time.RFC3339)))
		t.Append(row)
	}
	L.Push(t)
	return 1
}

func plainStrings(L *lua.LState, items []string) *lua.LTable {
	t := L.CreateTable(len(items), 0)
	for _, s := range items {
		t.Append(lua.LString(s))
	}
	return t
}
