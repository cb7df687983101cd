package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Bridge provides utilities for Go-Lua interoperability.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToLuaValue converts a Go value to a Lua value.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []string:
		return b.StringList(val)
	case []any:
		t := b.L.CreateTable(len(val), 0)
		for _, item := range val {
			t.Append(b.ToLuaValue(item))
		}
		return t
	case map[string]string:
		t := b.L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, lua.LString(item))
		}
		return t
	case map[string]any:
		t := b.L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, b.ToLuaValue(item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

// StringList converts a Go string slice to a Lua sequence.
func (b *Bridge) StringList(items []string) *lua.LTable {
	t := b.L.CreateTable(len(items), 0)
	for _, item := range items {
		t.Append(lua.LString(item))
	}
	return t
}

// Field reads key from obj honoring __index metatables.
func (b *Bridge) Field(obj lua.LValue, key string) lua.LValue {
	if obj.Type() != lua.LTTable && obj.Type() != lua.LTUserData {
		return lua.LNil
	}
	return b.L.GetField(obj, key)
}

// StringField reads a string field from obj. Numbers are not coerced.
func (b *Bridge) StringField(obj lua.LValue, key string) (string, bool) {
	if s, ok := b.Field(obj, key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// FuncField reads a function field from obj.
func (b *Bridge) FuncField(obj lua.LValue, key string) (*lua.LFunction, bool) {
	if f, ok := b.Field(obj, key).(*lua.LFunction); ok {
		return f, true
	}
	return nil, false
}

// StringsField reads a sequence of strings from obj. Non-string elements
// are skipped. ok is false when the field is present but not a table.
func (b *Bridge) StringsField(obj lua.LValue, key string) ([]string, bool) {
	v := b.Field(obj, key)
	if v == lua.LNil {
		return nil, true
	}
	t, isTable := v.(*lua.LTable)
	if !isTable {
		return nil, false
	}
	return Strings(t), true
}

// Strings returns the string elements of the sequence part of t, in order.
func Strings(t *lua.LTable) []string {
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		if s, ok := t.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}
