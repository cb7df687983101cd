package lua

import (
	"context"
	"reflect"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestBridgeToLuaValue(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	lv := bridge.ToLuaValue(map[string]any{
		"name":  "echo",
		"tags":  []string{"x", "y"},
		"count": 3,
	})
	tbl, ok := lv.(*glua.LTable)
	if !ok {
		t.Fatalf("ToLuaValue() = %T, want *LTable", lv)
	}
	if got := tbl.RawGetString("name"); got != glua.LString("echo") {
		t.Errorf("name = %v", got)
	}
	if got := tbl.RawGetString("count"); got != glua.LNumber(3) {
		t.Errorf("count = %v", got)
	}
	tags, ok := tbl.RawGetString("tags").(*glua.LTable)
	if !ok || !reflect.DeepEqual(Strings(tags), []string{"x", "y"}) {
		t.Errorf("tags = %v", tbl.RawGetString("tags"))
	}
}

func TestBridgeFieldsFollowMetatables(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	code := `
local Base = {name = "Base", requirements = {"x", 1, "y"}}
Base.__index = Base
function Base.render() return "" end
obj = setmetatable({description = "child"}, Base)
`
	if err := state.DoString(context.Background(), code); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	err = state.Inspect(func(L *glua.LState) error {
		bridge := NewBridge(L)
		obj := L.GetGlobal("obj")

		if name, ok := bridge.StringField(obj, "name"); !ok || name != "Base" {
			t.Errorf("StringField(name) = %q, %v", name, ok)
		}
		if desc, ok := bridge.StringField(obj, "description"); !ok || desc != "child" {
			t.Errorf("StringField(description) = %q, %v", desc, ok)
		}
		if _, ok := bridge.FuncField(obj, "render"); !ok {
			t.Error("FuncField(render) not found")
		}
		reqs, ok := bridge.StringsField(obj, "requirements")
		if !ok || !reflect.DeepEqual(reqs, []string{"x", "y"}) {
			t.Errorf("StringsField(requirements) = %v, %v", reqs, ok)
		}
		if reqs, ok := bridge.StringsField(obj, "absent"); !ok || reqs != nil {
			t.Errorf("StringsField(absent) = %v, %v", reqs, ok)
		}
		if _, ok := bridge.StringsField(obj, "name"); ok {
			t.Error("StringsField(name) ok = true for a string field")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
}
