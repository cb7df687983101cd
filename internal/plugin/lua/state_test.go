package lua

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func TestNewState(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if state.IsClosed() {
		t.Error("NewState() returned closed state")
	}
	if state.Sandbox() == nil {
		t.Error("NewState() Sandbox() is nil")
	}
}

func TestStateOpensSafeLibraries(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	for _, name := range []string{"string", "table", "math", "coroutine", "package"} {
		if state.GetGlobal(name) == glua.LNil {
			t.Errorf("global %q missing", name)
		}
	}
	for _, name := range []string{"io", "os", "debug"} {
		if state.GetGlobal(name) != glua.LNil {
			t.Errorf("global %q should not be opened", name)
		}
	}
}

func TestStateDoString(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(context.Background(), "x = 1 + 2"); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := state.GetGlobal("x"); got != glua.LNumber(3) {
		t.Errorf("x = %v, want 3", got)
	}

	if err := state.DoString(context.Background(), "error('boom')"); err == nil {
		t.Error("DoString() should fail on error()")
	}
}

func TestStateDoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unit.lua")
	if err := os.WriteFile(path, []byte("loaded = true"), 0644); err != nil {
		t.Fatal(err)
	}

	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoFile(context.Background(), path); err != nil {
		t.Fatalf("DoFile() error = %v", err)
	}
	if got := state.GetGlobal("loaded"); got != glua.LTrue {
		t.Errorf("loaded = %v, want true", got)
	}
}

func TestStateCallGlobal(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	ctx := context.Background()
	if err := state.DoString(ctx, "function add(a, b) return a + b, 'ok' end"); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	results, err := state.CallGlobal(ctx, "add", glua.LNumber(2), glua.LNumber(5))
	if err != nil {
		t.Fatalf("CallGlobal() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("CallGlobal() len = %d, want 2", len(results))
	}
	if results[0] != glua.LNumber(7) || results[1] != glua.LString("ok") {
		t.Errorf("CallGlobal() = %v, want [7 ok]", results)
	}

	_, err = state.CallGlobal(ctx, "missing")
	if !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("CallGlobal(missing) error = %v, want ErrFunctionNotFound", err)
	}
}

func TestStateCallMethodHonorsMetatable(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	ctx := context.Background()
	code := `
local Base = {}
Base.__index = Base
function Base:greet(who) return self.prefix .. who end
obj = setmetatable({prefix = "hi "}, Base)
`
	if err := state.DoString(ctx, code); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	results, err := state.CallMethod(ctx, state.GetGlobal("obj"), "greet", glua.LString("there"))
	if err != nil {
		t.Fatalf("CallMethod() error = %v", err)
	}
	if len(results) != 1 || results[0].String() != "hi there" {
		t.Errorf("CallMethod() = %v, want [hi there]", results)
	}
}

func TestStateExecutionTimeout(t *testing.T) {
	state, err := NewState(WithExecutionTimeout(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	err = state.DoString(context.Background(), "while true do end")
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Errorf("DoString() error = %v, want ErrExecutionTimeout", err)
	}

	// The state stays usable after a timeout.
	if err := state.DoString(context.Background(), "y = 1"); err != nil {
		t.Errorf("DoString() after timeout error = %v", err)
	}
}

func TestStateContextCancel(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = state.DoString(ctx, "local n = 0 while true do n = n + 1 end")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("DoString() error = %v, want context.Canceled", err)
	}
}

func TestStateModules(t *testing.T) {
	loader := func(L *glua.LState) int {
		mod := L.NewTable()
		mod.RawSetString("answer", glua.LNumber(42))
		L.Push(mod)
		return 1
	}

	state, err := NewState(WithModule("answers", loader))
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(context.Background(), "v = require('answers').answer"); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := state.GetGlobal("v"); got != glua.LNumber(42) {
		t.Errorf("v = %v, want 42", got)
	}
}

func TestStateOutput(t *testing.T) {
	var buf bytes.Buffer
	state, err := NewState(WithOutput(&buf))
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(context.Background(), "print('a', 1, true)"); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "a\t1\ttrue" {
		t.Errorf("print output = %q, want %q", got, "a\t1\ttrue")
	}
}

func TestStateClose(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}

	if err := state.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !state.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := state.DoString(context.Background(), "x = 1"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() after Close error = %v, want ErrStateClosed", err)
	}
	if _, err := state.CallGlobal(context.Background(), "f"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("CallGlobal() after Close error = %v, want ErrStateClosed", err)
	}
	if got := state.GetGlobal("x"); got != glua.LNil {
		t.Errorf("GetGlobal() after Close = %v, want nil", got)
	}
}
