package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/agentdeck/internal/llm"
	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

const conversationTypeName = "agentdeck.conversation"

// ClientFactory builds an LLM client from the current settings. It is
// called on every ask and conversation so setting changes apply without
// reloading plugins.
type ClientFactory func() (llm.Client, error)

// LLMModule provides require("llm").
type LLMModule struct {
	newClient ClientFactory
}

// NewLLMModule creates the llm module.
func NewLLMModule(factory ClientFactory) *LLMModule {
	return &LLMModule{newClient: factory}
}

// Name returns the module name.
func (m *LLMModule) Name() string {
	return "llm"
}

// Loader pushes the module table.
func (m *LLMModule) Loader(L *lua.LState) int {
	mt := L.NewTypeMetatable(conversationTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"send":    m.send,
		"history": m.history,
		"reset":   m.reset,
	}))

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"ask":          m.ask,
		"conversation": m.conversation,
	})
	L.Push(mod)
	return 1
}

func (m *LLMModule) client(L *lua.LState) llm.Client {
	if m.newClient == nil {
		L.RaiseError("llm: no provider configured")
		return nil
	}
	c, err := m.newClient()
	if err != nil {
		L.RaiseError("llm: %v", err)
		return nil
	}
	return c
}

// ask(system, user[, model]) -> string
func (m *LLMModule) ask(L *lua.LState) int {
	system := L.CheckString(1)
	user := L.CheckString(2)
	model := L.OptString(3, "")

	c := m.client(L)
	var opts []llm.CallOption
	if model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	reply, err := llm.Ask(stateContext(L), c, system, user, opts...)
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LString(reply))
	return 1
}

// conversation(system[, model]) -> conversation
func (m *LLMModule) conversation(L *lua.LState) int {
	system := L.OptString(1, "")
	model := L.OptString(2, "")

	c := m.client(L)
	var opts []llm.CallOption
	if model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	ud := L.NewUserData()
	ud.Value = llm.NewConversation(c, system, opts...)
	L.SetMetatable(ud, L.GetTypeMetatable(conversationTypeName))
	L.Push(ud)
	return 1
}

func checkConversation(L *lua.LState) *llm.Conversation {
	ud := L.CheckUserData(1)
	if conv, ok := ud.Value.(*llm.Conversation); ok {
		return conv
	}
	L.ArgError(1, "conversation expected")
	return nil
}

// conv:send(text) -> string
func (m *LLMModule) send(L *lua.LState) int {
	conv := checkConversation(L)
	text := L.CheckString(2)
	reply, err := conv.Send(stateContext(L), text)
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LString(reply))
	return 1
}

// conv:history() -> {{role=..., content=...}, ...}
func (m *LLMModule) history(L *lua.LState) int {
	conv := checkConversation(L)
	msgs := conv.History()
	entries := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, map[string]any{
			"role":    string(msg.Role),
			"content": msg.Content,
		})
	}
	L.Push(plua.NewBridge(L).ToLuaValue(entries))
	return 1
}

// conv:reset()
func (m *LLMModule) reset(L *lua.LState) int {
	checkConversation(L).Reset()
	return 0
}
