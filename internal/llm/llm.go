// Package llm provides a provider-neutral chat client for plugin units.
//
// Three providers are supported: "openai" (the default, which also serves
// any OpenAI-compatible endpoint through BaseURL), "anthropic" and
// "google". Every provider implements Client, so callers only deal with
// Messages and plain strings.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// DefaultMaxTokens caps each completion.
const DefaultMaxTokens = 10000

// Default attribution headers sent to OpenAI-compatible endpoints.
const (
	DefaultReferer = "https://agentdeck.dev"
	DefaultTitle   = "agentdeck"
)

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(text string) Message { return Message{Role: RoleSystem, Content: text} }

// User returns a user message.
func User(text string) Message { return Message{Role: RoleUser, Content: text} }

// Assistant returns an assistant message.
func Assistant(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// Client completes a chat.
type Client interface {
	// Complete sends messages and returns the assistant's reply.
	Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error)

	// Provider returns the provider name.
	Provider() string
}

// CallOption adjusts a single completion.
type CallOption func(*callOptions)

type callOptions struct {
	model     string
	maxTokens int
}

// WithModel overrides the client's default model for one call.
func WithModel(model string) CallOption {
	return func(o *callOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithMaxTokens overrides the completion token cap for one call.
func WithMaxTokens(n int) CallOption {
	return func(o *callOptions) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

func resolveCall(model string, maxTokens int, opts []CallOption) callOptions {
	co := callOptions{model: model, maxTokens: maxTokens}
	if co.maxTokens <= 0 {
		co.maxTokens = DefaultMaxTokens
	}
	for _, opt := range opts {
		opt(&co)
	}
	return co
}

// Options configures New.
type Options struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
	Referer    string
	Title      string
}

// New creates a client for opts.Provider. An empty provider selects openai.
func New(opts Options) (Client, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("llm: no model configured")
	}
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderOpenAI:
		return newOpenAI(opts), nil
	case ProviderAnthropic:
		return newAnthropic(opts), nil
	case ProviderGoogle:
		return newGoogle(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}

// Ask sends a single system + user exchange.
func Ask(ctx context.Context, c Client, system, user string, opts ...CallOption) (string, error) {
	return c.Complete(ctx, []Message{System(system), User(user)}, opts...)
}

// systemAsUserModels reject the system role.
var systemAsUserModels = map[string]bool{
	"o1-preview": true,
	"o1-mini":    true,
}

// foldSystem rewrites system messages as user messages for models that do
// not accept the system role.
func foldSystem(model string, messages []Message) []Message {
	if !systemAsUserModels[model] {
		return messages
	}
	out := make([]Message, len(messages))
	for i, m := range messages {
		if m.Role == RoleSystem {
			m.Role = RoleUser
		}
		out[i] = m
	}
	return out
}

// splitSystem separates system messages from the rest, joining multiple
// system messages with blank lines.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// Conversation keeps the history of a multi-turn chat.
// It is safe for concurrent use; sends are serialized.
type Conversation struct {
	mu      sync.Mutex
	client  Client
	system  string
	history []Message
	opts    []CallOption
}

// NewConversation starts a conversation with an optional system prompt.
func NewConversation(c Client, system string, opts ...CallOption) *Conversation {
	return &Conversation{client: c, system: system, opts: opts}
}

// Send appends text as a user turn and returns the reply. The history is
// only extended when the call succeeds.
func (c *Conversation) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]Message, 0, len(c.history)+2)
	if c.system != "" {
		messages = append(messages, System(c.system))
	}
	messages = append(messages, c.history...)
	messages = append(messages, User(text))

	reply, err := c.client.Complete(ctx, messages, c.opts...)
	if err != nil {
		return "", err
	}
	c.history = append(c.history, User(text), Assistant(reply))
	return reply, nil
}

// History returns a copy of the user and assistant turns so far.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// Reset clears the history but keeps the system prompt.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}
