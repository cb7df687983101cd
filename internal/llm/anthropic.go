package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func newAnthropic(opts Options) *anthropicClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &anthropicClient{
		client:    anthropic.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

func (c *anthropicClient) Provider() string { return ProviderAnthropic }

func (c *anthropicClient) Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error) {
	co := resolveCall(c.model, c.maxTokens, opts)
	system, turns := splitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(co.model),
		MaxTokens: int64(co.maxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(turns)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range turns {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classify(ProviderAnthropic, apiErr.StatusCode, err)
		}
		return "", classify(ProviderAnthropic, 0, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
