package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openAIClient struct {
	client    openai.Client
	model     string
	maxTokens int
}

func newOpenAI(opts Options) *openAIClient {
	referer := opts.Referer
	if referer == "" {
		referer = DefaultReferer
	}
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHeader("HTTP-Referer", referer),
		option.WithHeader("X-Title", title),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &openAIClient{
		client:    openai.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

func (c *openAIClient) Provider() string { return ProviderOpenAI }

func (c *openAIClient) Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error) {
	co := resolveCall(c.model, c.maxTokens, opts)

	params := openai.ChatCompletionNewParams{
		Model:    co.model,
		Messages: toOpenAIMessages(foldSystem(co.model, messages)),
	}
	if systemAsUserModels[co.model] {
		params.MaxCompletionTokens = openai.Int(int64(co.maxTokens))
	} else {
		params.MaxTokens = openai.Int(int64(co.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", classify(ProviderOpenAI, apiErr.StatusCode, err)
		}
		return "", classify(ProviderOpenAI, 0, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
