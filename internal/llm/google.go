package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// googleClient dials a new genai client per completion; genai clients hold
// a gRPC connection that would otherwise need an explicit Close.
type googleClient struct {
	apiKey    string
	model     string
	maxTokens int
}

func newGoogle(opts Options) *googleClient {
	return &googleClient{
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

func (c *googleClient) Provider() string { return ProviderGoogle }

func (c *googleClient) Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error) {
	co := resolveCall(c.model, c.maxTokens, opts)
	system, turns := splitSystem(messages)
	if len(turns) == 0 {
		return "", fmt.Errorf("google: no user message")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", classifyGoogle(err)
	}
	defer client.Close()

	model := client.GenerativeModel(co.model)
	model.SetMaxOutputTokens(int32(co.maxTokens))
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		return "", classifyGoogle(err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func classifyGoogle(err error) error {
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return classify(ProviderGoogle, http.StatusUnauthorized, err)
	case codes.ResourceExhausted:
		return classify(ProviderGoogle, http.StatusTooManyRequests, err)
	case codes.Unavailable:
		return fmt.Errorf("%s: %w: %w", ProviderGoogle, ErrConnection, err)
	default:
		return classify(ProviderGoogle, 0, err)
	}
}
