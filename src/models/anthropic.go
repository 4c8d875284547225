package models

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// AnthropicLLM uses the Messages API for single-turn completions.
type AnthropicLLM struct {
	Client       *anthropic.Client
	Model        string
	MaxTokens    int
	PromptPrefix string
}

func NewAnthropicLLM(apiKey, baseURL, model, promptPrefix string) (*AnthropicLLM, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(baseURL))
	}
	cl := anthropic.NewClient(opts...)
	return &AnthropicLLM{
		Client:       &cl,
		Model:        model,
		MaxTokens:    anthropicMaxTokens,
		PromptPrefix: promptPrefix,
	}, nil
}

// Generate returns the concatenated text blocks of the reply.
func (a *AnthropicLLM) Generate(ctx context.Context, prompt string) (any, error) {
	msg, err := a.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(withPrefix(a.PromptPrefix, prompt, "\n\n"))),
		},
	})
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}

var _ Agent = (*AnthropicLLM)(nil)
