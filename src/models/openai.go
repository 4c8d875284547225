package models

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

type OpenAILLM struct {
	Client       *openai.Client
	Model        string
	PromptPrefix string
}

// NewOpenAILLM builds a chat-completions client. baseURL may point at any
// OpenAI-compatible endpoint.
func NewOpenAILLM(apiKey, baseURL, model, promptPrefix string) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAILLM{
		Client:       openai.NewClientWithConfig(cfg),
		Model:        model,
		PromptPrefix: promptPrefix,
	}, nil
}

func (o *OpenAILLM) Generate(ctx context.Context, prompt string) (any, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: withPrefix(o.PromptPrefix, prompt, "\n"),
		}},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Agent = (*OpenAILLM)(nil)
