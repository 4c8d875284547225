package models

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAILLM talks to Gemini through the unified google.golang.org/genai SDK.
type GenAILLM struct {
	Client       *genai.Client
	Model        string
	PromptPrefix string
}

func NewGenAILLM(ctx context.Context, apiKey, model, promptPrefix string) (*GenAILLM, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAILLM{Client: client, Model: model, PromptPrefix: promptPrefix}, nil
}

func (g *GenAILLM) Generate(ctx context.Context, prompt string) (any, error) {
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model,
		genai.Text(withPrefix(g.PromptPrefix, prompt, "\n\n")), nil)
	if err != nil {
		return nil, fmt.Errorf("genai generate: %w", err)
	}
	return resp.Text(), nil
}

var _ Agent = (*GenAILLM)(nil)
