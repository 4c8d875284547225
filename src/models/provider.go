package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAPIKey is returned when a hosted provider has no credential.
var ErrMissingAPIKey = errors.New("models: missing API key")

// ProviderConfig selects and configures a generation backend.
type ProviderConfig struct {
	Provider     string // gemini, genai, openai, anthropic, ollama, dummy
	Model        string
	APIKey       string
	BaseURL      string // openai/anthropic endpoint override, ollama host
	PromptPrefix string
}

// CanonicalProvider folds provider aliases onto their canonical name.
func CanonicalProvider(name string) string {
	switch p := strings.ToLower(strings.TrimSpace(name)); p {
	case "google":
		return "gemini"
	case "claude":
		return "anthropic"
	default:
		return p
	}
}

// NeedsCredential reports whether provider authenticates with an API key.
func NeedsCredential(provider string) bool {
	switch CanonicalProvider(provider) {
	case "ollama", "dummy":
		return false
	default:
		return true
	}
}

// NewLLMProvider returns a concrete Agent.
func NewLLMProvider(ctx context.Context, cfg ProviderConfig) (Agent, error) {
	switch CanonicalProvider(cfg.Provider) {
	case "gemini":
		return NewGeminiLLM(ctx, cfg.APIKey, cfg.Model, cfg.PromptPrefix)
	case "genai":
		return NewGenAILLM(ctx, cfg.APIKey, cfg.Model, cfg.PromptPrefix)
	case "openai":
		return NewOpenAILLM(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.PromptPrefix)
	case "anthropic":
		return NewAnthropicLLM(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.PromptPrefix)
	case "ollama":
		return NewOllamaLLM(cfg.BaseURL, cfg.Model, cfg.PromptPrefix)
	case "dummy":
		return NewDummyLLM(cfg.PromptPrefix), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
