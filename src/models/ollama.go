package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// DefaultOllamaHost is used when no host is configured.
const DefaultOllamaHost = "http://localhost:11434"

// ---------------------------- Ollama -----------------------------------------

type OllamaLLM struct {
	Client       *ollama.Client
	Model        string
	PromptPrefix string
}

// NewOllamaLLM needs no credential; the timeout is enforced by the caller's
// context rather than the HTTP client.
func NewOllamaLLM(host, model, promptPrefix string) (*OllamaLLM, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	return &OllamaLLM{
		Client:       ollama.NewClient(u, http.DefaultClient),
		Model:        model,
		PromptPrefix: promptPrefix,
	}, nil
}

// Generate collects the streamed response into one string.
func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (any, error) {
	req := &ollama.GenerateRequest{
		Model:  o.Model,
		Prompt: withPrefix(o.PromptPrefix, prompt, "\n\n"),
	}

	var text strings.Builder
	if err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	}); err != nil {
		return nil, err
	}
	return text.String(), nil
}

var _ Agent = (*OllamaLLM)(nil)
