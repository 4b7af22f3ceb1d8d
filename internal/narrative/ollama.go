package narrative

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// OllamaGenerator implements domain.Generator against an Ollama chat
// endpoint.
type OllamaGenerator struct {
	client *api.Client
	model  string
}

// NewOllamaGenerator creates a generator for the configured endpoint.
func NewOllamaGenerator(cfg domain.NarrativeConfig) (*OllamaGenerator, error) {
	base := cfg.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", base, err)
	}

	model := cfg.Model
	if model == "" {
		model = "llama3"
	}

	return &OllamaGenerator{
		client: api.NewClient(u, http.DefaultClient),
		model:  model,
	}, nil
}

// Generate sends the prompt as a single user message and returns the
// concatenated response. The caller owns timeout and retry policy.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
	}

	var out strings.Builder
	err := g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	return out.String(), nil
}
