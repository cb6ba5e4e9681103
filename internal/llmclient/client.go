// Package llmclient wraps the Ollama text-generation upstream. The client
// is built once at startup and shared; every call carries a timeout and
// failures surface as ErrUpstreamUnavailable, never a panic.
package llmclient

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"balcon-assistant/internal/config"
	"balcon-assistant/internal/models"
)

// Generator is the text-generation dependency the intent router and the
// answering pipeline consume. Satisfied by *Client and by test doubles.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Client struct {
	llm     *ollama.LLM
	timeout time.Duration
}

// New builds a JSON-mode Ollama client from config. Temperature is pinned
// to zero: classification and grounded answering must be deterministic.
func New(cfg *config.OllamaConfig) (*Client, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	return &Client{llm: llm, timeout: cfg.Timeout}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	return out, nil
}

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON pulls the first-to-last-brace block out of a model reply.
// Models in JSON mode still occasionally wrap output in prose or fences.
func ExtractJSON(raw string) (string, error) {
	block := jsonBlockRe.FindString(raw)
	if block == "" {
		return "", fmt.Errorf("%w: no JSON block in reply", models.ErrMalformedModelOutput)
	}
	return block, nil
}
