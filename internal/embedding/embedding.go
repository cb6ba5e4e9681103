// Package embedding constructs the shared embedder over the Ollama
// embedding model.
package embedding

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"balcon-assistant/internal/config"
)

// NewOllamaEmbedder builds an embedder bound to the configured embedding
// model. The returned value implements embeddings.Embedder and is shared
// read-only by ingestion and query.
func NewOllamaEmbedder(cfg *config.OllamaConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("init embedding LLM: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}
