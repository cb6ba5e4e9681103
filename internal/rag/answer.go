package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"balcon-assistant/internal/llmclient"
	"balcon-assistant/internal/models"
)

// Answerer produces a strictly-grounded answer from accepted chunks, with
// a deterministic escalation fallback.
type Answerer struct {
	generator llmclient.Generator
}

func NewAnswerer(generator llmclient.Generator) *Answerer {
	return &Answerer{generator: generator}
}

// Answer builds the context block, invokes the generation contract and
// post-processes the result. The model's "sources" are always discarded
// in favor of the engine's own list; an unparsable or ungrounded reply
// becomes the escalation response. Never returns an error.
func (a *Answerer) Answer(ctx context.Context, query, roleLabel string, chunks []models.DocumentChunk) models.AnswerResult {
	contextBlock, sources := buildContext(chunks)
	prompt := fmt.Sprintf(models.RAGPromptTemplate, roleLabel, contextBlock, query)

	raw, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("answer generation failed")
		return escalation(nil)
	}
	block, err := llmclient.ExtractJSON(raw)
	if err != nil {
		log.Warn().Err(err).Msg("no JSON in generation reply")
		return escalation(nil)
	}

	var result models.AnswerResult
	if err := json.Unmarshal([]byte(block), &result); err != nil {
		log.Warn().Err(err).Msg("unparsable generation reply")
		return escalation(nil)
	}

	// deterministic source list, first-appearance order
	result.Sources = sources

	if !result.HasInformation || result.Response == nil {
		return escalation(sources)
	}
	return result
}

func buildContext(chunks []models.DocumentChunk) (string, []string) {
	var sb strings.Builder
	seen := map[string]bool{}
	sources := []string{}
	for i, chunk := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[Fuente: %s]\n%s", chunk.Meta.Filename, chunk.Text))
		if !seen[chunk.Meta.Filename] {
			seen[chunk.Meta.Filename] = true
			sources = append(sources, chunk.Meta.Filename)
		}
	}
	return sb.String(), sources
}

func escalation(sources []string) models.AnswerResult {
	text := models.EscalationResponse
	if sources == nil {
		sources = []string{}
	}
	return models.AnswerResult{
		HasInformation: false,
		NeedContact:    true,
		Response:       &text,
		Sources:        sources,
	}
}
