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

// Reformulator rewrites an informational query into regulation-vocabulary
// search variants.
type Reformulator struct {
	generator llmclient.Generator
}

func NewReformulator(generator llmclient.Generator) *Reformulator {
	return &Reformulator{generator: generator}
}

// Expand returns the deduplicated union of the model's variants and the
// original query. The original is always kept as a safety net; any
// failure collapses to it alone.
func (r *Reformulator) Expand(ctx context.Context, query string) []string {
	raw, err := r.generator.Generate(ctx, fmt.Sprintf(models.ExpansionPromptTemplate, query))
	if err != nil {
		log.Error().Err(err).Msg("query expansion failed")
		return []string{query}
	}
	block, err := llmclient.ExtractJSON(raw)
	if err != nil {
		log.Warn().Err(err).Msg("no JSON in expansion reply")
		return []string{query}
	}

	var payload struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		log.Warn().Err(err).Msg("unparsable expansion reply")
		return []string{query}
	}

	seen := map[string]bool{}
	var variants []string
	for _, v := range append(payload.Queries, query) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		variants = append(variants, v)
	}
	if len(variants) == 0 {
		return []string{query}
	}
	return variants
}
