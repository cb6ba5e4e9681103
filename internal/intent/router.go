// Package intent classifies a raw utterance into a structured intent and
// decides whether the turn is answered from documents, clarified, or
// handed to a human agent.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"balcon-assistant/internal/llmclient"
	"balcon-assistant/internal/models"
)

type Router struct {
	generator llmclient.Generator
	contract  Contract
}

func NewRouter(generator llmclient.Generator, contract Contract) *Router {
	return &Router{generator: generator, contract: contract}
}

// Classify never fails: classifier outages and unparsable replies degrade
// to an informational error result so the turn can still try retrieval.
func (r *Router) Classify(ctx context.Context, utterance string) *models.IntentResult {
	if isSimpleGreeting(utterance) {
		return &models.IntentResult{
			IntentCode:     models.IntentCodeGreeting,
			AnswerType:     models.AnswerGreeting,
			SystemResponse: models.GreetingResponse,
			OriginalText:   utterance,
			SubIntents:     []models.IntentResult{},
		}
	}

	raw, err := r.generator.Generate(ctx, r.contract.BuildPrompt(utterance))
	if err != nil {
		log.Error().Err(err).Str("contract", r.contract.Version()).Msg("intent classification failed")
		return errorResult(utterance)
	}
	data, err := r.contract.Parse(raw)
	if err != nil {
		log.Warn().Err(err).Str("reply_head", head(raw, 50)).Msg("unparsable classifier reply")
		return errorResult(utterance)
	}

	return normalize(data, utterance)
}

// normalize merges the untrusted classifier output into the fixed intent
// shape and applies the deterministic guardrails.
func normalize(data *RawClassification, originalText string) *models.IntentResult {
	result := &models.IntentResult{
		IntentCode:   models.IntentCodeOther,
		AnswerType:   models.AnswerInformational,
		OriginalText: originalText,
		SubIntents:   []models.IntentResult{},
	}
	copyFields(result, data)

	applyGuardrails(result, originalText)

	// clarification terminates the turn; sub-intents are moot then
	if result.AnswerType == models.AnswerClarification {
		result.SubIntents = []models.IntentResult{}
		return result
	}

	if data.MultiIntent && len(data.Intents) > 0 {
		result.MultiIntent = true
		for _, rawSub := range data.Intents {
			sub := models.IntentResult{
				IntentCode: models.IntentCodeOther,
				AnswerType: models.AnswerInformational,
				SubIntents: []models.IntentResult{},
			}
			// one level deep only: nested decompositions are ignored
			rawSub.MultiIntent = false
			rawSub.Intents = nil
			copyFields(&sub, &rawSub)
			applyGuardrails(&sub, "")
			result.SubIntents = append(result.SubIntents, sub)
		}
	}

	return result
}

func copyFields(dst *models.IntentResult, src *RawClassification) {
	if isValidCode(src.IntentCode) {
		dst.IntentCode = src.IntentCode
	}
	dst.Action = strings.TrimSpace(src.Action)
	dst.Object = strings.TrimSpace(src.Object)
	dst.Subject = strings.TrimSpace(src.Subject)
	dst.Detail = strings.TrimSpace(src.Detail)
	dst.IsAmbiguous = src.IsAmbiguous
	dst.ClarificationText = strings.TrimSpace(src.Clarification)
}

// applyGuardrails enforces, in order: question indicators force an
// informational answer; ambiguity forces clarification with a non-null
// prompt; operational intents get the handoff message synthesized.
func applyGuardrails(result *models.IntentResult, rawText string) {
	result.AnswerType = inferAnswerType(result.IntentCode, result.Action, rawText)

	if result.IsAmbiguous {
		result.AnswerType = models.AnswerClarification
		if result.ClarificationText == "" {
			result.ClarificationText = models.GenericClarification
		}
		result.SystemResponse = result.ClarificationText
		return
	}

	if result.AnswerType == models.AnswerOperational {
		result.AgentHandoff = true
		action := result.Action
		if action == "" {
			action = models.DefaultAction
		}
		object := result.Object
		if object == "" {
			object = models.DefaultObject
		}
		template := models.HandoffTemplate
		if rawText == "" {
			// sub-intent variant
			template = models.SubHandoffTemplate
		}
		result.SystemResponse = fmt.Sprintf(template, action, object)
	}
}

// inferAnswerType decides between documented answers (informational) and
// human handoff (operational). A "how do I...?" question stays
// informational even when its verb is operational.
func inferAnswerType(code, action, rawText string) string {
	switch code {
	case models.IntentCodeBalconRequests, models.IntentCodePersonalData,
		models.IntentCodeCurrentCareer, models.IntentCodeUserRoles:
		return models.AnswerInformational
	}

	action = strings.ToLower(strings.TrimSpace(action))
	text := strings.ToLower(strings.TrimSpace(rawText))

	for _, indicator := range models.QuestionIndicators {
		if strings.Contains(text, indicator) {
			return models.AnswerInformational
		}
	}
	for _, verb := range models.OperationalVerbs {
		if action != "" && strings.Contains(action, verb) {
			return models.AnswerOperational
		}
	}
	return models.AnswerInformational
}

func isValidCode(code string) bool {
	for _, valid := range models.ValidIntentCodes {
		if code == valid {
			return true
		}
	}
	return false
}

var punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// isSimpleGreeting reports whether the utterance is a bare greeting:
// under 3 tokens after punctuation stripping, one of them a greeting word.
func isSimpleGreeting(utterance string) bool {
	clean := punctuationRe.ReplaceAllString(strings.ToLower(utterance), "")
	tokens := strings.Fields(clean)
	if len(tokens) >= 3 {
		return false
	}
	for _, token := range tokens {
		for _, greeting := range models.GreetingTokens {
			if token == greeting {
				return true
			}
		}
	}
	return false
}

func errorResult(utterance string) *models.IntentResult {
	return &models.IntentResult{
		IntentCode:     models.IntentCodeOther,
		AnswerType:     models.AnswerInformational,
		SystemResponse: models.ApologyResponse,
		OriginalText:   utterance,
		SubIntents:     []models.IntentResult{},
	}
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
