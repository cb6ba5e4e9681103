// Package rag implements the answering pipeline for one chat turn: query
// reformulation, role-filtered multi-query retrieval, reranking and
// grounded answer generation with escalation fallback.
package rag

import (
	"context"

	"github.com/rs/zerolog/log"

	"balcon-assistant/internal/intent"
	"balcon-assistant/internal/models"
	"balcon-assistant/internal/roles"
)

// Stream stage names, emitted in order before the terminal event.
const (
	StageClassifying = "classifying"
	StageSearching   = "searching"
	StageGenerating  = "generating"
)

// Event is one element of the streaming turn variant: zero or more status
// events followed by exactly one terminal event carrying the response.
type Event struct {
	Stage    string               `json:"stage,omitempty"`
	Terminal bool                 `json:"-"`
	Response *models.TurnResponse `json:"-"`
}

// Pipeline owns the per-turn control flow. All collaborators are injected
// once at startup; per-request state stays on the stack.
type Pipeline struct {
	router       *intent.Router
	reformulator *Reformulator
	retriever    *Retriever
	answerer     *Answerer
}

func NewPipeline(router *intent.Router, reformulator *Reformulator, retriever *Retriever, answerer *Answerer) *Pipeline {
	return &Pipeline{
		router:       router,
		reformulator: reformulator,
		retriever:    retriever,
		answerer:     answerer,
	}
}

// Run handles one turn and always produces a response object.
func (p *Pipeline) Run(ctx context.Context, message string, sessionData map[string]any) *models.TurnResponse {
	return p.run(ctx, message, sessionData, func(string) {})
}

// Stream is the streaming variant: ordered, forward-only status events,
// then exactly one terminal event. Nothing is emitted after the terminal
// one and the channel is closed.
func (p *Pipeline) Stream(ctx context.Context, message string, sessionData map[string]any) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		resp := p.run(ctx, message, sessionData, func(stage string) {
			ch <- Event{Stage: stage}
		})
		ch <- Event{Terminal: true, Response: resp}
	}()
	return ch
}

func (p *Pipeline) run(ctx context.Context, message string, sessionData map[string]any, emit func(stage string)) *models.TurnResponse {
	profile, roleLabel := roles.Resolve(sessionData)

	emit(StageClassifying)
	intentResult := p.router.Classify(ctx, message)

	switch intentResult.AnswerType {
	case models.AnswerGreeting:
		return &models.TurnResponse{
			Type:        models.TurnSimpleText,
			Text:        intentResult.SystemResponse,
			IntentDebug: intentResult,
		}
	case models.AnswerClarification:
		return &models.TurnResponse{
			Type:        models.TurnClarification,
			Text:        intentResult.ClarificationText,
			IntentDebug: intentResult,
		}
	case models.AnswerOperational:
		return &models.TurnResponse{
			Type:        models.TurnAgentHandoff,
			Text:        intentResult.SystemResponse,
			IntentDebug: intentResult,
		}
	}

	emit(StageSearching)
	queries := p.reformulator.Expand(ctx, message)
	chunks, err := p.retriever.Retrieve(ctx, queries, profile)
	if err != nil {
		log.Warn().Err(err).Str("rol", roleLabel).Msg("retrieval yielded no usable context")
		return escalationTurn(intentResult)
	}

	emit(StageGenerating)
	answer := p.answerer.Answer(ctx, message, roleLabel, chunks)

	text := ""
	if answer.Response != nil {
		text = *answer.Response
	}
	return &models.TurnResponse{
		Type:           models.TurnRAGResponse,
		Text:           text,
		Sources:        answer.Sources,
		NeedContact:    boolPtr(answer.NeedContact),
		HasInformation: boolPtr(answer.HasInformation),
		IntentDebug:    intentResult,
	}
}

func escalationTurn(intentResult *models.IntentResult) *models.TurnResponse {
	return &models.TurnResponse{
		Type:           models.TurnRAGResponse,
		Text:           models.EscalationResponse,
		Sources:        []string{},
		NeedContact:    boolPtr(true),
		HasInformation: boolPtr(false),
		IntentDebug:    intentResult,
	}
}

func boolPtr(b bool) *bool { return &b }
