package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balcon-assistant/internal/models"
)

func contextChunks() []models.DocumentChunk {
	return []models.DocumentChunk{
		{Text: "Las faltas se justifican en 48 horas.", Meta: models.ChunkMeta{Filename: "reglamento.pdf", Category: "estudiantes"}},
		{Text: "Queda prohibido rendir exámenes fuera de fecha.", Meta: models.ChunkMeta{Filename: "reglamento.pdf", Category: "estudiantes"}},
		{Text: "Los docentes registran asistencia en el sistema.", Meta: models.ChunkMeta{Filename: "manual_docente.pdf", Category: "docentes"}},
	}
}

func TestAnswerGrounded(t *testing.T) {
	g := &stubGenerator{reply: `{
		"has_information": true, "need_contact": false,
		"response": "Tienes 48 horas para justificar una falta.",
		"sources": ["inventada_por_el_modelo.pdf"]
	}`}
	a := NewAnswerer(g)

	result := a.Answer(context.Background(), "cómo justifico una falta", "Estudiante", contextChunks())

	assert.True(t, result.HasInformation)
	require.NotNil(t, result.Response)
	assert.Contains(t, *result.Response, "48 horas")
	// model sources are discarded: the engine's own list wins
	assert.Equal(t, []string{"reglamento.pdf", "manual_docente.pdf"}, result.Sources)
}

func TestAnswerPromptCarriesContextAndRole(t *testing.T) {
	g := &stubGenerator{reply: `{"has_information": true, "need_contact": false, "response": "ok"}`}
	a := NewAnswerer(g)

	a.Answer(context.Background(), "pregunta", "Estudiante", contextChunks())

	assert.Contains(t, g.last, "[Fuente: reglamento.pdf]")
	assert.Contains(t, g.last, "USER ROLE: Estudiante")
	assert.Contains(t, g.last, "Las faltas se justifican")
}

func TestAnswerUngroundedBecomesEscalation(t *testing.T) {
	g := &stubGenerator{reply: `{"has_information": false, "need_contact": false, "response": null}`}
	a := NewAnswerer(g)

	result := a.Answer(context.Background(), "algo sin respuesta", "Visitante", contextChunks())

	assert.False(t, result.HasInformation)
	assert.True(t, result.NeedContact)
	require.NotNil(t, result.Response)
	assert.Equal(t, models.EscalationResponse, *result.Response)
}

func TestAnswerNullResponseBecomesEscalation(t *testing.T) {
	g := &stubGenerator{reply: `{"has_information": true, "need_contact": false, "response": null}`}
	a := NewAnswerer(g)

	result := a.Answer(context.Background(), "pregunta", "Visitante", contextChunks())
	assert.False(t, result.HasInformation)
	assert.True(t, result.NeedContact)
}

func TestAnswerUnparsableBecomesEscalation(t *testing.T) {
	g := &stubGenerator{reply: "no soy JSON"}
	a := NewAnswerer(g)

	result := a.Answer(context.Background(), "pregunta", "Visitante", contextChunks())
	assert.False(t, result.HasInformation)
	assert.True(t, result.NeedContact)
	assert.Equal(t, []string{}, result.Sources)
}

func TestAnswerUpstreamFailureBecomesEscalation(t *testing.T) {
	g := &stubGenerator{err: errors.New("timeout")}
	a := NewAnswerer(g)

	result := a.Answer(context.Background(), "pregunta", "Visitante", contextChunks())
	assert.False(t, result.HasInformation)
	assert.True(t, result.NeedContact)
}
