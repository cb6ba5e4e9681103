package intent

import (
	"encoding/json"
	"fmt"

	"balcon-assistant/internal/llmclient"
	"balcon-assistant/internal/models"
)

// RawClassification is the closed schema accepted from the classifier.
// Only whitelisted fields survive; everything else the model emits is
// dropped on the floor.
type RawClassification struct {
	IntentCode    string              `json:"intent_code"`
	Action        string              `json:"accion"`
	Object        string              `json:"objeto"`
	Subject       string              `json:"asignatura"`
	Detail        string              `json:"detalle"`
	IsAmbiguous   bool                `json:"is_ambiguous"`
	Clarification string              `json:"clarification_prompt"`
	MultiIntent   bool                `json:"multi_intent"`
	Intents       []RawClassification `json:"intents"`
}

// Contract is the versioned instruction contract for the classifier. The
// classification rules evolved across iterations; each iteration is one
// implementation behind this interface instead of scattered branches.
type Contract interface {
	Version() string
	BuildPrompt(utterance string) string
	Parse(raw string) (*RawClassification, error)
}

// ForVersion returns the contract for a config-selected version,
// defaulting to the newest.
func ForVersion(version string) Contract {
	switch version {
	case "v1":
		return contractV1{}
	default:
		return contractV2{}
	}
}

const basePrompt = `YOU ARE A STRICT DATA EXTRACTOR.
Output JSON only.

VALID INTENT_CODES:
- "consultar_solicitudes_balcon" (Only for checking STATUS of requests)
- "consultar_datos_personales" (Only for name, email, id)
- "consultar_carrera_actual" (Only for 'what is my major')
- "consultar_roles_usuario" (Only for 'what is my role')
- "otro" (USE THIS FOR ALL OTHER ACTIONS: solicitar, justificar, inscribir, cambiar, anular, pagar)
`

const baseExamples = `
*** EXAMPLES (FOLLOW THIS PATTERN) ***

Input: "Quiero ver mis notas de calculo"
Output:
{
  "intent_code": "otro", "accion": "consultar", "objeto": "notas", "asignatura": "calculo", "multi_intent": false, "intents": []
}

Input: "Necesito justificar una falta y solicitar cambio de paralelo"
Output:
{
  "intent_code": "otro",
  "accion": "justificar",
  "objeto": "falta",
  "multi_intent": true,
  "intents": [
    {"intent_code": "otro", "accion": "justificar", "objeto": "falta"},
    {"intent_code": "otro", "accion": "solicitar", "objeto": "cambio de paralelo"}
  ]
}

Input: "Cual es mi carrera actual"
Output:
{
  "intent_code": "consultar_carrera_actual", "accion": "consultar", "objeto": "carrera", "multi_intent": false, "intents": []
}

*** END EXAMPLES ***

RULES:
1. If action is 'solicitar', 'cambiar', 'justificar' -> CODE IS ALWAYS "otro".
2. Do not invent new codes like "solicitar_cambio".
`

func parseClassification(raw string) (*RawClassification, error) {
	block, err := llmclient.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var data RawClassification
	if err := json.Unmarshal([]byte(block), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedModelOutput, err)
	}
	return &data, nil
}

// contractV1 is the first-iteration contract: no ambiguity detection.
type contractV1 struct{}

func (contractV1) Version() string { return "v1" }

func (contractV1) BuildPrompt(utterance string) string {
	schema := `
JSON SCHEMA:
{
  "intent_code": "string",
  "accion": "string (infinitive verb)",
  "objeto": "string (noun)",
  "asignatura": "string or null",
  "detalle": "string or null",
  "multi_intent": boolean,
  "intents": []
}
`
	return fmt.Sprintf("%s%s%s\nInput: %q\nOutput:", basePrompt, schema, baseExamples, utterance)
}

func (contractV1) Parse(raw string) (*RawClassification, error) {
	return parseClassification(raw)
}

// contractV2 adds ambiguity detection: the model must flag utterances that
// cannot be routed without more detail and propose the clarifying question.
type contractV2 struct{}

func (contractV2) Version() string { return "v2" }

func (contractV2) BuildPrompt(utterance string) string {
	schema := `
JSON SCHEMA:
{
  "intent_code": "string",
  "accion": "string (infinitive verb)",
  "objeto": "string (noun)",
  "asignatura": "string or null",
  "detalle": "string or null",
  "is_ambiguous": boolean,
  "clarification_prompt": "string or null",
  "multi_intent": boolean,
  "intents": []
}

AMBIGUITY RULE:
If the message states a situation without asking anything nor requesting an
action (e.g. "Tengo una falta"), set "is_ambiguous": true and write ONE short
clarifying question in Spanish in "clarification_prompt".
`
	return fmt.Sprintf("%s%s%s\nInput: %q\nOutput:", basePrompt, schema, baseExamples, utterance)
}

func (contractV2) Parse(raw string) (*RawClassification, error) {
	return parseClassification(raw)
}
