package models

// AccessProfile is the set of document categories a session may read.
// It always contains CategoryGeneral.
type AccessProfile map[string]bool

// NewAccessProfile builds a profile from category names, forcing "general" in.
func NewAccessProfile(categories ...string) AccessProfile {
	p := AccessProfile{CategoryGeneral: true}
	for _, c := range categories {
		if c != "" {
			p[c] = true
		}
	}
	return p
}

// Allows reports whether the profile may read chunks of the given category.
func (p AccessProfile) Allows(category string) bool {
	if category == "" {
		// untagged chunks are treated as general
		return true
	}
	return p[category]
}

// Categories returns the profile as a plain slice, order unspecified.
func (p AccessProfile) Categories() []string {
	out := make([]string, 0, len(p))
	for c := range p {
		out = append(out, c)
	}
	return out
}

// ChunkMeta is the metadata attached to every indexed chunk.
type ChunkMeta struct {
	Source     string            `json:"source"`
	Filename   string            `json:"filename"`
	FileType   string            `json:"file_type"`
	FileSize   int64             `json:"file_size"`
	WordCount  int               `json:"word_count"`
	Category   string            `json:"categoria"`
	ChunkIndex int               `json:"chunk_id"`
	ChunkCount int               `json:"total_chunks"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// DocumentChunk is one overlapping slice of a document's extracted text,
// the unit stored in and retrieved from the embedding index.
type DocumentChunk struct {
	Text string
	Meta ChunkMeta
}

// RetrievalCandidate pairs a chunk with its normalized relevance score
// (higher is better).
type RetrievalCandidate struct {
	Chunk DocumentChunk
	Score float64
}

// Answer type values produced by the intent router.
const (
	AnswerInformational = "informational"
	AnswerOperational   = "operational"
	AnswerClarification = "clarification"
	AnswerGreeting      = "greeting"
	AnswerError         = "error"
)

// IntentResult is the normalized classification of one utterance.
// Created per request, never persisted.
type IntentResult struct {
	IntentCode        string         `json:"intent_code"`
	Action            string         `json:"accion"`
	Object            string         `json:"objeto"`
	Subject           string         `json:"asignatura,omitempty"`
	Detail            string         `json:"detalle,omitempty"`
	AnswerType        string         `json:"answer_type"`
	IsAmbiguous       bool           `json:"is_ambiguous"`
	ClarificationText string         `json:"clarification_prompt,omitempty"`
	AgentHandoff      bool           `json:"agent_handoff"`
	SystemResponse    string         `json:"system_response,omitempty"`
	MultiIntent       bool           `json:"multi_intent"`
	SubIntents        []IntentResult `json:"intents"`
	OriginalText      string         `json:"original_text"`
}

// AnswerResult is the grounded generation outcome for one turn.
type AnswerResult struct {
	HasInformation bool     `json:"has_information"`
	NeedContact    bool     `json:"need_contact"`
	Response       *string  `json:"response"`
	Sources        []string `json:"sources"`
}

// Turn response types returned over the chat endpoint.
const (
	TurnAgentHandoff  = "agent_handoff"
	TurnRAGResponse   = "rag_response"
	TurnClarification = "clarification"
	TurnSimpleText    = "simple_text"
)

// TurnResponse is the terminal payload of one chat turn.
type TurnResponse struct {
	Type           string        `json:"type"`
	Text           string        `json:"text"`
	Sources        []string      `json:"sources,omitempty"`
	NeedContact    *bool         `json:"need_contact,omitempty"`
	HasInformation *bool         `json:"has_information,omitempty"`
	IntentDebug    *IntentResult `json:"intent_debug,omitempty"`
}

// IngestOutcome is the per-file result of an ingestion attempt.
type IngestOutcome struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Size     int64  `json:"size"`
	FileType string `json:"type"`
}

// IngestReport aggregates one ingestion batch.
type IngestReport struct {
	FilesProcessed   int             `json:"files_processed"`
	TotalChunksAdded int             `json:"total_chunks_added"`
	Details          []IngestOutcome `json:"details"`
	Errors           []IngestError   `json:"errors"`
}

// IngestError reports one rejected file inside a batch.
type IngestError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}
