package models

import "errors"

// Error taxonomy shared across the ingestion and query pipelines.
// Components wrap these with fmt.Errorf("...: %w", ...) and callers
// classify with errors.Is.
var (
	// ErrValidation covers oversized or unsupported files.
	ErrValidation = errors.New("validation failed")
	// ErrExtraction covers unreadable or empty documents.
	ErrExtraction = errors.New("text extraction failed")
	// ErrIndexUnavailable means no index has been loaded or built yet.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrUpstreamUnavailable means the embedding/generation service is
	// unreachable or returned a non-success response.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedModelOutput means no structured record could be
	// extracted from a model reply.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrNoRelevantContext means retrieval returned nothing after filtering.
	ErrNoRelevantContext = errors.New("no relevant context")
)
