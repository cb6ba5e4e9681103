// Package ingest populates the embedding index: text extraction per
// format, overlapping chunking with cascading separators, role tagging
// and deferred snapshot persistence for multi-file batches.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/uptrace/bun"

	"balcon-assistant/internal/models"
	"balcon-assistant/internal/registry"
)

// Separators is the cascading priority list: paragraph break, line break,
// sentence boundary, space, character.
var Separators = []string{"\n\n", "\n", ". ", " ", ""}

// Store is the slice of the index the ingestor writes to.
type Store interface {
	Add(ctx context.Context, ids []string, chunks []models.DocumentChunk, embeddings [][]float32) error
	Save(ctx context.Context) error
}

type Config struct {
	ChunkSize     int
	ChunkOverlap  int
	MaxFileSizeMB int64
}

type Ingestor struct {
	store    Store
	embedder embeddings.Embedder
	ledger   *bun.DB // optional
	cfg      Config
}

func NewIngestor(store Store, embedder embeddings.Embedder, ledger *bun.DB, cfg Config) *Ingestor {
	return &Ingestor{store: store, embedder: embedder, ledger: ledger, cfg: cfg}
}

// SplitText applies the recursive cascading-separator splitter: a piece
// still over the size limit is re-split on the next separator in priority
// order, down to single characters.
func SplitText(text string, chunkSize, chunkOverlap int) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(Separators),
	)
	return splitter.SplitText(text)
}

// ChunkDocument extracts, splits and tags one file without touching the
// index. The category is re-asserted on every chunk after the split.
func (ing *Ingestor) ChunkDocument(path, category string, extra map[string]string) ([]models.DocumentChunk, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: documento no encontrado: %s", models.ErrValidation, path)
	}
	maxBytes := ing.cfg.MaxFileSizeMB * 1024 * 1024
	if info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: documento muy grande: %.2fMB (máximo: %dMB)",
			models.ErrValidation, float64(info.Size())/(1024*1024), ing.cfg.MaxFileSizeMB)
	}
	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: formato no soportado: %s (válidos: %s)",
			models.ErrValidation, filepath.Ext(path), strings.Join(SupportedFormats, ", "))
	}

	text, err := ExtractText(path)
	if err != nil {
		return nil, err
	}

	pieces, err := SplitText(text, ing.cfg.ChunkSize, ing.cfg.ChunkOverlap)
	if err != nil || len(pieces) == 0 {
		return nil, fmt.Errorf("%w: no se pudieron generar chunks de %s", models.ErrExtraction, filepath.Base(path))
	}

	meta := models.ChunkMeta{
		Source:    path,
		Filename:  filepath.Base(path),
		FileType:  strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		FileSize:  info.Size(),
		WordCount: len(strings.Fields(text)),
		Category:  category,
		Extra:     extra,
	}

	chunks := make([]models.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		m := meta
		m.ChunkIndex = i
		m.ChunkCount = len(pieces)
		m.Category = category // must survive the split regardless
		chunks[i] = models.DocumentChunk{Text: piece, Meta: m}
	}
	return chunks, nil
}

// IngestFile processes one file end to end and adds its chunks to the
// index. Persistence is deferred: call Commit after the batch. Failures
// are reported per file and never abort a batch.
func (ing *Ingestor) IngestFile(ctx context.Context, path, category string, extra map[string]string) (models.IngestOutcome, error) {
	chunks, err := ing.ChunkDocument(path, category, extra)
	if err != nil {
		return models.IngestOutcome{}, err
	}

	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = uuid.NewString()
	}
	vectors, err := ing.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return models.IngestOutcome{}, fmt.Errorf("%w: embed chunks: %v", models.ErrUpstreamUnavailable, err)
	}

	if err := ing.store.Add(ctx, ids, chunks, vectors); err != nil {
		return models.IngestOutcome{}, err
	}

	outcome := models.IngestOutcome{
		Filename: chunks[0].Meta.Filename,
		Chunks:   len(chunks),
		Size:     chunks[0].Meta.FileSize,
		FileType: chunks[0].Meta.FileType,
	}

	if ing.ledger != nil {
		row := &registry.IngestedFile{
			Filename: outcome.Filename,
			Category: category,
			FileType: outcome.FileType,
			FileSize: outcome.Size,
			Chunks:   outcome.Chunks,
		}
		if err := registry.Record(ctx, ing.ledger, row); err != nil {
			log.Error().Err(err).Str("file", outcome.Filename).Msg("registry record failed")
		}
	}

	log.Info().Str("file", outcome.Filename).Str("categoria", category).
		Int("chunks", outcome.Chunks).Msg("documento indexado")
	return outcome, nil
}

// IngestBatch ingests several files under one category with a single
// snapshot write at the end.
func (ing *Ingestor) IngestBatch(ctx context.Context, paths []string, category string) models.IngestReport {
	report := models.IngestReport{Details: []models.IngestOutcome{}, Errors: []models.IngestError{}}
	for _, path := range paths {
		outcome, err := ing.IngestFile(ctx, path, category, nil)
		if err != nil {
			report.Errors = append(report.Errors, models.IngestError{
				File: filepath.Base(path), Error: err.Error(),
			})
			continue
		}
		report.FilesProcessed++
		report.TotalChunksAdded += outcome.Chunks
		report.Details = append(report.Details, outcome)
	}
	if report.FilesProcessed > 0 {
		ing.Commit(ctx)
	}
	return report
}

// Commit rewrites the index snapshot. A failure after a successful
// in-memory add is logged, not rolled back; the batch is recoverable only
// by retry.
func (ing *Ingestor) Commit(ctx context.Context) {
	if err := ing.store.Save(ctx); err != nil {
		log.Error().Err(err).Msg("index snapshot write failed, in-memory state kept")
	}
}
