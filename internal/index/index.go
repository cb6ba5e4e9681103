// Package index owns the embedding index: an in-memory chromem-go
// collection backed by an on-disk snapshot. The snapshot is loaded once at
// startup and rewritten after each committed ingestion batch.
//
// Ingestion (writes) and query (reads) are serialized per instance with a
// RWMutex. A crash between Add and Save leaves the in-memory index ahead
// of the snapshot; the batch is recoverable only by retry.
package index

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"balcon-assistant/internal/config"
	"balcon-assistant/internal/models"
)

const compress = false

type Index struct {
	mu            sync.RWMutex
	db            *chromem.DB
	collection    *chromem.Collection
	snapshotPath  string
	encryptionKey string
}

// SearchHit pairs a reconstructed chunk with chromem's cosine similarity.
type SearchHit struct {
	Chunk      models.DocumentChunk
	Similarity float32
}

// Open builds the index, importing the snapshot when one exists on disk.
func Open(cfg *config.IndexConfig) (*Index, error) {
	db := chromem.NewDB()

	if _, err := os.Stat(cfg.Path); err == nil {
		if err := db.ImportFromFile(cfg.Path, cfg.EncryptionKey); err != nil {
			return nil, fmt.Errorf("import snapshot %s: %w", cfg.Path, err)
		}
		log.Info().Str("path", cfg.Path).Msg("index snapshot loaded")
	} else {
		log.Warn().Str("path", cfg.Path).Msg("no index snapshot found, starting empty")
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get/create collection: %w", err)
	}

	return &Index{
		db:            db,
		collection:    collection,
		snapshotPath:  cfg.Path,
		encryptionKey: cfg.EncryptionKey,
	}, nil
}

// Add stores embedded chunks. IDs must be unique per document; callers
// supply them along with the precomputed embeddings.
func (ix *Index) Add(ctx context.Context, ids []string, chunks []models.DocumentChunk, embeddings [][]float32) error {
	if len(ids) != len(chunks) || len(chunks) != len(embeddings) {
		return fmt.Errorf("add: ids/chunks/embeddings length mismatch")
	}
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        ids[i],
			Content:   chunk.Text,
			Metadata:  metadataFromChunk(chunk.Meta),
			Embedding: embeddings[i],
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Save rewrites the on-disk snapshot from the current in-memory state.
func (ix *Index) Save(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.db.ExportToFile(ix.snapshotPath, compress, ix.encryptionKey, ix.collection.Name); err != nil {
		return fmt.Errorf("export snapshot %s: %w", ix.snapshotPath, err)
	}
	return nil
}

// Search runs a nearest-neighbor query with a precomputed embedding,
// returning up to k hits. An empty index yields ErrIndexUnavailable.
func (ix *Index) Search(ctx context.Context, queryEmbedding []float32, k int) ([]SearchHit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	count := ix.collection.Count()
	if count == 0 {
		return nil, models.ErrIndexUnavailable
	}
	if k > count {
		k = count
	}

	results, err := ix.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	hits := make([]SearchHit, len(results))
	for i, res := range results {
		hits[i] = SearchHit{
			Chunk: models.DocumentChunk{
				Text: res.Content,
				Meta: chunkMetaFromMetadata(res.Metadata),
			},
			Similarity: res.Similarity,
		}
	}
	return hits, nil
}

// Count returns the number of stored chunks.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.collection.Count()
}

func metadataFromChunk(meta models.ChunkMeta) map[string]string {
	m := map[string]string{
		"source":       meta.Source,
		"filename":     meta.Filename,
		"file_type":    meta.FileType,
		"file_size":    strconv.FormatInt(meta.FileSize, 10),
		"word_count":   strconv.Itoa(meta.WordCount),
		"categoria":    meta.Category,
		"chunk_id":     strconv.Itoa(meta.ChunkIndex),
		"total_chunks": strconv.Itoa(meta.ChunkCount),
	}
	for k, v := range meta.Extra {
		// caller-supplied keys never shadow the fixed ones
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return m
}

func chunkMetaFromMetadata(m map[string]string) models.ChunkMeta {
	meta := models.ChunkMeta{
		Source:   m["source"],
		Filename: m["filename"],
		FileType: m["file_type"],
		Category: m["categoria"],
	}
	meta.FileSize, _ = strconv.ParseInt(m["file_size"], 10, 64)
	meta.WordCount, _ = strconv.Atoi(m["word_count"])
	meta.ChunkIndex, _ = strconv.Atoi(m["chunk_id"])
	meta.ChunkCount, _ = strconv.Atoi(m["total_chunks"])

	known := map[string]bool{
		"source": true, "filename": true, "file_type": true, "file_size": true,
		"word_count": true, "categoria": true, "chunk_id": true, "total_chunks": true,
	}
	for k, v := range m {
		if !known[k] {
			if meta.Extra == nil {
				meta.Extra = map[string]string{}
			}
			meta.Extra[k] = v
		}
	}
	return meta
}
