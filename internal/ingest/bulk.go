package ingest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"balcon-assistant/internal/models"
)

// BulkSummary aggregates one bulk directory run.
type BulkSummary struct {
	Processed      int
	Failed         int
	FoldersCreated int
	ChunksAdded    int
	PerCategory    map[string]int
}

// BulkIngest walks docsDir, one subfolder per valid category, ingesting
// every supported file with its parent folder name as category. Missing
// category folders are created as empty placeholders. One snapshot write
// at the end.
func (ing *Ingestor) BulkIngest(ctx context.Context, docsDir string) (BulkSummary, error) {
	summary := BulkSummary{PerCategory: map[string]int{}}

	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return summary, err
	}

	for _, category := range models.ValidCategories {
		dir := filepath.Join(docsDir, category)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			log.Warn().Str("dir", dir).Msg("creando carpeta vacía de categoría")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return summary, err
			}
			summary.FoldersCreated++
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("no se pudo leer la carpeta")
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if !IsSupported(path) {
				continue
			}
			outcome, err := ing.IngestFile(ctx, path, category, nil)
			if err != nil {
				log.Error().Err(err).Str("file", entry.Name()).Str("categoria", category).
					Msg("error indexando documento")
				summary.Failed++
				continue
			}
			summary.Processed++
			summary.ChunksAdded += outcome.Chunks
			summary.PerCategory[category]++
		}
	}

	if summary.Processed > 0 {
		ing.Commit(ctx)
	}
	return summary, nil
}
