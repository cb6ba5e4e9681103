package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balcon-assistant/internal/config"
	"balcon-assistant/internal/models"
)

func testIndexConfig(t *testing.T) *config.IndexConfig {
	t.Helper()
	return &config.IndexConfig{
		Path:       filepath.Join(t.TempDir(), "index.chromem"),
		Collection: "documentos_test",
	}
}

func sampleChunk(text, filename, category string) models.DocumentChunk {
	return models.DocumentChunk{
		Text: text,
		Meta: models.ChunkMeta{
			Source:     "/docs/" + filename,
			Filename:   filename,
			FileType:   ".pdf",
			FileSize:   2048,
			WordCount:  12,
			Category:   category,
			ChunkIndex: 0,
			ChunkCount: 1,
		},
	}
}

func TestOpenWithoutSnapshotStartsEmpty(t *testing.T) {
	ix, err := Open(testIndexConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Count())
}

func TestSearchEmptyIndexUnavailable(t *testing.T) {
	ix, err := Open(testIndexConfig(t))
	require.NoError(t, err)

	_, err = ix.Search(context.Background(), []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, models.ErrIndexUnavailable)
}

func TestAddRejectsLengthMismatch(t *testing.T) {
	ix, err := Open(testIndexConfig(t))
	require.NoError(t, err)

	err = ix.Add(context.Background(),
		[]string{"a", "b"},
		[]models.DocumentChunk{sampleChunk("uno", "a.pdf", "general")},
		[][]float32{{1, 0, 0}},
	)
	assert.Error(t, err)
}

func TestAddAndSearchRanksByProximity(t *testing.T) {
	ix, err := Open(testIndexConfig(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx,
		[]string{"c1", "c2", "c3"},
		[]models.DocumentChunk{
			sampleChunk("sobre matrículas", "matriculas.pdf", "general"),
			sampleChunk("sobre becas", "becas.pdf", "estudiantes"),
			sampleChunk("sobre grados", "grados.pdf", "estudiantes"),
		},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	))
	require.Equal(t, 3, ix.Count())

	hits, err := ix.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "sobre matrículas", hits[0].Chunk.Text)
	assert.InDelta(t, 1.0, float64(hits[0].Similarity), 1e-4)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestSearchClampsKToCount(t *testing.T) {
	ix, err := Open(testIndexConfig(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx,
		[]string{"solo"},
		[]models.DocumentChunk{sampleChunk("único", "unico.pdf", "general")},
		[][]float32{{1, 0, 0}},
	))

	hits, err := ix.Search(ctx, []float32{1, 0, 0}, 15)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestMetadataSurvivesRoundTrip(t *testing.T) {
	ix, err := Open(testIndexConfig(t))
	require.NoError(t, err)
	ctx := context.Background()

	chunk := sampleChunk("texto íntegro", "reglamento.pdf", "estudiantes")
	chunk.Meta.ChunkIndex = 3
	chunk.Meta.ChunkCount = 7
	chunk.Meta.Extra = map[string]string{
		"sheet": "Hoja1",
		// caller keys never shadow the fixed schema
		"categoria": "docentes",
	}

	require.NoError(t, ix.Add(ctx, []string{"c1"}, []models.DocumentChunk{chunk}, [][]float32{{0, 1, 0}}))

	hits, err := ix.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	got := hits[0].Chunk.Meta
	assert.Equal(t, "reglamento.pdf", got.Filename)
	assert.Equal(t, "estudiantes", got.Category)
	assert.Equal(t, int64(2048), got.FileSize)
	assert.Equal(t, 12, got.WordCount)
	assert.Equal(t, 3, got.ChunkIndex)
	assert.Equal(t, 7, got.ChunkCount)
	assert.Equal(t, "Hoja1", got.Extra["sheet"])
	assert.NotContains(t, got.Extra, "categoria")
}

func TestSaveAndReloadSnapshot(t *testing.T) {
	cfg := testIndexConfig(t)
	ctx := context.Background()

	ix, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx,
		[]string{"c1", "c2"},
		[]models.DocumentChunk{
			sampleChunk("primero", "a.pdf", "general"),
			sampleChunk("segundo", "b.pdf", "docentes"),
		},
		[][]float32{{1, 0, 0}, {0, 1, 0}},
	))
	require.NoError(t, ix.Save(ctx))

	reloaded, err := Open(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Count())

	hits, err := reloaded.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "segundo", hits[0].Chunk.Text)
	assert.Equal(t, "docentes", hits[0].Chunk.Meta.Category)
}
