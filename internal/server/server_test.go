package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"balcon-assistant/internal/config"
	"balcon-assistant/internal/index"
	"balcon-assistant/internal/ingest"
	"balcon-assistant/internal/intent"
	"balcon-assistant/internal/models"
	"balcon-assistant/internal/rag"
	"balcon-assistant/internal/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// silentGenerator returns an empty reply; the routes under test either
// short-circuit before generation or tolerate unparsable output.
type silentGenerator struct{}

func (silentGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

type noopEmbedder struct{}

func (noopEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (noopEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func testRouter(t *testing.T, ollamaURL string) (*gin.Engine, *bun.DB) {
	t.Helper()

	idx, err := index.Open(&config.IndexConfig{
		Path:       filepath.Join(t.TempDir(), "index.chromem"),
		Collection: "test",
	})
	require.NoError(t, err)

	ledger, err := registry.Connect(filepath.Join(t.TempDir(), "registry.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	require.NoError(t, registry.Init(context.Background(), ledger))

	gen := silentGenerator{}
	pipeline := rag.NewPipeline(
		intent.NewRouter(gen, intent.ForVersion("v2")),
		rag.NewReformulator(gen),
		rag.NewRetriever(idx, noopEmbedder{}, rag.RetrievalConfig{
			SearchK: 15, MinScore: 0.55, SourceQuota: 2,
			RegulationQuota: 4, MinTotal: 2, MaxChunks: 6,
		}),
		rag.NewAnswerer(gen),
	)
	ingestor := ingest.NewIngestor(idx, noopEmbedder{}, ledger, ingest.Config{
		ChunkSize: 500, ChunkOverlap: 50, MaxFileSizeMB: 10,
	})

	r := NewRouter(RouterDeps{
		Chat:      NewChatHandler(pipeline),
		Documents: NewDocumentHandler(ingestor, ledger),
		Ollama:    &config.OllamaConfig{BaseURL: ollamaURL, Model: "llama3.2"},
	})
	return r, ledger
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "identity")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	r, _ := testRouter(t, "http://localhost:1")

	for _, body := range []string{``, `{}`, `{"message":""}`, `no es json`} {
		w := doJSON(t, r, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		assert.Contains(t, w.Body.String(), "Vacío")
	}
}

func TestChatGreetingTurn(t *testing.T) {
	r, _ := testRouter(t, "http://localhost:1")

	w := doJSON(t, r, http.MethodPost, "/api/chat", `{"message":"hola"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.TurnSimpleText, resp.Type)
	assert.Equal(t, models.GreetingResponse, resp.Text)
}

func TestChatStreamEmitsNDJSON(t *testing.T) {
	r, _ := testRouter(t, "http://localhost:1")

	w := doJSON(t, r, http.MethodPost, "/api/chat/stream", `{"message":"requisitos de becas"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)

	// every line but the last is a status event
	for _, line := range lines[:len(lines)-1] {
		var ev struct {
			Type  string `json:"type"`
			Stage string `json:"stage"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.Equal(t, "status", ev.Type)
		assert.NotEmpty(t, ev.Stage)
	}

	var final models.TurnResponse
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &final))
	assert.Equal(t, models.TurnRAGResponse, final.Type)
}

func TestUploadRejectsInvalidCategory(t *testing.T) {
	r, _ := testRouter(t, "http://localhost:1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("category", "piratas"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept-Encoding", "identity")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "categoría inválida")
}

func TestUploadRejectsEmptyBatch(t *testing.T) {
	r, _ := testRouter(t, "http://localhost:1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("category", "general"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept-Encoding", "identity")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sin archivos")
}

func TestUploadThenList(t *testing.T) {
	r, _ := testRouter(t, "http://localhost:1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("category", "estudiantes"))
	fw, err := mw.CreateFormFile("files", "becas.txt")
	require.NoError(t, err)
	fw.Write([]byte("Requisitos de la beca socioeconómica para estudiantes."))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept-Encoding", "identity")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var report models.IngestReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Empty(t, report.Errors)
	require.Len(t, report.Details, 1)
	assert.Equal(t, "becas.txt", report.Details[0].Filename)

	lw := doJSON(t, r, http.MethodGet, "/api/documents", "")
	require.Equal(t, http.StatusOK, lw.Code)
	assert.Contains(t, lw.Body.String(), "becas.txt")
	assert.Contains(t, lw.Body.String(), "estudiantes")
}

func TestHealthReportsUpstreamState(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3.2"}]}`))
	}))
	defer up.Close()

	r, _ := testRouter(t, up.URL)
	w := doJSON(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	down, _ := testRouter(t, "http://localhost:1")
	dw := doJSON(t, down, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, dw.Code)
	assert.Contains(t, dw.Body.String(), `"status":"error"`)
}
