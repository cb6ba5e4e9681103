package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"balcon-assistant/internal/ingest"
	"balcon-assistant/internal/models"
	"balcon-assistant/internal/registry"
)

type DocumentHandler struct {
	ingestor *ingest.Ingestor
	ledger   *bun.DB
}

func NewDocumentHandler(ingestor *ingest.Ingestor, ledger *bun.DB) *DocumentHandler {
	return &DocumentHandler{ingestor: ingestor, ledger: ledger}
}

// Upload ingests a multipart batch of files under one category, with a
// single index snapshot write for the whole batch.
func (h *DocumentHandler) Upload(c *gin.Context) {
	category := c.DefaultPostForm("category", models.CategoryGeneral)
	if !models.IsValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "categoría inválida: " + category})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sin archivos"})
		return
	}

	tmpDir, err := os.MkdirTemp("", "balcon-upload-*")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "almacenamiento temporal no disponible"})
		return
	}
	defer os.RemoveAll(tmpDir)

	report := models.IngestReport{Details: []models.IngestOutcome{}, Errors: []models.IngestError{}}
	var paths []string
	for _, file := range files {
		dst := filepath.Join(tmpDir, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, dst); err != nil {
			log.Error().Err(err).Str("file", file.Filename).Msg("upload save failed")
			report.Errors = append(report.Errors, models.IngestError{File: file.Filename, Error: err.Error()})
			continue
		}
		paths = append(paths, dst)
	}

	batch := h.ingestor.IngestBatch(c.Request.Context(), paths, category)
	report.FilesProcessed = batch.FilesProcessed
	report.TotalChunksAdded = batch.TotalChunksAdded
	report.Details = batch.Details
	report.Errors = append(report.Errors, batch.Errors...)

	c.JSON(http.StatusOK, report)
}

// List returns ingested files grouped by category.
func (h *DocumentHandler) List(c *gin.Context) {
	grouped, err := registry.ListByCategory(c.Request.Context(), h.ledger)
	if err != nil {
		log.Error().Err(err).Msg("registry listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo listar documentos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": grouped})
}
