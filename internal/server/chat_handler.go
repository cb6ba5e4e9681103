package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"balcon-assistant/internal/rag"
)

type ChatHandler struct {
	pipeline *rag.Pipeline
}

func NewChatHandler(pipeline *rag.Pipeline) *ChatHandler {
	return &ChatHandler{pipeline: pipeline}
}

type chatRequest struct {
	Message     string         `json:"message"`
	SessionData map[string]any `json:"session_data"`
}

// Chat handles one turn and returns a single JSON response object.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vacío"})
		return
	}
	resp := h.pipeline.Run(c.Request.Context(), req.Message, req.SessionData)
	c.JSON(http.StatusOK, resp)
}

// ChatStream handles one turn as newline-delimited JSON: status events
// followed by exactly one final response object.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vacío"})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)

	writeLine := func(v any) {
		line, err := json.Marshal(v)
		if err != nil {
			log.Error().Err(err).Msg("stream event marshal failed")
			return
		}
		c.Writer.Write(append(line, '\n'))
		if flusher != nil {
			flusher.Flush()
		}
	}

	for ev := range h.pipeline.Stream(c.Request.Context(), req.Message, req.SessionData) {
		if ev.Terminal {
			writeLine(ev.Response)
			return
		}
		writeLine(gin.H{"type": "status", "stage": ev.Stage})
	}
}
