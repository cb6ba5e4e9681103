// Package server exposes the assistant over HTTP: the chat turn (plain
// and streaming), document ingestion/listing and the health probe.
package server

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"balcon-assistant/internal/config"
	"balcon-assistant/internal/llmclient"
)

type RouterDeps struct {
	Chat      *ChatHandler
	Documents *DocumentHandler
	Ollama    *config.OllamaConfig
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", func(c *gin.Context) {
		status := llmclient.Probe(c.Request.Context(), deps.Ollama.BaseURL, deps.Ollama.Model)
		code := http.StatusOK
		if !status.Connected {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  statusWord(status.Connected),
			"service": "balcon_chatbot",
			"ollama":  status,
		})
	})

	api := r.Group("/api")
	api.POST("/chat", deps.Chat.Chat)
	api.POST("/chat/stream", deps.Chat.ChatStream)
	api.POST("/documents", deps.Documents.Upload)
	api.GET("/documents", deps.Documents.List)

	return r
}

func statusWord(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
