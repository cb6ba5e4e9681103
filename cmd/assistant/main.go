package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"balcon-assistant/internal/config"
	"balcon-assistant/internal/embedding"
	"balcon-assistant/internal/index"
	"balcon-assistant/internal/ingest"
	"balcon-assistant/internal/intent"
	"balcon-assistant/internal/llmclient"
	"balcon-assistant/internal/rag"
	"balcon-assistant/internal/registry"
	"balcon-assistant/internal/server"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	var configPath string
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "assistant",
		Short: "asistente virtual UNEMI (balcón de servicios)",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "ruta del archivo de configuración")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "logging de depuración")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "inicia el servidor HTTP del asistente",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "indexa los documentos organizados por carpeta de rol",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runBulkIngest(cfg)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "verifica el estado de Ollama y del modelo configurado",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			status := llmclient.Probe(cmd.Context(), cfg.Ollama.BaseURL, cfg.Ollama.Model)
			log.Info().
				Bool("ollama_connected", status.Connected).
				Bool("model_available", status.ModelAvailable).
				Str("model_configured", status.ModelConfigured).
				Strs("models", status.Models).
				Msg("estado de Ollama")
			if !status.Connected || !status.ModelAvailable {
				return fmt.Errorf("upstream no disponible: %s", status.Error)
			}
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, ingestCmd, checkCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("startup error")
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("config no encontrada, usando valores por defecto")
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Debug().Interface("config", cfg).Msg("config cargada")
	return cfg, nil
}

// buildIngestor wires the write side: index, embedder, sqlite ledger.
func buildIngestor(cfg *config.Config) (*ingest.Ingestor, *index.Index, *bun.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Index.Path), 0o755); err != nil {
		return nil, nil, nil, err
	}
	idx, err := index.Open(&cfg.Index)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open index: %w", err)
	}
	embedder, err := embedding.NewOllamaEmbedder(&cfg.Ollama)
	if err != nil {
		return nil, nil, nil, err
	}
	ledger, err := registry.Connect(cfg.Registry.Path, cfg.Registry.Debug)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open registry: %w", err)
	}
	if err := registry.Init(context.Background(), ledger); err != nil {
		return nil, nil, nil, fmt.Errorf("init registry: %w", err)
	}
	ingestor := ingest.NewIngestor(idx, embedder, ledger, ingest.Config{
		ChunkSize:     cfg.RAG.ChunkSize,
		ChunkOverlap:  cfg.RAG.ChunkOverlap,
		MaxFileSizeMB: cfg.RAG.MaxFileSizeMB,
	})
	return ingestor, idx, ledger, nil
}

func runServer(cfg *config.Config) error {
	ingestor, idx, ledger, err := buildIngestor(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	generator, err := llmclient.New(&cfg.Ollama)
	if err != nil {
		return err
	}
	embedder, err := embedding.NewOllamaEmbedder(&cfg.Ollama)
	if err != nil {
		return err
	}

	router := intent.NewRouter(generator, intent.ForVersion(cfg.RAG.ContractVersion))
	retriever := rag.NewRetriever(idx, embedder, rag.RetrievalConfig{
		SearchK:         cfg.RAG.SearchK,
		MinScore:        cfg.RAG.MinScore,
		SourceQuota:     cfg.RAG.SourceQuota,
		RegulationQuota: cfg.RAG.RegulationQuota,
		MinTotal:        2,
		MaxChunks:       cfg.RAG.MaxChunks,
	})
	pipeline := rag.NewPipeline(router, rag.NewReformulator(generator), retriever, rag.NewAnswerer(generator))

	engine := server.NewRouter(server.RouterDeps{
		Chat:      server.NewChatHandler(pipeline),
		Documents: server.NewDocumentHandler(ingestor, ledger),
		Ollama:    &cfg.Ollama,
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: engine}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Int("chunks", idx.Count()).Msg("servidor iniciado")
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
		log.Info().Msg("apagando servidor")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func runBulkIngest(cfg *config.Config) error {
	ingestor, idx, ledger, err := buildIngestor(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	summary, err := ingestor.BulkIngest(context.Background(), cfg.DocsDir)
	if err != nil {
		return err
	}
	log.Info().
		Int("procesados", summary.Processed).
		Int("errores", summary.Failed).
		Int("carpetas_creadas", summary.FoldersCreated).
		Int("chunks", summary.ChunksAdded).
		Int("total_en_indice", idx.Count()).
		Interface("por_categoria", summary.PerCategory).
		Msg("ingesta masiva finalizada")
	return nil
}
