package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type OllamaConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	Timeout        time.Duration `yaml:"timeout"`
}

type RAGConfig struct {
	ChunkSize     int     `yaml:"chunk_size"`
	ChunkOverlap  int     `yaml:"chunk_overlap"`
	MaxFileSizeMB int64   `yaml:"max_file_size_mb"`
	SearchK       int     `yaml:"search_k"`
	MinScore      float64 `yaml:"min_score"`
	SourceQuota   int     `yaml:"source_quota"`
	// RegulationQuota applies to sources whose filename matches the
	// regulation naming pattern.
	RegulationQuota int    `yaml:"regulation_quota"`
	MaxChunks       int    `yaml:"max_chunks"`
	ContractVersion string `yaml:"contract_version"`
}

type IndexConfig struct {
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	EncryptionKey string `yaml:"encryption_key"`
}

type RegistryConfig struct {
	Path  string `yaml:"path"`
	Debug bool   `yaml:"debug"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	RAG      RAGConfig      `yaml:"rag"`
	Index    IndexConfig    `yaml:"index"`
	Registry RegistryConfig `yaml:"registry"`
	DocsDir  string         `yaml:"docs_dir"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a fully defaulted config without reading a file.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = "llama3.2"
	}
	if c.Ollama.EmbeddingModel == "" {
		c.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = 60 * time.Second
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = 200
	}
	if c.RAG.MaxFileSizeMB <= 0 {
		c.RAG.MaxFileSizeMB = 50
	}
	if c.RAG.SearchK <= 0 {
		c.RAG.SearchK = 15
	}
	if c.RAG.MinScore <= 0 {
		c.RAG.MinScore = 0.55
	}
	if c.RAG.SourceQuota <= 0 {
		c.RAG.SourceQuota = 2
	}
	if c.RAG.RegulationQuota <= 0 {
		c.RAG.RegulationQuota = 4
	}
	if c.RAG.MaxChunks <= 0 {
		c.RAG.MaxChunks = 6
	}
	if c.RAG.ContractVersion == "" {
		c.RAG.ContractVersion = "v2"
	}
	if c.Index.Path == "" {
		c.Index.Path = "./data/index.chromem"
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "documentos_unemi"
	}
	if c.Registry.Path == "" {
		c.Registry.Path = "./data/registry.db"
	}
	if c.DocsDir == "" {
		c.DocsDir = "./documentos_unemi"
	}
}

func (c *Config) Validate() error {
	if c.RAG.SearchK < 10 || c.RAG.SearchK > 30 {
		return fmt.Errorf("rag.search_k must be within [10, 30], got %d", c.RAG.SearchK)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_size (%d)",
			c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	return nil
}
