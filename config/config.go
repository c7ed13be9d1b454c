// Package config provides configuration loading for the neuraldocs server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
}

// Addr renders the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds the database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// AIConfig holds model endpoint settings. The API key is never read from
// the file; it comes from the NEURALDOCS_API_KEY environment variable.
type AIConfig struct {
	EmbeddingHost       string `yaml:"embedding_host"`
	ChatHost            string `yaml:"chat_host"`
	EmbeddingModel      string `yaml:"embedding_model"`
	StructurerModel     string `yaml:"structurer_model"`
	AnswerModel         string `yaml:"answer_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
}

// IngestionConfig holds chunking and job-delivery settings.
type IngestionConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	PoolSize     int `yaml:"pool_size"`
	MaxAttempts  int `yaml:"max_attempts"`
	FetchTimeout int `yaml:"fetch_timeout_seconds"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	TopK            int `yaml:"top_k"`
	MaxContextBytes int `yaml:"max_context_bytes"`
}

// Load reads and parses the config file at path and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			c.Ingestion.ChunkOverlap, c.Ingestion.ChunkSize)
	}
	if c.AI.EmbeddingDimensions < 0 {
		return fmt.Errorf("invalid embedding dimensions %d", c.AI.EmbeddingDimensions)
	}
	return nil
}
