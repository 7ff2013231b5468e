// Package config loads the chatrag application configuration from YAML,
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/chatrag/ai"
	"github.com/poiesic/chatrag/core"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendBadger    = "badger"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// AIConfig configures the OpenAI-compatible embedding and completion services.
type AIConfig struct {
	EmbeddingHost   string  `yaml:"embedding_host" validate:"required,url"`
	CompletionHost  string  `yaml:"completion_host" validate:"required,url"`
	EmbeddingModel  string  `yaml:"embedding_model" validate:"required"`
	CompletionModel string  `yaml:"completion_model" validate:"required"`
	Dimensions      int     `yaml:"dimensions" validate:"gt=0"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	Temperature     float64 `yaml:"temperature" validate:"gte=0,lte=2"`

	// EmbedRateLimit caps embedding calls per second; 0 disables limiting.
	EmbedRateLimit float64       `yaml:"embed_rate_limit" validate:"gte=0"`
	EmbedRetries   int           `yaml:"embed_retries" validate:"gte=1"`
	EmbedRetryWait time.Duration `yaml:"embed_retry_wait" validate:"gte=0"`
}

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	Path string `yaml:"path"`
}

// FirestoreConfig configures the Cloud Firestore store.
type FirestoreConfig struct {
	Project              string `yaml:"project"`
	Database             string `yaml:"database"`
	Collection           string `yaml:"collection"`
	CheckpointCollection string `yaml:"checkpoint_collection"`
	CredentialsFile      string `yaml:"credentials_file"`
}

// PostgresConfig configures the PostgreSQL + pgvector store.
type PostgresConfig struct {
	DSN              string `yaml:"dsn"`
	DocumentsTable   string `yaml:"documents_table"`
	CheckpointsTable string `yaml:"checkpoints_table"`
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	Backend   string          `yaml:"backend" validate:"oneof=badger firestore postgres"`
	Badger    BadgerConfig    `yaml:"badger"`
	Firestore FirestoreConfig `yaml:"firestore"`
	Postgres  PostgresConfig  `yaml:"postgres"`
}

// IngestionConfig configures the ingestion pipeline.
type IngestionConfig struct {
	BatchSize        int           `yaml:"batch_size" validate:"gte=1"`
	Pacing           time.Duration `yaml:"pacing" validate:"gte=0"`
	PoolSize         int           `yaml:"pool_size" validate:"gte=1"`
	UpsertRetries    int           `yaml:"upsert_retries" validate:"gte=1"`
	UpsertRetryDelay time.Duration `yaml:"upsert_retry_delay" validate:"gte=0"`
	Host             string        `yaml:"host"`
}

// RetrievalConfig configures retrieval and answering.
type RetrievalConfig struct {
	Limit           int    `yaml:"limit" validate:"gte=1,lte=100"`
	DistanceMeasure string `yaml:"distance_measure" validate:"oneof=euclidean cosine dot_product"`
	Domain          string `yaml:"domain"`
}

// GoogleChatConfig configures message extraction from Google Chat.
type GoogleChatConfig struct {
	CredentialsFile string  `yaml:"credentials_file"`
	TokenFile       string  `yaml:"token_file"`
	Space           string  `yaml:"space"`
	PageSize        int     `yaml:"page_size" validate:"gte=1,lte=1000"`
	RateLimit       float64 `yaml:"rate_limit" validate:"gt=0"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

// ReembedConfig configures re-embedding.
type ReembedConfig struct {
	BatchSize  int           `yaml:"batch_size" validate:"gte=1"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=1"`
	RetryDelay time.Duration `yaml:"retry_delay" validate:"gte=0"`
	Normalize  bool          `yaml:"normalize"`
}

// Config is the root application configuration.
type Config struct {
	LogLevel   string           `yaml:"log_level" validate:"oneof=debug info warn error"`
	AI         AIConfig         `yaml:"ai"`
	Storage    StorageConfig    `yaml:"storage"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	GoogleChat GoogleChatConfig `yaml:"google_chat"`
	Server     ServerConfig     `yaml:"server"`
	Reembed    ReembedConfig    `yaml:"reembed"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		LogLevel: "info",
		AI: AIConfig{
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			CompletionHost:  aiDefaults.CompletionHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			CompletionModel: aiDefaults.CompletionModel,
			Dimensions:      aiDefaults.Dimensions,
			APIKeyEnv:       "OPENAI_API_KEY",
			EmbedRetries:    3,
			EmbedRetryWait:  500 * time.Millisecond,
		},
		Storage: StorageConfig{
			Backend: BackendBadger,
			Badger:  BadgerConfig{Path: "chatrag.db"},
		},
		Ingestion: IngestionConfig{
			BatchSize:        5,
			Pacing:           2 * time.Second,
			PoolSize:         5,
			UpsertRetries:    3,
			UpsertRetryDelay: 500 * time.Millisecond,
		},
		Retrieval: RetrievalConfig{
			Limit:           5,
			DistanceMeasure: core.Euclidean.String(),
		},
		GoogleChat: GoogleChatConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			PageSize:        1000,
			RateLimit:       5,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Reembed: ReembedConfig{
			BatchSize:  100,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
	}
}

// Load reads the config at path, applies CHATRAG_* environment overrides
// and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	ApplyEnv(cfg, os.LookupEnv)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultPath returns ./chatrag.yaml if it exists, else ~/.config/chatrag/config.yaml.
func DefaultPath() string {
	const local = "chatrag.yaml"
	if _, err := os.Stat(local); err == nil {
		return local
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return local
	}
	return filepath.Join(home, ".config", "chatrag", "config.yaml")
}

// ProviderConfig builds the AI provider configuration.
// The API key is read from the environment variable named by APIKeyEnv.
func (c *Config) ProviderConfig() *ai.Config {
	key := ""
	if c.AI.APIKeyEnv != "" {
		key = os.Getenv(c.AI.APIKeyEnv)
	}
	if key == "" {
		key = "none"
	}
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithCompletionHost(c.AI.CompletionHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithCompletionModel(c.AI.CompletionModel),
		ai.WithDimensions(c.AI.Dimensions),
		ai.WithAPIKey(key),
		ai.WithTemperature(c.AI.Temperature),
	)
}

// DistanceMeasure returns the parsed retrieval distance measure.
func (c *Config) DistanceMeasure() core.DistanceMeasure {
	m, err := core.ParseDistanceMeasure(c.Retrieval.DistanceMeasure)
	if err != nil {
		return core.Euclidean
	}
	return m
}

// applyDefaults fills values a partial file may have zeroed.
func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendBadger
	}
	if cfg.Storage.Backend == BackendBadger && cfg.Storage.Badger.Path == "" {
		cfg.Storage.Badger.Path = "chatrag.db"
	}
	if cfg.Retrieval.DistanceMeasure == "" {
		cfg.Retrieval.DistanceMeasure = core.Euclidean.String()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
