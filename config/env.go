package config

import (
	"errors"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHATRAG_"

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides cfg from CHATRAG_* variables. Unparseable numbers are ignored
// and left for Validate to judge the file value.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("LOG_LEVEL", &cfg.LogLevel)

	str("EMBEDDING_HOST", &cfg.AI.EmbeddingHost)
	str("COMPLETION_HOST", &cfg.AI.CompletionHost)
	str("EMBEDDING_MODEL", &cfg.AI.EmbeddingModel)
	str("COMPLETION_MODEL", &cfg.AI.CompletionModel)
	integer("DIMENSIONS", &cfg.AI.Dimensions)
	str("API_KEY_ENV", &cfg.AI.APIKeyEnv)

	str("STORAGE_BACKEND", &cfg.Storage.Backend)
	str("BADGER_PATH", &cfg.Storage.Badger.Path)
	str("FIRESTORE_PROJECT", &cfg.Storage.Firestore.Project)
	str("FIRESTORE_DATABASE", &cfg.Storage.Firestore.Database)
	str("FIRESTORE_COLLECTION", &cfg.Storage.Firestore.Collection)
	str("POSTGRES_DSN", &cfg.Storage.Postgres.DSN)

	integer("BATCH_SIZE", &cfg.Ingestion.BatchSize)
	duration("PACING", &cfg.Ingestion.Pacing)

	integer("RETRIEVAL_LIMIT", &cfg.Retrieval.Limit)
	str("DISTANCE_MEASURE", &cfg.Retrieval.DistanceMeasure)
	str("DOMAIN", &cfg.Retrieval.Domain)

	str("GOOGLE_CREDENTIALS_FILE", &cfg.GoogleChat.CredentialsFile)
	str("GOOGLE_TOKEN_FILE", &cfg.GoogleChat.TokenFile)
	str("GOOGLE_CHAT_SPACE", &cfg.GoogleChat.Space)

	str("SERVER_ADDR", &cfg.Server.Addr)
}
