package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/chatrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Ingestion.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Ingestion.Pacing)
	assert.Equal(t, 5, cfg.Retrieval.Limit)
	assert.Equal(t, core.DefaultDimensions, cfg.AI.Dimensions)
	assert.Equal(t, core.Euclidean, cfg.DistanceMeasure())
	assert.Zero(t, cfg.AI.Temperature)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Storage, cfg.Storage)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrag.yaml")
	data := `
storage:
  backend: firestore
  firestore:
    project: my-project
    collection: gchat_messages_v2
ingestion:
  pacing: 500ms
retrieval:
  distance_measure: cosine
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendFirestore, cfg.Storage.Backend)
	assert.Equal(t, "my-project", cfg.Storage.Firestore.Project)
	assert.Equal(t, 500*time.Millisecond, cfg.Ingestion.Pacing)
	assert.Equal(t, 5, cfg.Ingestion.BatchSize, "unset fields keep defaults")
	assert.Equal(t, core.Cosine, cfg.DistanceMeasure())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"malformed yaml", "storage: [", "invalid configuration"},
		{"unknown backend", "storage:\n  backend: mongo\n", "Storage.Backend must be one of"},
		{"firestore without project", "storage:\n  backend: firestore\n", "storage.firestore.project is required"},
		{"postgres without dsn", "storage:\n  backend: postgres\n", "storage.postgres.dsn is required"},
		{"bad batch size", "ingestion:\n  batch_size: 0\n", "Ingestion.BatchSize must be at least 1"},
		{"bad measure", "retrieval:\n  distance_measure: manhattan\n", "Retrieval.DistanceMeasure"},
		{"bad host", "ai:\n  embedding_host: not a url\n", "AI.EmbeddingHost must be a URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chatrag.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CHATRAG_STORAGE_BACKEND":  "postgres",
		"CHATRAG_POSTGRES_DSN":     "postgres://localhost/chatrag",
		"CHATRAG_BATCH_SIZE":       "10",
		"CHATRAG_PACING":           "0s",
		"CHATRAG_DIMENSIONS":       "not-a-number",
		"CHATRAG_EMBEDDING_MODEL":  "",
		"CHATRAG_DISTANCE_MEASURE": "dot_product",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	ApplyEnv(cfg, lookup)

	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/chatrag", cfg.Storage.Postgres.DSN)
	assert.Equal(t, 10, cfg.Ingestion.BatchSize)
	assert.Equal(t, time.Duration(0), cfg.Ingestion.Pacing)
	assert.Equal(t, core.DefaultDimensions, cfg.AI.Dimensions, "unparseable values are ignored")
	assert.Equal(t, Default().AI.EmbeddingModel, cfg.AI.EmbeddingModel, "empty values are ignored")
	assert.Equal(t, core.DotProduct, cfg.DistanceMeasure())
	require.NoError(t, cfg.Validate())
}

func TestLoadAppliesEnv(t *testing.T) {
	t.Setenv("CHATRAG_SERVER_ADDR", ":9999")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Retrieval.Domain = "BigQuery billing"
	cfg.Ingestion.Pacing = 1500 * time.Millisecond

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestProviderConfig(t *testing.T) {
	t.Setenv("TEST_CHATRAG_KEY", "sk-test")
	cfg := Default()
	cfg.AI.APIKeyEnv = "TEST_CHATRAG_KEY"
	cfg.AI.EmbeddingModel = "text-embedding-005"

	pc := cfg.ProviderConfig()
	assert.Equal(t, "sk-test", pc.APIKey)
	assert.Equal(t, "text-embedding-005", pc.EmbeddingModel)
	assert.Equal(t, cfg.AI.Dimensions, pc.Dimensions)

	cfg.AI.APIKeyEnv = ""
	assert.Equal(t, "none", cfg.ProviderConfig().APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHATRAG_TEST_DOTENV=from-file\n"), 0o644))
	t.Setenv("CHATRAG_TEST_DOTENV", "")
	os.Unsetenv("CHATRAG_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("CHATRAG_TEST_DOTENV"))
}
