package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/chatrag/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeServer serves the two OpenAI endpoints the provider uses.
func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(i), 0.5, 1},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test-embed"})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-chat",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "  - Answer: deploys are frozen\n"},
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider(t *testing.T) {
	srv := newFakeServer(t)
	cfg := ai.NewConfig(
		ai.WithHost(srv.URL+"/v1"),
		ai.WithEmbeddingModel("test-embed"),
		ai.WithCompletionModel("test-chat"),
		ai.WithDimensions(3),
	)

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	defer provider.Close()

	ctx := context.Background()

	t.Run("embed single text", func(t *testing.T) {
		vec, err := provider.Embedder().EmbedText(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 0.5, 1}, vec)
	})

	t.Run("embed batch keeps order", func(t *testing.T) {
		vecs, err := provider.Embedder().EmbedTexts(ctx, []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, vecs, 2)
		assert.Equal(t, float32(1), vecs[1][0])
	})

	t.Run("complete trims whitespace", func(t *testing.T) {
		text, err := provider.CompletionModel().Complete(ctx, "question")
		require.NoError(t, err)
		assert.Equal(t, "- Answer: deploys are frozen", text)
	})
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := ai.NewConfig(ai.WithEmbeddingModel(""))

	_, err := NewProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EmbeddingModel")
}

func TestCompletionModel_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"backend unavailable"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	model, err := NewCompletionModel(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	_, err = model.Complete(context.Background(), "question")
	assert.Error(t, err)
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{}}},
			"model":  "test-embed",
		})
	}))
	defer srv.Close()

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL + "/v1")))
	require.NoError(t, err)

	_, err = embedder.EmbedText(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}
