package reembed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/chatrag/ai/mock"
	"github.com/poiesic/chatrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockEmbedder returns an embedder producing the unnormalized vector {1, 2, 2}.
func newMockEmbedder() *mock.MockEmbedder {
	return &mock.MockEmbedder{
		EmbedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			result := make([][]float32, len(texts))
			for i := range texts {
				result[i] = []float32{1.0, 2.0, 2.0} // magnitude = 3.0
			}
			return result, nil
		},
	}
}

func listAll(t *testing.T, repo interface {
	ListDocuments(context.Context, string, int) ([]*core.StoredDocument, error)
}) []*core.StoredDocument {
	t.Helper()
	docs, err := repo.ListDocuments(context.Background(), "", 1000)
	require.NoError(t, err)
	return docs
}

func TestBatchProcessor_Process(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	addDocuments(t, repo, 2)

	ctx := context.Background()
	docs := listAll(t, repo)

	processor := NewBatchProcessor(repo, newMockEmbedder(), 3, 10*time.Millisecond, 3, false)
	require.NoError(t, processor.Process(ctx, docs))

	for _, doc := range listAll(t, repo) {
		assert.Equal(t, []float32{1, 2, 2}, doc.Embedding)
		assert.Equal(t, core.SourceGoogleChat, doc.Metadata.Source, "metadata should be preserved")
		assert.Contains(t, doc.Content, "test message")
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	embedder := newMockEmbedder()
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond, 0, false)
	require.NoError(t, processor.Process(context.Background(), nil))
	assert.Equal(t, 0, embedder.CallCount())
}

func TestBatchProcessor_EmbeddingError(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	addDocuments(t, repo, 2)
	docs := listAll(t, repo)

	embedder := &mock.MockEmbedder{
		EmbedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("permanent embedding error")
		},
	}

	processor := NewBatchProcessor(repo, embedder, 2, 1*time.Millisecond, 0, false)
	err := processor.Process(context.Background(), docs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permanent embedding error")
	assert.Equal(t, 2, embedder.CallCount())

	for _, doc := range listAll(t, repo) {
		assert.Equal(t, []float32{0.5, 0.5, 0.5}, doc.Embedding, "old vectors must be kept")
	}
}

func TestBatchProcessor_Retry(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	addDocuments(t, repo, 1)
	docs := listAll(t, repo)

	var attempts atomic.Int32
	embedder := &mock.MockEmbedder{
		EmbedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			if attempts.Add(1) < 3 {
				return nil, errors.New("transient error")
			}
			return [][]float32{{0, 3, 4}}, nil
		},
	}

	processor := NewBatchProcessor(repo, embedder, 3, 1*time.Millisecond, 3, false)
	require.NoError(t, processor.Process(context.Background(), docs))
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, []float32{0, 3, 4}, listAll(t, repo)[0].Embedding)
}

func TestBatchProcessor_ContextCancellation(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	addDocuments(t, repo, 1)
	docs := listAll(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(repo, newMockEmbedder(), 3, 10*time.Millisecond, 0, false)
	err := processor.Process(ctx, docs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchProcessor_VectorNormalization(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	addDocuments(t, repo, 1)
	docs := listAll(t, repo)

	processor := NewBatchProcessor(repo, newMockEmbedder(), 1, 0, 3, true)
	require.NoError(t, processor.Process(context.Background(), docs))

	vector := listAll(t, repo)[0].Embedding
	require.Len(t, vector, 3)
	assert.InDelta(t, 1.0/3.0, vector[0], 1e-6)
	assert.InDelta(t, 2.0/3.0, vector[1], 1e-6)
	assert.InDelta(t, 2.0/3.0, vector[2], 1e-6)
}

func TestBatchProcessor_DimensionMismatch(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	addDocuments(t, repo, 2)
	docs := listAll(t, repo)

	processor := NewBatchProcessor(repo, newMockEmbedder(), 1, 0, 768, false)
	err := processor.Process(context.Background(), docs)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	for _, doc := range listAll(t, repo) {
		assert.Len(t, doc.Embedding, 3, "nothing should be written")
	}
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	addDocuments(t, repo, 2)

	embedder := &mock.MockEmbedder{
		EmbedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 2, 3}}, nil
		},
	}
	processor := NewBatchProcessor(repo, embedder, 1, 0, 0, false)
	err := processor.Process(context.Background(), listAll(t, repo))
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}

func TestBatchProcessor_EmptyContent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	embedder := newMockEmbedder()
	processor := NewBatchProcessor(repo, embedder, 1, 0, 0, false)
	err := processor.Process(context.Background(), []*core.StoredDocument{{ID: "x_0", Content: "  "}})
	assert.ErrorIs(t, err, ErrEmptyDocument)
	assert.Equal(t, 0, embedder.CallCount())
}
