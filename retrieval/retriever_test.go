package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/poiesic/chatrag/ai/mock"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/embedding"
	"github.com/poiesic/chatrag/storage"
	"github.com/poiesic/chatrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 8

func setupTest(t *testing.T) (storage.DocumentRepository, *mock.MockEmbedder, *embedding.Gateway) {
	t.Helper()
	docRepo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		docRepo.Close()
		backend.Close()
	})

	embedder := &mock.MockEmbedder{Dimensions: testDims}
	gateway, err := embedding.NewGateway(embedder, embedding.WithDimensions(testDims))
	require.NoError(t, err)
	t.Cleanup(gateway.Release)

	return docRepo, embedder, gateway
}

func storeTexts(t *testing.T, repo storage.DocumentRepository, texts ...string) {
	t.Helper()
	for i, text := range texts {
		err := repo.Upsert(context.Background(), &core.StoredDocument{
			ID:        core.DocumentID(fmt.Sprintf("https://chat.google.com/room/S/t/%d", i), i, text),
			URI:       fmt.Sprintf("https://chat.google.com/room/S/t/%d", i),
			Content:   text,
			Embedding: mock.DeterministicVector(text, testDims),
		})
		require.NoError(t, err)
	}
}

func TestNewRetriever(t *testing.T) {
	repo, _, gateway := setupTest(t)

	t.Run("valid configuration", func(t *testing.T) {
		r, err := NewRetriever(repo, gateway)
		require.NoError(t, err)
		assert.Equal(t, core.Euclidean, r.DistanceMeasure())
		assert.Equal(t, DefaultLimit, r.defaultLimit)
	})

	t.Run("with options", func(t *testing.T) {
		r, err := NewRetriever(repo, gateway,
			WithDistanceMeasure(core.Cosine),
			WithDefaultLimit(3),
			WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.Equal(t, core.Cosine, r.DistanceMeasure())
		assert.Equal(t, 3, r.defaultLimit)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		r, err := NewRetriever(repo, gateway, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, r.logger)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewRetriever(repo, gateway, WithDefaultLimit(0))
		assert.ErrorIs(t, err, ErrInvalidLimit)

		_, err = NewRetriever(repo, gateway, WithDistanceMeasure(core.DistanceMeasure(42)))
		assert.ErrorIs(t, err, core.ErrUnknownDistanceMeasure)
	})

	t.Run("nil dependencies", func(t *testing.T) {
		_, err := NewRetriever(nil, gateway)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)

		_, err = NewRetriever(repo, nil)
		assert.Equal(t, ErrGatewayRequired, err)
	})
}

func TestRetrieve_EmptyStore(t *testing.T) {
	repo, embedder, gateway := setupTest(t)
	r, err := NewRetriever(repo, gateway)
	require.NoError(t, err)

	bundle := r.Retrieve(context.Background(), "why did the PDT fail?", 5)
	assert.Equal(t, core.BundleNoDocuments, bundle.Status)
	assert.Empty(t, bundle.Items)
	assert.NoError(t, bundle.Err)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestRetrieve_ExactMatchFirst(t *testing.T) {
	repo, _, gateway := setupTest(t)
	storeTexts(t, repo,
		"PDT build failed on the orders explore",
		"System Activity shows slow queries",
		"The schedule for the daily dashboard was disabled",
	)

	for _, measure := range []core.DistanceMeasure{core.Euclidean, core.Cosine} {
		t.Run(measure.String(), func(t *testing.T) {
			r, err := NewRetriever(repo, gateway, WithDistanceMeasure(measure))
			require.NoError(t, err)

			bundle := r.Retrieve(context.Background(), "System Activity shows slow queries", 3)
			require.Equal(t, core.BundleOK, bundle.Status)
			require.Len(t, bundle.Items, 3)
			assert.Equal(t, "System Activity shows slow queries", bundle.Items[0].Content)
			assert.InDelta(t, 0, bundle.Items[0].Distance, 1e-6)
			assert.Equal(t, "https://chat.google.com/room/S/t/1", bundle.Items[0].URI)

			for i := 1; i < len(bundle.Items); i++ {
				assert.LessOrEqual(t, bundle.Items[i-1].Distance, bundle.Items[i].Distance)
			}
		})
	}
}

func TestRetrieve_Limits(t *testing.T) {
	repo, _, gateway := setupTest(t)
	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("message number %d", i)
	}
	storeTexts(t, repo, texts...)

	r, err := NewRetriever(repo, gateway)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Len(t, r.Retrieve(ctx, "message", 2).Items, 2)
	assert.Len(t, r.Retrieve(ctx, "message", 0).Items, DefaultLimit)
	assert.Len(t, r.Retrieve(ctx, "message", -1).Items, DefaultLimit)
	assert.Len(t, r.Retrieve(ctx, "message", 100).Items, 8)
}

func TestRetrieve_NoMatchesForOtherDimensions(t *testing.T) {
	repo, _, gateway := setupTest(t)
	err := repo.Upsert(context.Background(), &core.StoredDocument{
		ID:        "old_0",
		Content:   "embedded with a different model",
		Embedding: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	r, err := NewRetriever(repo, gateway)
	require.NoError(t, err)

	bundle := r.Retrieve(context.Background(), "anything", 5)
	assert.Equal(t, core.BundleNoMatches, bundle.Status)
	assert.True(t, bundle.Empty())
}

func TestRetrieve_QueryEmbeddingFailure(t *testing.T) {
	repo, embedder, gateway := setupTest(t)
	storeTexts(t, repo, "hello")
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model unavailable")
	}

	r, err := NewRetriever(repo, gateway)
	require.NoError(t, err)

	bundle := r.Retrieve(context.Background(), "hello", 5)
	assert.Equal(t, core.BundleError, bundle.Status)
	assert.ErrorIs(t, bundle.Err, ErrQueryEmbedding)
	assert.ErrorContains(t, bundle.Err, "model unavailable")
}

type brokenRepo struct {
	storage.DocumentRepository
	isEmptyErr error
	nearestErr error
}

func (r *brokenRepo) IsEmpty(ctx context.Context) (bool, error) {
	if r.isEmptyErr != nil {
		return false, r.isEmptyErr
	}
	return false, nil
}

func (r *brokenRepo) Nearest(ctx context.Context, vector []float32, k int, measure core.DistanceMeasure) ([]*core.Neighbor, error) {
	return nil, r.nearestErr
}

func TestRetrieve_StoreFailures(t *testing.T) {
	repo, _, gateway := setupTest(t)

	tests := []struct {
		name string
		repo *brokenRepo
		want string
	}{
		{"is empty fails", &brokenRepo{DocumentRepository: repo, isEmptyErr: errors.New("connection refused")}, "connection refused"},
		{"nearest fails", &brokenRepo{DocumentRepository: repo, nearestErr: storage.ErrStorageClosed}, storage.ErrStorageClosed.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRetriever(tt.repo, gateway)
			require.NoError(t, err)

			bundle := r.Retrieve(context.Background(), "query", 5)
			assert.Equal(t, core.BundleError, bundle.Status)
			assert.ErrorContains(t, bundle.Err, tt.want)
		})
	}
}

type recordingMonitor struct {
	stages    []string
	query     string
	k         int
	dims      int
	neighbors int
	status    core.BundleStatus
}

func (m *recordingMonitor) Start(query string, k int) {
	m.stages = append(m.stages, "start")
	m.query, m.k = query, k
}

func (m *recordingMonitor) AfterQueryEmbedding(dimensions int, fallback bool) {
	m.stages = append(m.stages, "embedding")
	m.dims = dimensions
}

func (m *recordingMonitor) AfterNearest(neighbors []*core.Neighbor) {
	m.stages = append(m.stages, "nearest")
	m.neighbors = len(neighbors)
}

func (m *recordingMonitor) Finish(bundle core.ContextBundle) {
	m.stages = append(m.stages, "finish")
	m.status = bundle.Status
}

func TestRetrieveWithMonitor(t *testing.T) {
	repo, _, gateway := setupTest(t)
	storeTexts(t, repo, "one", "two")

	r, err := NewRetriever(repo, gateway)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	bundle := r.RetrieveWithMonitor(context.Background(), "one", 0, monitor)
	require.Equal(t, core.BundleOK, bundle.Status)

	assert.Equal(t, []string{"start", "embedding", "nearest", "finish"}, monitor.stages)
	assert.Equal(t, "one", monitor.query)
	assert.Equal(t, DefaultLimit, monitor.k)
	assert.Equal(t, testDims, monitor.dims)
	assert.Equal(t, 2, monitor.neighbors)
	assert.Equal(t, core.BundleOK, monitor.status)
}
