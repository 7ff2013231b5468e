package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) (storage.DocumentRepository, storage.CheckpointRepository) {
	t.Helper()
	docs, checkpoints, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		docs.Close()
		backend.Close()
	})
	return docs, checkpoints
}

func testDoc(id, content string, vec ...float32) *core.StoredDocument {
	return &core.StoredDocument{
		ID:      id,
		URI:     "https://chat.google.com/room/A/B/" + id,
		Content: content,
		Metadata: core.Metadata{
			Source: core.SourceGoogleChat,
			Space:  "spaces/A",
		},
		Embedding: vec,
	}
}

func TestUpsertAndGet(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	doc := testDoc("a_0", "hello", 1, 0, 0)
	require.NoError(t, repo.Upsert(ctx, doc))
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := repo.GetDocument(ctx, "a_0")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, doc.Metadata, got.Metadata)
	assert.Equal(t, []float32{1, 0, 0}, got.Embedding)
}

func TestUpsert_ReplacesWholeDocument(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testDoc("a_0", "first", 1, 0, 0)))
	replacement := &core.StoredDocument{ID: "a_0", Content: "second", Embedding: []float32{0, 1, 0}}
	require.NoError(t, repo.Upsert(ctx, replacement))

	got, err := repo.GetDocument(ctx, "a_0")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)
	assert.Empty(t, got.URI)
	assert.Empty(t, got.Metadata.Space)

	page, err := repo.ListDocuments(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestUpsert_EmptyID(t *testing.T) {
	repo, _ := newTestRepos(t)

	err := repo.Upsert(context.Background(), &core.StoredDocument{Content: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestGetDocument_NotFound(t *testing.T) {
	repo, _ := newTestRepos(t)

	_, err := repo.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIsEmpty(t *testing.T) {
	repo, checkpoints := newTestRepos(t)
	ctx := context.Background()

	empty, err := repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	// Checkpoints live under a different prefix and must not count as documents
	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{SourceKey: "s", NextSequence: 1}))
	empty, err = repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, repo.Upsert(ctx, testDoc("a_0", "x", 1)))
	empty, err = repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestNearest_EmptyStore(t *testing.T) {
	repo, _ := newTestRepos(t)

	results, err := repo.Nearest(context.Background(), []float32{1, 0}, 5, core.Euclidean)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestNearest_Ordering(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testDoc("far_0", "far", 10, 0)))
	require.NoError(t, repo.Upsert(ctx, testDoc("mid_0", "mid", 3, 0)))
	require.NoError(t, repo.Upsert(ctx, testDoc("near_0", "near", 1, 0)))
	require.NoError(t, repo.Upsert(ctx, testDoc("exact_0", "exact", 0, 0)))

	results, err := repo.Nearest(ctx, []float32{0, 0}, 3, core.Euclidean)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact_0", results[0].Document.ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
	assert.Equal(t, "near_0", results[1].Document.ID)
	assert.Equal(t, "mid_0", results[2].Document.ID)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestNearest_SkipsMismatchedDimensions(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testDoc("two_0", "two dims", 1, 1)))
	require.NoError(t, repo.Upsert(ctx, testDoc("three_0", "three dims", 1, 1, 1)))

	results, err := repo.Nearest(ctx, []float32{1, 1, 1}, 10, core.Euclidean)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "three_0", results[0].Document.ID)
}

func TestNearest_Measures(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testDoc("same_dir_0", "long vector same direction", 10, 0)))
	require.NoError(t, repo.Upsert(ctx, testDoc("close_0", "short vector close by", 0.5, 0.5)))

	euclid, err := repo.Nearest(ctx, []float32{1, 0}, 1, core.Euclidean)
	require.NoError(t, err)
	assert.Equal(t, "close_0", euclid[0].Document.ID)

	cosine, err := repo.Nearest(ctx, []float32{1, 0}, 1, core.Cosine)
	require.NoError(t, err)
	assert.Equal(t, "same_dir_0", cosine[0].Document.ID)

	dot, err := repo.Nearest(ctx, []float32{1, 0}, 1, core.DotProduct)
	require.NoError(t, err)
	assert.Equal(t, "same_dir_0", dot[0].Document.ID)
	assert.InDelta(t, -10, dot[0].Distance, 1e-6)
}

func TestNearest_InvalidArguments(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := repo.Nearest(ctx, []float32{1}, 0, core.Euclidean)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = repo.Nearest(ctx, nil, 3, core.Euclidean)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestListDocuments_Pagination(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, repo.Upsert(ctx, testDoc(fmt.Sprintf("d_%d", i), "x", 1)))
	}

	var ids []string
	after := ""
	for {
		page, err := repo.ListDocuments(ctx, after, 3)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, doc := range page {
			ids = append(ids, doc.ID)
		}
		after = page[len(page)-1].ID
	}

	assert.Equal(t, []string{"d_0", "d_1", "d_2", "d_3", "d_4", "d_5", "d_6"}, ids)
}

func TestConcurrentUpserts(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.Upsert(ctx, testDoc(fmt.Sprintf("c_%02d", i), "x", float32(i))))
		}(i)
	}
	wg.Wait()

	page, err := repo.ListDocuments(ctx, "", 100)
	require.NoError(t, err)
	assert.Len(t, page, 20)
}

func TestClosedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	repo, err := NewDocumentRepository(backend)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	err = repo.Upsert(context.Background(), testDoc("a_0", "x", 1))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
