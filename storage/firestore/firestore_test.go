package firestore

import (
	"context"
	"fmt"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMapping(t *testing.T) {
	doc := &core.StoredDocument{
		ID:      "https:__chat_google_com_room_A_B_C_0",
		URI:     "https://chat.google.com/room/A/B/C",
		Content: "Dashboards timing out after the upgrade",
		Metadata: core.Metadata{
			Source:    core.SourceGoogleChat,
			Timestamp: "2024-05-01T10:00:00Z",
			Sender:    "users/7",
			Space:     "spaces/A",
		},
		Embedding: []float32{0.1, 0.2},
	}

	rec := toRecord(doc)
	assert.Equal(t, doc.URI, rec.URL)
	assert.Equal(t, "users/7", rec.Metadata.Sender)
	assert.Equal(t, "spaces/A", rec.Metadata.Space)
	assert.Equal(t, firestore.Vector32{0.1, 0.2}, rec.EmbeddingMap)
	assert.True(t, rec.CreatedAt.IsZero(), "created_at must be left for the server timestamp")

	back := fromRecord(doc.ID, rec)
	assert.Equal(t, doc.ID, back.ID)
	assert.Equal(t, doc.Content, back.Content)
	assert.Equal(t, doc.Metadata, back.Metadata)
	assert.Equal(t, doc.Embedding, back.Embedding)
}

func TestDistanceMeasure(t *testing.T) {
	tests := []struct {
		in   core.DistanceMeasure
		want firestore.DistanceMeasure
	}{
		{core.Euclidean, firestore.DistanceMeasureEuclidean},
		{core.Cosine, firestore.DistanceMeasureCosine},
		{core.DotProduct, firestore.DistanceMeasureDotProduct},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			got, err := distanceMeasure(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := distanceMeasure(core.DistanceMeasure(42))
	assert.ErrorIs(t, err, storage.ErrUnsupportedMeasure)
}

func TestCheckpointDocID(t *testing.T) {
	assert.Equal(t, "spaces_AAAA_0", checkpointDocID("spaces/AAAA"))
	assert.NotContains(t, checkpointDocID("a/b.c"), "/")
}

func TestNewDocumentRepository_NilClient(t *testing.T) {
	_, err := NewDocumentRepository(nil)
	assert.ErrorIs(t, err, ErrClientRequired)

	_, err = NewCheckpointRepository(nil)
	assert.ErrorIs(t, err, ErrClientRequired)
}

// TestEmulator runs against the Firestore emulator when FIRESTORE_EMULATOR_HOST is set.
func TestEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, "chatrag-test", "")
	require.NoError(t, err)

	collection := fmt.Sprintf("test_%s", uuid.NewString())
	repo, err := NewDocumentRepository(client, WithCollection(collection))
	require.NoError(t, err)
	defer repo.Close()

	empty, err := repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	for i := 0; i < 3; i++ {
		doc := &core.StoredDocument{
			ID:        fmt.Sprintf("doc_%d", i),
			Content:   fmt.Sprintf("message %d", i),
			Embedding: []float32{float32(i), 1},
		}
		require.NoError(t, repo.Upsert(ctx, doc))
		assert.False(t, doc.CreatedAt.IsZero())
	}

	got, err := repo.GetDocument(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, "message 1", got.Content)

	_, err = repo.GetDocument(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	page, err := repo.ListDocuments(ctx, "doc_0", 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "doc_1", page[0].ID)

	checkpoints, err := NewCheckpointRepository(client, WithCheckpointCollection(collection+"_chk"))
	require.NoError(t, err)
	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{SourceKey: "spaces/A", NextSequence: 5}))
	cp, err := checkpoints.LoadCheckpoint(ctx, "spaces/A")
	require.NoError(t, err)
	assert.Equal(t, 5, cp.NextSequence)
}
