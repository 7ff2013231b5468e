package storage

import (
	"testing"
	"time"

	"github.com/poiesic/chatrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalStoredDocument(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		doc  *core.StoredDocument
	}{
		{
			name: "minimal document",
			doc: &core.StoredDocument{
				ID:        "msg-0000000000000001_0",
				Embedding: []float32{0, 0, 0},
				CreatedAt: now,
			},
		},
		{
			name: "full document",
			doc: &core.StoredDocument{
				ID:      "https:__chat_google_com_room_A_B_C_3",
				URI:     "https://chat.google.com/room/A/B/C",
				Content: "Looker PDT rebuilds are failing since Tuesday",
				Metadata: core.Metadata{
					Source:    core.SourceGoogleChat,
					Timestamp: "2024-05-01T10:00:00Z",
					Sender:    "users/42",
					Space:     "spaces/A",
				},
				Embedding: []float32{0.1, -0.2, 0.3, 1e-6},
				CreatedAt: now,
			},
		},
		{
			name: "unicode content",
			doc: &core.StoredDocument{
				ID:        "x_1",
				Content:   "デプロイは凍結中 🚫",
				Embedding: []float32{1},
				CreatedAt: now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalStoredDocument(tt.doc)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalStoredDocument(data)
			require.NoError(t, err)
			assert.Equal(t, tt.doc.ID, decoded.ID)
			assert.Equal(t, tt.doc.URI, decoded.URI)
			assert.Equal(t, tt.doc.Content, decoded.Content)
			assert.Equal(t, tt.doc.Metadata, decoded.Metadata)
			assert.Equal(t, tt.doc.Embedding, decoded.Embedding)
			assert.True(t, tt.doc.CreatedAt.Equal(decoded.CreatedAt))
		})
	}
}

func TestUnmarshalStoredDocument_Invalid(t *testing.T) {
	data := MarshalStoredDocument(&core.StoredDocument{
		ID:        "doc_0",
		Content:   "hello",
		Embedding: []float32{1, 2, 3},
	})

	_, err := UnmarshalStoredDocument(data[:len(data)/2])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalStoredDocument(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalCheckpoint(t *testing.T) {
	checkpoint := &core.Checkpoint{
		SourceKey:    "spaces/AAAA",
		NextSequence: 15,
		UpdatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(checkpoint))
	require.NoError(t, err)
	assert.Equal(t, checkpoint.SourceKey, decoded.SourceKey)
	assert.Equal(t, checkpoint.NextSequence, decoded.NextSequence)
	assert.True(t, checkpoint.UpdatedAt.Equal(decoded.UpdatedAt))
}
