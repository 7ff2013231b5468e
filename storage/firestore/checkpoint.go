package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CheckpointRepository implements storage.CheckpointRepository on a Firestore collection.
type CheckpointRepository struct {
	collection *firestore.CollectionRef
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

type checkpointRecord struct {
	NextSequence int       `firestore:"next_sequence"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

// NewCheckpointRepository creates a checkpoint repository. It does not own client.
func NewCheckpointRepository(client *firestore.Client, opts ...Option) (*CheckpointRepository, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &CheckpointRepository{collection: client.Collection(s.checkpointCollection)}, nil
}

// SaveCheckpoint writes the checkpoint keyed by a Firestore-safe form of its source key.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	checkpoint.UpdatedAt = time.Now().UTC()
	_, err := r.collection.Doc(checkpointDocID(checkpoint.SourceKey)).Set(ctx, checkpointRecord{
		NextSequence: checkpoint.NextSequence,
		UpdatedAt:    checkpoint.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns nil, nil when no checkpoint exists.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, sourceKey string) (*core.Checkpoint, error) {
	snap, err := r.collection.Doc(checkpointDocID(sourceKey)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var rec checkpointRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return &core.Checkpoint{
		SourceKey:    sourceKey,
		NextSequence: rec.NextSequence,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// checkpointDocID maps a source key such as "spaces/AAAA" to a single path segment.
func checkpointDocID(sourceKey string) string {
	return core.DocumentID(sourceKey, 0, sourceKey)
}
