package storage

import (
	"context"

	"github.com/poiesic/chatrag/core"
)

// DocumentRepository persists StoredDocuments and answers nearest-neighbor queries.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// Upsert inserts the document or fully replaces an existing one with the same ID.
	// Sets CreatedAt to the write time.
	Upsert(ctx context.Context, doc *core.StoredDocument) error

	// Nearest returns up to k documents closest to vector under measure,
	// ordered by non-decreasing distance.
	// Only documents whose embedding has the same dimension as vector participate.
	// Returns an empty slice for an empty store.
	Nearest(ctx context.Context, vector []float32, k int, measure core.DistanceMeasure) ([]*core.Neighbor, error)

	// IsEmpty reports whether the store holds no documents.
	IsEmpty(ctx context.Context) (bool, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.StoredDocument, error)

	// ListDocuments returns up to limit documents with IDs strictly greater than
	// afterID, ordered by ID. Pass "" to start from the beginning.
	ListDocuments(ctx context.Context, afterID string, limit int) ([]*core.StoredDocument, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// CheckpointRepository persists ingestion progress per source.
type CheckpointRepository interface {
	// SaveCheckpoint persists the checkpoint, stamping UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a source.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, sourceKey string) (*core.Checkpoint, error)
}
