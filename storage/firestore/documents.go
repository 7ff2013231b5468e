package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DocumentRepository implements storage.DocumentRepository on a Firestore collection.
type DocumentRepository struct {
	client     *firestore.Client
	collection *firestore.CollectionRef
	logger     *slog.Logger
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a repository over client.
// The repository takes ownership of client; Close closes it.
func NewDocumentRepository(client *firestore.Client, opts ...Option) (storage.DocumentRepository, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &DocumentRepository{
		client:     client,
		collection: client.Collection(s.collection),
		logger:     s.logger,
	}, nil
}

// Close closes the Firestore client.
func (r *DocumentRepository) Close() error {
	return r.client.Close()
}

// Upsert overwrites the document with Set, so no stale fields survive.
// CreatedAt is taken from the server commit time.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *core.StoredDocument) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrEmptyDocumentID)
	}
	res, err := r.collection.Doc(doc.ID).Set(ctx, toRecord(doc))
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}
	doc.CreatedAt = res.UpdateTime
	r.logger.Debug("document upserted", "id", doc.ID)
	return nil
}

// GetDocument reads one document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.StoredDocument, error) {
	snap, err := r.collection.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	var rec record
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return fromRecord(snap.Ref.ID, rec), nil
}

// IsEmpty fetches at most one document.
func (r *DocumentRepository) IsEmpty(ctx context.Context) (bool, error) {
	iter := r.collection.Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for documents: %w", err)
	}
	return false, nil
}

// Nearest runs a Firestore vector query and reports the distance result field.
// Firestore ranks dot product by descending similarity, so the value is
// negated to keep smaller-is-closer semantics.
func (r *DocumentRepository) Nearest(ctx context.Context, vector []float32, k int, measure core.DistanceMeasure) ([]*core.Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidQuery, k)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	fsMeasure, err := distanceMeasure(measure)
	if err != nil {
		return nil, err
	}

	query := r.collection.FindNearest(embeddingField, firestore.Vector32(vector), k, fsMeasure,
		&firestore.FindNearestOptions{DistanceResultField: distanceField})
	iter := query.Documents(ctx)
	defer iter.Stop()

	neighbors := []*core.Neighbor{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query nearest documents: %w", err)
		}

		var rec record
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		raw, err := snap.DataAt(distanceField)
		if err != nil {
			return nil, fmt.Errorf("failed to read distance: %w", err)
		}
		distance, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("unexpected distance type %T", raw)
		}
		if measure == core.DotProduct {
			distance = -distance
		}
		neighbors = append(neighbors, &core.Neighbor{
			Document: fromRecord(snap.Ref.ID, rec),
			Distance: distance,
		})
	}
	return neighbors, nil
}

// ListDocuments pages through the collection ordered by document ID.
func (r *DocumentRepository) ListDocuments(ctx context.Context, afterID string, limit int) ([]*core.StoredDocument, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	query := r.collection.OrderBy(firestore.DocumentID, firestore.Asc)
	if afterID != "" {
		query = query.StartAfter(afterID)
	}
	iter := query.Limit(limit).Documents(ctx)
	defer iter.Stop()

	docs := make([]*core.StoredDocument, 0, limit)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		var rec record
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		docs = append(docs, fromRecord(snap.Ref.ID, rec))
	}
	return docs, nil
}

func distanceMeasure(m core.DistanceMeasure) (firestore.DistanceMeasure, error) {
	switch m {
	case core.Euclidean:
		return firestore.DistanceMeasureEuclidean, nil
	case core.Cosine:
		return firestore.DistanceMeasureCosine, nil
	case core.DotProduct:
		return firestore.DistanceMeasureDotProduct, nil
	default:
		return 0, fmt.Errorf("%w: %v", storage.ErrUnsupportedMeasure, m)
	}
}
