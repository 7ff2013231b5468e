package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/storage"
)

// ctxCheckInterval is how many documents a scan visits between context checks.
const ctxCheckInterval = 256

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
// Nearest is an exact brute-force scan over every stored document.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
// Returns storage.DocumentRepository interface to enforce abstraction.
func NewDocumentRepository(backend *Backend) (storage.DocumentRepository, error) {
	return newDocumentRepository(backend)
}

func newDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	if backend == nil {
		return nil, errors.New("badger backend is required")
	}
	return &DocumentRepository{backend: backend}, nil
}

// Close is a no-op; the backend is owned and closed by the caller.
func (r *DocumentRepository) Close() error {
	return nil
}

// Upsert writes the document, replacing any existing document with the same ID.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *core.StoredDocument) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrEmptyDocumentID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		doc.CreatedAt = time.Now().UTC()
		return tx.Set(makeDocumentKey(doc.ID), storage.MarshalStoredDocument(doc))
	})
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.StoredDocument, error) {
	var doc *core.StoredDocument
	err := r.backend.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			doc, unmarshalErr = storage.UnmarshalStoredDocument(val)
			return unmarshalErr
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// IsEmpty reports whether any document is stored.
func (r *DocumentRepository) IsEmpty(ctx context.Context) (bool, error) {
	empty := true
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		iter.Rewind()
		empty = !iter.Valid()
		return nil
	})
	return empty, err
}

// Nearest scans every document and returns the k closest to vector.
// Documents with a different embedding dimension are skipped.
func (r *DocumentRepository) Nearest(ctx context.Context, vector []float32, k int, measure core.DistanceMeasure) ([]*core.Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidQuery, k)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	var results []*core.Neighbor
	skipped := 0
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seen := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			seen++
			if seen%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			var doc *core.StoredDocument
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalStoredDocument(val)
				return err
			})
			if err != nil {
				return err
			}

			if len(doc.Embedding) != len(vector) {
				skipped++
				continue
			}

			results = append(results, &core.Neighbor{
				Document: doc,
				Distance: core.Distance(measure, vector, doc.Embedding),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		r.backend.logger.Debug("skipped documents with mismatched dimensions", "skipped", skipped, "dimensions", len(vector))
	}

	// Ties are broken by ID so results are deterministic
	slices.SortFunc(results, func(a, b *core.Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return strings.Compare(a.Document.ID, b.Document.ID)
	})

	if len(results) > k {
		results = results[:k]
	}
	if results == nil {
		results = []*core.Neighbor{}
	}
	return results, nil
}

// ListDocuments returns up to limit documents whose IDs sort after afterID.
func (r *DocumentRepository) ListDocuments(ctx context.Context, afterID string, limit int) ([]*core.StoredDocument, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	docs := make([]*core.StoredDocument, 0, limit)
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeDocumentKey(afterID)); iter.Valid() && len(docs) < limit; iter.Next() {
			item := iter.Item()
			if afterID != "" && documentIDFromKey(item.Key()) == afterID {
				continue
			}

			var doc *core.StoredDocument
			err := item.Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalStoredDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
