package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/storage"
)

const documentColumns = `id, uri, content, source, msg_timestamp, sender, space, embedding, created_at`

// DocumentRepository implements storage.DocumentRepository on PostgreSQL + pgvector.
type DocumentRepository struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a repository over db.
// The repository takes ownership of db; Close closes the pool.
func NewDocumentRepository(db *sql.DB, opts ...Option) (storage.DocumentRepository, error) {
	return newDocumentRepository(db, opts...)
}

func newDocumentRepository(db *sql.DB, opts ...Option) (*DocumentRepository, error) {
	if db == nil {
		return nil, ErrDBRequired
	}
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &DocumentRepository{
		db:     db,
		table:  s.documentsTable,
		logger: s.logger,
	}, nil
}

// Close closes the connection pool.
func (r *DocumentRepository) Close() error {
	return r.db.Close()
}

// Upsert inserts the document or replaces every column of the existing row.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *core.StoredDocument) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrEmptyDocumentID)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			uri = EXCLUDED.uri,
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			msg_timestamp = EXCLUDED.msg_timestamp,
			sender = EXCLUDED.sender,
			space = EXCLUDED.space,
			embedding = EXCLUDED.embedding,
			created_at = EXCLUDED.created_at
	`, r.table, documentColumns)

	createdAt := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.URI,
		doc.Content,
		doc.Metadata.Source,
		doc.Metadata.Timestamp,
		doc.Metadata.Sender,
		doc.Metadata.Space,
		pgvector.NewVector(doc.Embedding),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}
	doc.CreatedAt = createdAt

	r.logger.Debug("document upserted", "id", doc.ID)
	return nil
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.StoredDocument, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, documentColumns, r.table)

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// IsEmpty reports whether the documents table has no rows.
func (r *DocumentRepository) IsEmpty(ctx context.Context) (bool, error) {
	query := fmt.Sprintf(`SELECT NOT EXISTS (SELECT 1 FROM %s)`, r.table)

	var empty bool
	if err := r.db.QueryRowContext(ctx, query).Scan(&empty); err != nil {
		return false, fmt.Errorf("failed to check for documents: %w", err)
	}
	return empty, nil
}

// Nearest orders documents by the pgvector operator for measure.
func (r *DocumentRepository) Nearest(ctx context.Context, vector []float32, k int, measure core.DistanceMeasure) ([]*core.Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidQuery, k)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	op, err := distanceOperator(measure)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s, embedding %s $1 AS distance
		FROM %s
		WHERE vector_dims(embedding) = $2
		ORDER BY distance, id
		LIMIT $3
	`, documentColumns, op, r.table)

	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(vector), len(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest documents: %w", err)
	}
	defer rows.Close()

	neighbors := []*core.Neighbor{}
	for rows.Next() {
		var (
			doc       core.StoredDocument
			embedding pgvector.Vector
			distance  float64
		)
		err := rows.Scan(
			&doc.ID, &doc.URI, &doc.Content,
			&doc.Metadata.Source, &doc.Metadata.Timestamp, &doc.Metadata.Sender, &doc.Metadata.Space,
			&embedding, &doc.CreatedAt, &distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		doc.Embedding = embedding.Slice()
		neighbors = append(neighbors, &core.Neighbor{Document: &doc, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate neighbors: %w", err)
	}
	return neighbors, nil
}

// ListDocuments pages through documents in byte order of their IDs.
func (r *DocumentRepository) ListDocuments(ctx context.Context, afterID string, limit int) ([]*core.StoredDocument, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id COLLATE "C" > $1
		ORDER BY id COLLATE "C"
		LIMIT $2
	`, documentColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*core.StoredDocument, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*core.StoredDocument, error) {
	var (
		doc       core.StoredDocument
		embedding pgvector.Vector
	)
	err := row.Scan(
		&doc.ID, &doc.URI, &doc.Content,
		&doc.Metadata.Source, &doc.Metadata.Timestamp, &doc.Metadata.Sender, &doc.Metadata.Space,
		&embedding, &doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Embedding = embedding.Slice()
	return &doc, nil
}

func distanceOperator(measure core.DistanceMeasure) (string, error) {
	switch measure {
	case core.Euclidean:
		return "<->", nil
	case core.Cosine:
		return "<=>", nil
	case core.DotProduct:
		return "<#>", nil
	default:
		return "", fmt.Errorf("%w: %v", storage.ErrUnsupportedMeasure, measure)
	}
}
