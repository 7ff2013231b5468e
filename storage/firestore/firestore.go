// Package firestore implements the storage repositories on Cloud Firestore.
//
// Documents are written to a single collection (default "gchat_messages_v2")
// with the fields url, content, metadata, embedding_map and created_at.
// Nearest uses Firestore vector search, which requires a single-field vector
// index on embedding_map with the embedding dimensionality. Documents whose
// vector has a different dimension are not in that index and so never match.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/poiesic/chatrag/core"
	"google.golang.org/api/option"
)

const (
	// DefaultCollection holds stored documents.
	DefaultCollection = "gchat_messages_v2"
	// DefaultCheckpointCollection holds ingestion checkpoints.
	DefaultCheckpointCollection = "chatrag_checkpoints"

	embeddingField = "embedding_map"
	distanceField  = "vector_distance"
)

// ErrClientRequired indicates a nil Firestore client was supplied.
var ErrClientRequired = errors.New("firestore client is required")

// Option configures the Firestore repositories.
type Option func(*settings) error

type settings struct {
	collection           string
	checkpointCollection string
	logger               *slog.Logger
}

// WithCollection overrides the documents collection.
func WithCollection(name string) Option {
	return func(s *settings) error {
		if name == "" {
			return errors.New("collection name cannot be empty")
		}
		s.collection = name
		return nil
	}
}

// WithCheckpointCollection overrides the checkpoints collection.
func WithCheckpointCollection(name string) Option {
	return func(s *settings) error {
		if name == "" {
			return errors.New("checkpoint collection name cannot be empty")
		}
		s.checkpointCollection = name
		return nil
	}
}

// WithLogger sets a custom logger. If nil, uses slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "firestore")
		return nil
	}
}

func applyOptions(opts []Option) (*settings, error) {
	s := &settings{
		collection:           DefaultCollection,
		checkpointCollection: DefaultCheckpointCollection,
		logger:               slog.Default().With("component", "firestore"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Connect creates a client for a named database in project.
// An empty database selects the default database.
func Connect(ctx context.Context, project, database string, opts ...option.ClientOption) (*firestore.Client, error) {
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, project, database, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

// record is the persisted shape of a StoredDocument.
type record struct {
	URL          string             `firestore:"url"`
	Content      string             `firestore:"content"`
	Metadata     metadataRecord     `firestore:"metadata"`
	EmbeddingMap firestore.Vector32 `firestore:"embedding_map"`
	CreatedAt    time.Time          `firestore:"created_at,serverTimestamp"`
}

type metadataRecord struct {
	Source    string `firestore:"source"`
	Timestamp string `firestore:"timestamp"`
	Sender    string `firestore:"sender"`
	Space     string `firestore:"space"`
}

func toRecord(doc *core.StoredDocument) record {
	return record{
		URL:     doc.URI,
		Content: doc.Content,
		Metadata: metadataRecord{
			Source:    doc.Metadata.Source,
			Timestamp: doc.Metadata.Timestamp,
			Sender:    doc.Metadata.Sender,
			Space:     doc.Metadata.Space,
		},
		EmbeddingMap: firestore.Vector32(doc.Embedding),
	}
}

func fromRecord(id string, r record) *core.StoredDocument {
	return &core.StoredDocument{
		ID:      id,
		URI:     r.URL,
		Content: r.Content,
		Metadata: core.Metadata{
			Source:    r.Metadata.Source,
			Timestamp: r.Metadata.Timestamp,
			Sender:    r.Metadata.Sender,
			Space:     r.Metadata.Space,
		},
		Embedding: []float32(r.EmbeddingMap),
		CreatedAt: r.CreatedAt,
	}
}
