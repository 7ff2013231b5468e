package reembed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/chatrag/ai"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/retry"
	"github.com/poiesic/chatrag/storage"
)

// BatchProcessor generates new embeddings for batches of documents.
type BatchProcessor struct {
	repo           storage.DocumentRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	dimensions     int
	normalize      bool
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for embedding and write calls
// retryBaseDelay: base delay for exponential backoff
// dimensions: expected vector length, 0 to accept any
// normalize: scale vectors to unit length before writing
func NewBatchProcessor(repo storage.DocumentRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration, dimensions int, normalize bool) *BatchProcessor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		dimensions:     dimensions,
		normalize:      normalize,
	}
}

// Process embeds a batch of documents and writes them back.
// Nothing is written if any embedding in the batch fails.
func (bp *BatchProcessor) Process(ctx context.Context, docs []*core.StoredDocument) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			return fmt.Errorf("%w: %s", ErrEmptyDocument, doc.ID)
		}
		texts[i] = doc.Content
	}

	var embeddings [][]float32
	err := retry.WithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(docs) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(docs), len(embeddings))
	}

	for i, vector := range embeddings {
		if bp.dimensions > 0 {
			if err := core.ValidateDimensions(vector, bp.dimensions); err != nil {
				return fmt.Errorf("document %s: %w", docs[i].ID, err)
			}
		}
		if bp.normalize {
			vector = NormalizeVector(vector)
		}
		embeddings[i] = vector
	}

	for i, doc := range docs {
		updated := *doc
		updated.Embedding = embeddings[i]
		err := retry.WithBackoff(ctx, func() error {
			return bp.repo.Upsert(ctx, &updated)
		}, bp.maxRetries, bp.retryBaseDelay)
		if err != nil {
			return fmt.Errorf("failed to update document %s: %w", doc.ID, err)
		}
	}

	return nil
}
