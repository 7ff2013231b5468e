package reembed

import "errors"

var (
	// ErrEmbeddingCountMismatch is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrEmptyDocument is returned for a document with no content to embed.
	ErrEmptyDocument = errors.New("document has no content")
)
