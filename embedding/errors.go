package embedding

import "errors"

var (
	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyText is reported for inputs with no embeddable content.
	ErrEmptyText = errors.New("empty text")

	// ErrInvalidPoolSize is returned for a non-positive worker pool size.
	ErrInvalidPoolSize = errors.New("pool size must be greater than 0")
)
