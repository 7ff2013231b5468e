package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrGatewayRequired is returned when an embedding gateway is not provided.
	ErrGatewayRequired = errors.New("embedding gateway required")

	// ErrCheckpointRepositoryRequired is returned when resuming without a checkpoint repository.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrSourceKeyRequired is returned when resuming without a source key.
	ErrSourceKeyRequired = errors.New("source key required to resume")

	// ErrInvalidBatchSize is returned for a batch size below 1.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")

	// ErrInvalidPacing is returned for a negative pacing delay.
	ErrInvalidPacing = errors.New("pacing delay must not be negative")

	// ErrMessageSourceRequired is returned when IngestSource gets no source.
	ErrMessageSourceRequired = errors.New("message source required")
)
