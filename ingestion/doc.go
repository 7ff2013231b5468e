// Package ingestion turns raw chat messages into stored, embedded documents.
//
// The Pipeline walks the input in contiguous batches. Each batch is
// normalized in order, embedded concurrently through the shared
// embedding.Gateway and written concurrently to the DocumentRepository.
// A batch is fully written before the next one starts, and the pipeline
// pauses between batches to pace calls to the embedding service.
//
// Per-message problems never abort a run: an embedding failure stores the
// zero vector, a failed write is recorded, and both show up in the Report.
// Only input loading errors and context cancellation end a run early.
package ingestion
