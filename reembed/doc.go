// Package reembed re-embeds every stored document with the currently
// configured embedding model.
//
// Embeddings from different models are not comparable, so a model change
// requires rewriting every vector. Documents are walked in ID order in
// batches; each batch is embedded with retry and exponential backoff and
// written back in place. Unlike ingestion, a batch that cannot be embedded
// aborts the run instead of storing zero vectors, so a rerun picks up the
// remaining documents with their old vectors intact.
package reembed
