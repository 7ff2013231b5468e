// Package postgres implements the storage repositories on PostgreSQL with the
// pgvector extension.
//
// Documents live in a single table keyed by document ID. Nearest-neighbor
// queries are pushed down to pgvector operators:
//
//	Euclidean   embedding <-> $1
//	Cosine      embedding <=> $1
//	DotProduct  embedding <#> $1  (negative inner product)
//
// Call EnsureSchema once before use; it is idempotent.
package postgres
