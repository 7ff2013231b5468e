package badger

import "fmt"

// Key prefixes for different data types
const (
	documentPrefix   = "doc:"
	checkpointPrefix = "chkpt:"
)

// makeDocumentKey generates a key for a stored document by ID.
// Document IDs are opaque strings, so byte order of keys equals ID order.
func makeDocumentKey(id string) []byte {
	return []byte(documentPrefix + id)
}

// documentIDFromKey strips the document prefix from a key.
func documentIDFromKey(key []byte) string {
	return string(key[len(documentPrefix):])
}

// makeCheckpointKey generates a key for an ingestion checkpoint.
func makeCheckpointKey(sourceKey string) []byte {
	return []byte(fmt.Sprintf("%s%s", checkpointPrefix, sourceKey))
}
