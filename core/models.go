package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// DefaultDimensions is the embedding dimensionality used when none is configured.
const DefaultDimensions = 768

// SourceGoogleChat tags records normalized from Google Chat messages.
const SourceGoogleChat = "google_chat"

// ID is a 64-bit content hash.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Metadata describes where a message came from.
// Sender and Space are kept in separate fields so neither can shadow the other.
type Metadata struct {
	Source    string // Source system tag, e.g. "google_chat"
	Timestamp string // Original creation time as reported by the source
	Sender    string // Sender resource name
	Space     string // Owning space resource name
}

// IngestRecord is the canonical form of one raw chat message.
type IngestRecord struct {
	URI      string // Deep link to the message; may be empty
	Sequence int    // Position within the ingestion input, used only for ID disambiguation
	Content  string
	Metadata Metadata
}

// DocumentID returns the storage identifier for the record.
func (r IngestRecord) DocumentID() string {
	return DocumentID(r.URI, r.Sequence, r.Content)
}

// EmbeddedRecord is an IngestRecord paired with its embedding.
type EmbeddedRecord struct {
	IngestRecord
	Embedding []float32
	Fallback  bool // Embedding is the zero vector substituted for a failed call
}

// Document converts the record into its persisted form.
// CreatedAt is left zero; repositories stamp it at write time.
func (r *EmbeddedRecord) Document() *StoredDocument {
	return &StoredDocument{
		ID:        r.DocumentID(),
		URI:       r.URI,
		Content:   r.Content,
		Metadata:  r.Metadata,
		Embedding: r.Embedding,
	}
}

// StoredDocument is the only persisted entity.
// Re-ingestion replaces a document in full; it is never partially updated.
type StoredDocument struct {
	ID        string
	URI       string
	Content   string
	Metadata  Metadata
	Embedding []float32
	CreatedAt time.Time // Write time, set by the repository
}

// Neighbor is a nearest-neighbor hit.
type Neighbor struct {
	Document *StoredDocument
	Distance float64
}

// Checkpoint records how far an ingestion run over a named source has progressed.
type Checkpoint struct {
	SourceKey    string
	NextSequence int
	UpdatedAt    time.Time
}
