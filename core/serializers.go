package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted entities.
// Field order is the wire order; append new fields at the end only.
var (
	MetadataMUS       = metadataMUS{}
	StoredDocumentMUS = storedDocumentMUS{}
	CheckpointMUS     = checkpointMUS{}

	embeddingMUS = ord.NewSliceSer[float32](raw.Float32)
)

type metadataMUS struct{}

func (s metadataMUS) Marshal(v Metadata, bs []byte) (n int) {
	n = ord.String.Marshal(v.Source, bs)
	n += ord.String.Marshal(v.Timestamp, bs[n:])
	n += ord.String.Marshal(v.Sender, bs[n:])
	return n + ord.String.Marshal(v.Space, bs[n:])
}

func (s metadataMUS) Unmarshal(bs []byte) (v Metadata, n int, err error) {
	var n1 int
	if v.Source, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.Timestamp, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.Sender, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.Space, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s metadataMUS) Size(v Metadata) (size int) {
	size = ord.String.Size(v.Source)
	size += ord.String.Size(v.Timestamp)
	size += ord.String.Size(v.Sender)
	return size + ord.String.Size(v.Space)
}

func (s metadataMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for range 4 {
		if n1, err = ord.String.Skip(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
	}
	return
}

type storedDocumentMUS struct{}

func (s storedDocumentMUS) Marshal(v StoredDocument, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.URI, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += MetadataMUS.Marshal(v.Metadata, bs[n:])
	n += embeddingMUS.Marshal(v.Embedding, bs[n:])
	return n + raw.TimeUnixMicroUTC.Marshal(v.CreatedAt, bs[n:])
}

func (s storedDocumentMUS) Unmarshal(bs []byte) (v StoredDocument, n int, err error) {
	var n1 int
	if v.ID, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.URI, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.Metadata, n1, err = MetadataMUS.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.Embedding, n1, err = embeddingMUS.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.CreatedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	return
}

func (s storedDocumentMUS) Size(v StoredDocument) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.URI)
	size += ord.String.Size(v.Content)
	size += MetadataMUS.Size(v.Metadata)
	size += embeddingMUS.Size(v.Embedding)
	return size + raw.TimeUnixMicroUTC.Size(v.CreatedAt)
}

func (s storedDocumentMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for range 3 {
		if n1, err = ord.String.Skip(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
	}
	if n1, err = MetadataMUS.Skip(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if n1, err = embeddingMUS.Skip(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	n1, err = raw.TimeUnixMicroUTC.Skip(bs[n:])
	n += n1
	return
}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.SourceKey, bs)
	n += varint.Int.Marshal(v.NextSequence, bs[n:])
	return n + raw.TimeUnixMicroUTC.Marshal(v.UpdatedAt, bs[n:])
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	var n1 int
	if v.SourceKey, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.NextSequence, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.UpdatedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.SourceKey)
	size += varint.Int.Size(v.NextSequence)
	return size + raw.TimeUnixMicroUTC.Size(v.UpdatedAt)
}

func (s checkpointMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	if n1, err = ord.String.Skip(bs); err != nil {
		return
	}
	n += n1
	if n1, err = varint.Int.Skip(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	n1, err = raw.TimeUnixMicroUTC.Skip(bs[n:])
	n += n1
	return
}
