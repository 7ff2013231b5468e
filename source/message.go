// Package source reads raw chat messages and normalizes them into ingest records.
//
// RawMessage mirrors the message JSON exported by the Google Chat API
// (camelCase keys). Fields not used by the pipeline are ignored on decode.
package source

import "context"

// RawMessage is one chat message as exported by the chat provider.
type RawMessage struct {
	Name          string       `json:"name,omitempty"`
	Text          string       `json:"text,omitempty"`
	FormattedText string       `json:"formattedText,omitempty"`
	CreateTime    string       `json:"createTime,omitempty"`
	Sender        *User        `json:"sender,omitempty"`
	Space         *Space       `json:"space,omitempty"`
	Thread        *Thread      `json:"thread,omitempty"`
	Attachment    []Attachment `json:"attachment,omitempty"`
	URI           string       `json:"uri,omitempty"`
}

// User identifies a message sender.
type User struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Space identifies the space a message belongs to.
type Space struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Thread identifies the thread a message belongs to.
type Thread struct {
	Name string `json:"name,omitempty"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	Name        string `json:"name,omitempty"`
	ContentName string `json:"contentName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// MessageSource lists every message of a chat space, oldest first.
type MessageSource interface {
	ListMessages(ctx context.Context, space string) ([]RawMessage, error)
}
