package server

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// ContextItem is one retrieved message.
type ContextItem struct {
	Content  string  `json:"content"`
	URI      string  `json:"uri,omitempty"`
	Distance float64 `json:"distance"`
}

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	Query string `json:"query" validate:"required,max=8192"`
	K     int    `json:"k" validate:"gte=0,lte=100"`
}

// RetrieveResponse is the reply to POST /v1/retrieve.
type RetrieveResponse struct {
	Status string        `json:"status"`
	Items  []ContextItem `json:"items"`
	Error  string        `json:"error,omitempty"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question" validate:"required,max=8192"`
}

// AskResponse is the reply to POST /v1/ask.
type AskResponse struct {
	Answer        string        `json:"answer"`
	Status        string        `json:"status"`
	ContextStatus string        `json:"context_status"`
	Sources       []ContextItem `json:"sources"`
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string) {
	_ = writeJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		Details:   details,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
