package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/poiesic/chatrag/answer"
	"github.com/poiesic/chatrag/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if _, err := s.health.IsEmpty(r.Context()); err != nil {
			s.logger.Error("health check failed", "err", err)
			writeError(w, r, http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
			return
		}
	}
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !s.decode(w, r, &req) {
		return
	}

	bundle := s.retriever.Retrieve(r.Context(), req.Query, req.K)
	resp := RetrieveResponse{
		Status: bundle.Status.String(),
		Items:  toItems(bundle),
	}

	status := http.StatusOK
	if bundle.Status == core.BundleError {
		status = http.StatusBadGateway
		resp.Error = bundle.Err.Error()
	}
	_ = writeJSON(w, status, resp)
}

// handleAsk always answers 200: failures are reported in the answer text.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !s.decode(w, r, &req) {
		return
	}

	a := s.answerer.Answer(r.Context(), req.Question)
	_ = writeJSON(w, http.StatusOK, AskResponse{
		Answer:        a.Text,
		Status:        a.Status.String(),
		ContextStatus: a.Bundle.Status.String(),
		Sources:       toItems(a.Bundle),
	})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			writeError(w, r, http.StatusBadRequest, "validation_failed", "request failed validation", details)
			return false
		}
		writeError(w, r, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return false
	}
	return true
}

func toItems(bundle core.ContextBundle) []ContextItem {
	items := make([]ContextItem, 0, len(bundle.Items))
	for _, item := range bundle.Items {
		items = append(items, ContextItem{
			Content:  item.Content,
			URI:      item.URI,
			Distance: item.Distance,
		})
	}
	return items
}

var _ Answerer = (*answer.Answerer)(nil)
