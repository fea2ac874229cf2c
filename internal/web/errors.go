package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/StarAlexander/inventory-storage-diploma/internal/auth"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, RequestID: middleware.GetReqID(r.Context())})
}

// statusFor maps err to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadySigned),
		errors.Is(err, domain.ErrNotMaterialized),
		errors.Is(err, domain.ErrNotReady),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvariant:
		return http.StatusUnprocessableEntity
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	case domain.KindCrypto:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeServiceError reports err to the client. Internal and retryable
// failures are logged and replaced by a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		resp.Kind = domain.KindOf(err).String()
	}

	switch status {
	case http.StatusInternalServerError:
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", resp.RequestID, "error", err)
		resp.Error = "internal error"
	case http.StatusServiceUnavailable:
		s.logger.Warn("request failed, retryable", "path", r.URL.Path, "request_id", resp.RequestID, "error", err)
		w.Header().Set("Retry-After", "1")
		resp.Error = "temporarily unavailable, retry later"
	}
	writeJSON(w, status, resp)
}
