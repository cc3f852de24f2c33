package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: domain.ErrorCode(err), Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPollNotFound), errors.Is(err, domain.ErrNoActivePoll):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPollID),
		errors.Is(err, domain.ErrInvalidPollInput),
		errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrInvalidRespondent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPollNotActive),
		errors.Is(err, domain.ErrPollExpired),
		errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrConcurrentWriteConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: message})
}
