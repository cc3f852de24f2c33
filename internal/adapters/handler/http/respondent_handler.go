package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type RespondentHandler struct {
	service ports.RosterService
}

func NewRespondentHandler(service ports.RosterService) *RespondentHandler {
	return &RespondentHandler{
		service: service,
	}
}

type registerRequest struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// Register upserts the respondent. The session may come from the body or
// from the X-Session-Token header.
func (h *RespondentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID, _ = r.Context().Value(SessionKey).(string)
	}

	respondent, err := h.service.Register(r.Context(), ports.RegisterRespondentInput{
		ID:   req.SessionID,
		Name: req.Name,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, respondent)
}

func (h *RespondentHandler) List(w http.ResponseWriter, r *http.Request) {
	respondents, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, respondents)
}

func (h *RespondentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
