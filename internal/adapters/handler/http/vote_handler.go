package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
	polls   *PollHandler
}

func NewVoteHandler(service ports.VoteService, polls *PollHandler) *VoteHandler {
	return &VoteHandler{
		service: service,
		polls:   polls,
	}
}

type voteRequest struct {
	OptionID string `json:"option_id"`
}

func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domain.ErrInvalidPollID)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	session, _ := r.Context().Value(SessionKey).(string)
	input := ports.VoteInput{
		PollID:       pollID,
		OptionID:     req.OptionID,
		RespondentID: session,
	}

	poll, err := h.service.CastVote(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.polls.toResponse(poll))
}
