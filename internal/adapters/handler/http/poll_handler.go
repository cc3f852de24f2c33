package http

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
	now     func() time.Time
}

func NewPollHandler(service ports.PollService, now func() time.Time) *PollHandler {
	if now == nil {
		now = time.Now
	}
	return &PollHandler{
		service: service,
		now:     now,
	}
}

type createPollOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type createPollRequest struct {
	Question string             `json:"question"`
	Options  []createPollOption `json:"options"`
	Duration int                `json:"duration"`
}

type pollResponse struct {
	*domain.Poll
	TotalVotes       int64 `json:"total_votes"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

func (h *PollHandler) toResponse(poll *domain.Poll) pollResponse {
	return pollResponse{
		Poll:             poll,
		TotalVotes:       poll.TotalVotes(),
		RemainingSeconds: int(math.Ceil(poll.Remaining(h.now()).Seconds())),
	}
}

func (h *PollHandler) toResponses(polls []*domain.Poll) []pollResponse {
	out := make([]pollResponse, 0, len(polls))
	for _, p := range polls {
		out = append(out, h.toResponse(p))
	}
	return out
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	input := ports.CreatePollInput{
		Question:        req.Question,
		DurationSeconds: req.Duration,
	}
	for _, opt := range req.Options {
		input.Options = append(input.Options, ports.CreatePollOption{
			ID:        opt.ID,
			Text:      opt.Text,
			IsCorrect: opt.IsCorrect,
		})
	}

	poll, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(poll))
}

func (h *PollHandler) GetActivePoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(poll))
}

func (h *PollHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.History(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponses(polls))
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetPoll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(poll))
}

func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domain.ErrInvalidPollID)
		return
	}

	poll, err := h.service.Close(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(poll))
}

func (h *PollHandler) CloseActivePoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.CloseActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(poll))
}
