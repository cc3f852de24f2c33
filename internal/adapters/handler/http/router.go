package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Polls       *PollHandler
	Votes       *VoteHandler
	Respondents *RespondentHandler
	Auth        *AuthHandler
	// Presenter guards operator-only routes.
	Presenter func(http.Handler) http.Handler
	Realtime  http.Handler
	Health    HealthChecker
}

func NewHandler(h Handlers, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", sessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(Session)

	presenter := h.Presenter
	if presenter == nil {
		presenter = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if h.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := h.Health.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if h.Realtime != nil {
		r.Handle("/ws", h.Realtime)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/presenter", h.Auth.LoginPresenter)
		r.Post("/logout", h.Auth.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/polls", func(r chi.Router) {
			r.With(presenter).Post("/", h.Polls.CreatePoll)
			r.Get("/active", h.Polls.GetActivePoll)
			r.With(presenter).Post("/active/close", h.Polls.CloseActivePoll)
			r.Get("/history", h.Polls.GetHistory)
			r.Get("/{id}", h.Polls.GetPoll)
			r.With(presenter).Post("/{id}/close", h.Polls.ClosePoll)
			r.Post("/{id}/votes", h.Votes.VoteOnPoll)
		})

		r.Route("/respondents", func(r chi.Router) {
			r.Post("/", h.Respondents.Register)
			r.Get("/", h.Respondents.List)
			r.With(presenter).Delete("/{id}", h.Respondents.Remove)
		})
	})

	return r
}
