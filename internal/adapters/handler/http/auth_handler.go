package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const accessTokenCookie = "access_token"

type AuthHandler struct {
	authService    ports.AuthService
	tokenTTL       time.Duration
	cookieSecure   bool
	cookieSameSite http.SameSite
}

func NewAuthHandler(authService ports.AuthService, tokenTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		tokenTTL:       tokenTTL,
		cookieSecure:   cookieSecure,
		cookieSameSite: http.SameSiteLaxMode,
	}
}

type presenterLoginRequest struct {
	Key string `json:"key"`
}

type presenterLoginResponse struct {
	AccessToken string `json:"access_token"`
}

// LoginPresenter exchanges the presenter key for an access token, returned
// both as a cookie and in the body.
func (h *AuthHandler) LoginPresenter(w http.ResponseWriter, r *http.Request) {
	var req presenterLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	token, err := h.authService.LoginPresenter(r.Context(), req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: h.cookieSameSite,
		MaxAge:   int(h.tokenTTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, presenterLoginResponse{AccessToken: token})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, MaxAge: -1, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
