package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type contextKey string

// SessionKey holds the respondent session token taken from the
// X-Session-Token header.
const SessionKey contextKey = "session"

const sessionHeader = "X-Session-Token"

func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := strings.TrimSpace(r.Header.Get(sessionHeader)); token != "" {
			r = r.WithContext(context.WithValue(r.Context(), SessionKey, token))
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePresenter rejects requests without a valid presenter token. When
// presenter auth is disabled every request passes.
func RequirePresenter(auth ports.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			if err := auth.VerifyAccessToken(presenterToken(r)); err != nil {
				writeError(w, r, domain.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presenterToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
