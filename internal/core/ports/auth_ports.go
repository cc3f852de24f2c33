package ports

import "context"

type AuthService interface {
	// LoginPresenter exchanges the presenter key for a signed access token.
	LoginPresenter(ctx context.Context, key string) (string, error)
	VerifyAccessToken(token string) error
	Enabled() bool
}
