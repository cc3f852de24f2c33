package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

func TestAuthService_LoginAndVerify(t *testing.T) {
	clock := newFakeClock()
	svc := NewAuthService("letmein", "test-secret", time.Hour, clock.Now)
	require.True(t, svc.Enabled())

	_, err := svc.LoginPresenter(context.Background(), "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	token, err := svc.LoginPresenter(context.Background(), "letmein")
	require.NoError(t, err)
	assert.NoError(t, svc.VerifyAccessToken(token))

	clock.Advance(2 * time.Hour)
	assert.ErrorIs(t, svc.VerifyAccessToken(token), domain.ErrUnauthorized)
}

func TestAuthService_RejectsForeignTokens(t *testing.T) {
	clock := newFakeClock()
	svc := NewAuthService("letmein", "test-secret", time.Hour, clock.Now)
	other := NewAuthService("letmein", "other-secret", time.Hour, clock.Now)

	token, err := other.LoginPresenter(context.Background(), "letmein")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.VerifyAccessToken(token), domain.ErrUnauthorized)
	assert.ErrorIs(t, svc.VerifyAccessToken("garbage"), domain.ErrUnauthorized)
}

func TestAuthService_Disabled(t *testing.T) {
	svc := NewAuthService("", "", 0, nil)
	assert.False(t, svc.Enabled())

	_, err := svc.LoginPresenter(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
