package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/internal/config"
)

func newTokenService(ttl time.Duration) *Service {
	return NewService(nil, config.SecurityConfig{
		JWTSecret: "test-secret",
		TokenTTL:  ttl,
	}, zap.NewNop())
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTokenService(time.Hour)
	user := &User{ID: uuid.New(), Email: "dev@acme.example"}

	token, err := svc.issueToken(user)
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
}

func TestParseTokenRejectsTampering(t *testing.T) {
	svc := newTokenService(time.Hour)
	token, err := svc.issueToken(&User{ID: uuid.New(), Email: "dev@acme.example"})
	require.NoError(t, err)

	_, err = svc.ParseToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := newTokenService(time.Hour)
	token, err := issuer.issueToken(&User{ID: uuid.New()})
	require.NoError(t, err)

	verifier := NewService(nil, config.SecurityConfig{
		JWTSecret: "other-secret",
		TokenTTL:  time.Hour,
	}, zap.NewNop())

	_, err = verifier.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := newTokenService(-time.Minute)
	token, err := svc.issueToken(&User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
