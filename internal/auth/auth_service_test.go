package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	supabase "github.com/nedpals/supabase-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ltgsite/internal/errcode"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

type fakeAuth struct {
	signInErr  error
	signedOut  string
	signInCall int
}

func (f *fakeAuth) SignIn(_ context.Context, c supabase.UserCredentials) (*supabase.AuthenticatedDetails, error) {
	f.signInCall++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &supabase.AuthenticatedDetails{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		User:         supabase.User{ID: "user-1", Email: c.Email},
	}, nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = token
	return nil
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims TokenClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(now time.Time) TokenClaims {
	return TokenClaims{
		Email: "admin@example.de",
		Role:  AuthenticatedRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestNewAuthServiceWith_RequiresSecret(t *testing.T) {
	_, err := NewAuthServiceWith(&fakeAuth{}, " ")
	assert.True(t, errcode.Is(err, errcode.Configuration))
}

func TestSignIn(t *testing.T) {
	fake := &fakeAuth{}
	svc, err := NewAuthServiceWith(fake, testSecret)
	require.NoError(t, err)

	_, err = svc.SignIn(context.Background(), "", "pw")
	assert.True(t, errcode.Is(err, errcode.Validation))
	assert.Zero(t, fake.signInCall)

	sess, err := svc.SignIn(context.Background(), " admin@example.de ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "access", sess.AccessToken)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "admin@example.de", sess.Email)

	fake.signInErr = errors.New("Invalid login credentials")
	_, err = svc.SignIn(context.Background(), "admin@example.de", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.SignOut(context.Background(), "access"))
	assert.Equal(t, "access", fake.signedOut)
}

func TestValidateToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewAuthServiceWith(&fakeAuth{}, testSecret)
	require.NoError(t, err)
	svc.now = func() time.Time { return now }

	claims, err := svc.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(now)))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	expired := validClaims(now.Add(-2 * time.Hour))
	_, err = svc.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired))
	assert.Error(t, err)

	anon := validClaims(now)
	anon.Role = "anon"
	_, err = svc.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte(testSecret), anon))
	assert.Error(t, err)

	_, err = svc.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte("other-secret"), validClaims(now)))
	assert.Error(t, err)

	_, err = svc.ValidateToken(sign(t, jwt.SigningMethodHS384, []byte(testSecret), validClaims(now)))
	assert.Error(t, err)

	_, err = svc.ValidateToken("")
	assert.Error(t, err)
}
