// Package auth signs admins in against the hosted auth service and validates
// the access tokens it issues.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	supabase "github.com/nedpals/supabase-go"

	"ltgsite/internal/backend"
	"ltgsite/internal/errcode"
)

// AuthenticatedRole is the role claim of a signed-in user.
const AuthenticatedRole = "authenticated"

// ErrInvalidCredentials is returned when the auth service rejects a login.
var ErrInvalidCredentials = errors.New("invalid login credentials")

// Authenticator is the part of the hosted auth API used here.
// *supabase.Auth satisfies it.
type Authenticator interface {
	SignIn(ctx context.Context, credentials supabase.UserCredentials) (*supabase.AuthenticatedDetails, error)
	SignOut(ctx context.Context, userToken string) error
}

// Session is the result of a successful login.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	UserID       string
	Email        string
}

// TokenClaims are the claims of a hosted-auth access token.
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService wraps sign-in/out and token validation.
type AuthService struct {
	client Authenticator
	secret []byte
	now    func() time.Time
}

// NewAuthService validates creds and builds the SDK client.
func NewAuthService(creds backend.Credentials, jwtSecret string) (*AuthService, error) {
	if err := backend.ValidateCredentials(creds); err != nil {
		return nil, err
	}
	client := supabase.CreateClient(creds.URL, creds.Key)
	if client == nil || client.Auth == nil {
		return nil, errcode.ConfigurationError("auth.init", "Auth-Client nicht verfügbar.")
	}
	return NewAuthServiceWith(client.Auth, jwtSecret)
}

// NewAuthServiceWith uses an existing Authenticator.
func NewAuthServiceWith(client Authenticator, jwtSecret string) (*AuthService, error) {
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, errcode.ConfigurationError("auth.init", "SUPABASE_JWT_SECRET fehlt.")
	}
	return &AuthService{client: client, secret: []byte(jwtSecret), now: time.Now}, nil
}

// SignIn exchanges email and password for a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errcode.ValidationError("auth.signin", "Bitte E-Mail und Passwort eingeben.")
	}

	details, err := s.client.SignIn(ctx, supabase.UserCredentials{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if details == nil || details.AccessToken == "" {
		return nil, ErrInvalidCredentials
	}

	return &Session{
		AccessToken:  details.AccessToken,
		RefreshToken: details.RefreshToken,
		ExpiresIn:    details.ExpiresIn,
		UserID:       details.User.ID,
		Email:        details.User.Email,
	}, nil
}

// SignOut revokes the session behind accessToken.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	if err := s.client.SignOut(ctx, accessToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// ValidateToken parses and verifies an HS256 access token.
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role != AuthenticatedRole {
		return nil, fmt.Errorf("unexpected role %q", claims.Role)
	}
	if claims.Subject == "" {
		return nil, errors.New("token subject missing")
	}
	return claims, nil
}
