package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ltgsite/internal/admin"
	"ltgsite/internal/api/middleware"
	"ltgsite/internal/auth"
	"ltgsite/internal/errcode"
)

// Authenticator signs admins in and out. *auth.AuthService satisfies it.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	authService Authenticator
	sessions    *admin.Sessions
	limiter     LoginLimiter
	logger      *slog.Logger
}

// LoginLimiter counts login attempts per key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

func NewAuthHandler(authService Authenticator, sessions *admin.Sessions, limiter LoginLimiter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		limiter:     limiter,
		logger:      logger,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Email        string `json:"email"`
}

// Login checks the credentials with the hosted auth service.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Bitte E-Mail und Passwort eingeben.")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerOr(c, h.logger).With(slog.String("email", req.Email))

	if h.limiter != nil {
		key := c.ClientIP() + ":" + strings.ToLower(strings.TrimSpace(req.Email))
		if ok, err := h.limiter.Allow(ctx, key); err == nil && !ok {
			Error(c, http.StatusTooManyRequests, "Zu viele Anmeldeversuche. Bitte später erneut versuchen.")
			return
		}
	}

	sess, err := h.authService.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.Info("login failed", slog.Any("error", err))
			Error(c, http.StatusUnauthorized, "Login fehlgeschlagen. Bitte Zugangsdaten prüfen.")
			return
		}
		if !errcode.Is(err, errcode.Validation) {
			logger.Error("login error", slog.Any("error", err))
		}
		RespondError(c, err)
		return
	}

	logger.Info("admin logged in", slog.String("user_id", sess.UserID))
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    sess.ExpiresIn,
		Email:        sess.Email,
	})
}

// Logout asks for confirmation when the tab's form is dirty, then ends the
// hosted session and forgets the tab.
func (h *AuthHandler) Logout(c *gin.Context) {
	logger := middleware.LoggerOr(c, h.logger)
	tabID := strings.TrimSpace(c.GetHeader(middleware.TabIDHeader))

	if tabID != "" && h.sessions != nil {
		sess, _ := h.sessions.Get(tabID)
		if err := sess.Controller.Logout(confirmFrom(c)); err != nil {
			RespondError(c, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	if err := h.authService.SignOut(ctx, middleware.AccessToken(c)); err != nil {
		// the local session ends regardless
		logger.Warn("sign out failed", slog.Any("error", err))
	}
	if tabID != "" && h.sessions != nil {
		h.sessions.Remove(tabID)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
