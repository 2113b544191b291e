// Package handlers implements the HTTP endpoints of the auth surface.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/convodesk/convoauth/internal/common"
	"github.com/convodesk/convoauth/internal/logging"
	"github.com/convodesk/convoauth/internal/server/scope"
	"github.com/convodesk/convoauth/internal/server/services"
)

const refreshCookieName = "refresh_token"

// refreshCookiePath limits the refresh cookie to the one endpoint that
// consumes it, so the long-lived credential rides along on no other request.
const refreshCookiePath = "/auth/refresh"

type authService interface {
	Register(ctx context.Context, businessName, name, email, password string) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
}

type sessionService interface {
	Rotate(ctx context.Context, rawToken string) (*services.TokenPair, error)
	Revoke(ctx context.Context, rawToken string) error
}

type AuthHandler struct {
	auth       authService
	sessions   sessionService
	refreshTTL time.Duration
	logger     logging.Logger
}

// NewAuthHandler wires the endpoint set. refreshTTL caps the browser
// lifetime of the refresh cookie and should match the ledger expiry the
// services stamp on each record, so the cookie and the record die together.
func NewAuthHandler(auth authService, sessions sessionService, refreshTTL time.Duration, logger logging.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		sessions:   sessions,
		refreshTTL: refreshTTL,
		logger:     logger.With("module", "auth_handler"),
	}
}

type registerRequest struct {
	BusinessName string `json:"businessName" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	AccessToken          string         `json:"accessToken"`
	AccessTokenExpiresIn int            `json:"accessTokenExpiresIn"`
	User                 userResponse   `json:"user"`
	Tenant               tenantResponse `json:"tenant"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tenantResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newSessionResponse(s *services.Session) sessionResponse {
	return sessionResponse{
		AccessToken:          s.Tokens.AccessToken,
		AccessTokenExpiresIn: s.Tokens.AccessTokenExpiresIn,
		User:                 userResponse{ID: s.User.ID, Email: s.User.Email, Name: s.User.Name},
		Tenant:               tenantResponse{ID: s.Tenant.ID, Name: s.Tenant.Name},
	}
}

// Register creates a tenant with its admin user and opens the first session.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": common.ErrValidation.Error()})
		return
	}

	session, err := h.auth.Register(c.Request.Context(), req.BusinessName, req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setRefreshCookie(c, session.Tokens.RefreshToken)
	c.JSON(http.StatusCreated, newSessionResponse(session))
}

// Login verifies credentials and opens a new session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": common.ErrValidation.Error()})
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setRefreshCookie(c, session.Tokens.RefreshToken)
	c.JSON(http.StatusOK, newSessionResponse(session))
}

// Refresh rotates the refresh token held in the cookie and returns a fresh
// access token. The client never sees the refresh token in the body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookieName)
	if err != nil || raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": common.ErrInvalidToken.Error()})
		return
	}

	pair, err := h.sessions.Rotate(c.Request.Context(), raw)
	if err != nil {
		h.clearRefreshCookie(c)
		h.writeError(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"accessToken":          pair.AccessToken,
		"accessTokenExpiresIn": pair.AccessTokenExpiresIn,
	})
}

// Logout revokes the session of the refresh cookie, if present, and clears
// the cookie. Always 204: logging out twice is not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw, _ := c.Cookie(refreshCookieName)

	if err := h.sessions.Revoke(c.Request.Context(), raw); err != nil {
		h.logger.Error(c.Request.Context(), "logout revocation failed", "error", err.Error())
	}

	h.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

// Me returns the identity attached to the request by the auth gate.
func (h *AuthHandler) Me(c *gin.Context) {
	s, ok := scope.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": common.ErrInvalidToken.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":   s.UserID,
		"tenantId": s.TenantID,
		"email":    s.Email,
		"role":     s.Role,
	})
}

func (h *AuthHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrEmailAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrSessionExpiredOrRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.logger.Error(c.Request.Context(), "request failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
