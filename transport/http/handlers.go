package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// Register handles identity registration.
func (h *AuthHandlers) Register(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Registration failed"

		switch {
		case errors.Is(err, core.ErrInvalidIdentifier):
			status = http.StatusBadRequest
			msg = "Invalid identifier"
		case errors.Is(err, core.ErrWeakPassword):
			status = http.StatusBadRequest
			msg = "Password does not meet policy"
		case errors.Is(err, core.ErrIdentifierTaken):
			status = http.StatusConflict
			msg = "Identifier already registered"
		}

		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"identity_id":   result.IdentityID,
		"identifier":    result.Identifier,
		"public_key":    result.PublicKey,
		"access_token":  result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(service.DefaultAccessTTL.Seconds()),
	})
}

// Login handles the login request. Credential failures are deliberately
// generic so the caller cannot tell which check failed.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity_id":           result.IdentityID,
		"identifier":            result.Identifier,
		"public_key":            result.PublicKey,
		"encrypted_private_key": result.EncryptedPrivateKey,
		"access_token":          result.Tokens.AccessToken,
		"refresh_token":         result.Tokens.RefreshToken,
		"token_type":            "Bearer",
		"expires_in":            int(service.DefaultAccessTTL.Seconds()),
	})
}

// Refresh handles token rotation.
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	_, tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		status := http.StatusUnauthorized
		msg := "Invalid refresh token"

		if errors.Is(err, core.ErrTokenExpired) {
			msg = "Refresh token expired"
		}

		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(service.DefaultAccessTTL.Seconds()),
	})
}

// Logout handles session logout. It is idempotent: an already-dead session
// still reports success.
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.authService.LogoutToken(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated identity.
func (h *AuthHandlers) Me(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity_id": session.IdentityID,
		"identifier":  session.Identifier,
		"public_key":  session.PublicKey,
	})
}
