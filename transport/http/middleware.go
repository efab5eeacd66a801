package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/service"
)

const sessionContextKey = "session"

// AuthMiddleware creates middleware that validates access tokens. Expiry is
// reported distinctly so clients know a refresh is worth attempting.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if len(auth) < 8 || auth[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		token := auth[7:]

		session, err := authService.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, core.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set(sessionContextKey, session)

		c.Next()
	}
}

// sessionFromContext returns the session installed by AuthMiddleware, or nil.
func sessionFromContext(c *gin.Context) *core.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	session, ok := v.(*core.Session)
	if !ok {
		return nil
	}
	return session
}
