package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convodesk/convoauth/internal/server/auth"
	"github.com/convodesk/convoauth/internal/server/scope"
)

// RequireAuth verifies the bearer token itself and aborts with 401 when it
// is missing or invalid. It does not trust whatever TenantContext may have
// attached earlier in the chain.
func RequireAuth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		claims, err := issuer.ParseAccessToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		ctx := scope.WithScope(c.Request.Context(), scope.Scope{
			UserID:   claims.Subject,
			TenantID: claims.TenantID,
			Email:    claims.Email,
			Role:     claims.Role,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
