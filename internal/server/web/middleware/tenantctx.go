// Package middleware provides the two access-token layers of the HTTP
// surface: TenantContext, which optimistically scopes a request to a tenant,
// and RequireAuth, which gates protected routes.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/convodesk/convoauth/internal/server/auth"
	"github.com/convodesk/convoauth/internal/server/scope"
)

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
// Returns "" when the header is absent or malformed.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// TenantContext decodes the bearer token, if any, and attaches the caller's
// scope to the request context. It never rejects a request: a missing,
// expired or forged token simply leaves the request unscoped, and routes
// that need a verified identity sit behind RequireAuth. The scope is rebuilt
// from the token on every request and carried only in the request context,
// never in connection state.
func TenantContext(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			if claims, err := issuer.ParseAccessToken(raw); err == nil {
				ctx := scope.WithScope(c.Request.Context(), scope.Scope{
					UserID:   claims.Subject,
					TenantID: claims.TenantID,
					Email:    claims.Email,
					Role:     claims.Role,
				})
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}
