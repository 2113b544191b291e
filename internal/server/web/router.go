// Package web assembles the HTTP surface: the gin router with its middleware
// chain and the server lifecycle around it.
package web

import (
	"github.com/gin-gonic/gin"

	"github.com/convodesk/convoauth/internal/server/auth"
	"github.com/convodesk/convoauth/internal/server/web/handlers"
	"github.com/convodesk/convoauth/internal/server/web/middleware"
)

// NewRouter builds the route table. TenantContext runs on every request so
// any handler can pick up the caller's scope; only /auth/me sits behind the
// strict gate.
func NewRouter(h *handlers.AuthHandler, issuer *auth.Issuer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TenantContext(issuer))

	g := r.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.GET("/me", middleware.RequireAuth(issuer), h.Me)

	return r
}
