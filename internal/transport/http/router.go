// Package http is the gin transport in front of the auth engine. It does
// request decoding, status mapping and header plumbing only; every rule
// that matters lives in internal/auth.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/keygate/keygate/internal/auth"
)

type RouterOpts struct {
	Logger      *zap.Logger
	CORSOrigins []string
	Health      func(context.Context) error
}

func NewRouter(engine *auth.Engine, o RouterOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestID())
	if len(o.CORSOrigins) > 0 {
		r.Use(CORS(o.CORSOrigins))
	}

	h := NewAuthHandler(engine, o.Logger)

	api := r.Group("/api/auth")
	api.POST("/signup", h.Signup)
	api.POST("/login", h.Login)
	api.POST("/refresh", h.Refresh)
	// Logout authenticates inside the engine, so it is not mounted behind
	// the middleware; that avoids resolving the user twice.
	api.POST("/logout", h.Logout)

	protected := api.Group("/")
	protected.Use(AuthMiddleware(engine))
	protected.GET("/profile", h.Profile)

	r.GET("/health", func(c *gin.Context) {
		if o.Health != nil {
			if err := o.Health(c.Request.Context()); err != nil {
				respondErr(c, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		respondOK(c, http.StatusOK, "server is healthy", nil)
	})

	return r
}
