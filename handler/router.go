package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kochabx/membership/core/auth"
	"github.com/kochabx/membership/member"
	middleware "github.com/kochabx/membership/middleware/http"
)

// RouterConfig configures the HTTP router.
type RouterConfig struct {
	Mode string // gin mode: debug, release, test
}

// NewRouter assembles the gin engine: recovery, CORS and request logging
// on every route, then the authentication gate in front of the API.
func NewRouter(cfg RouterConfig, authSvc *auth.Service, members *member.Service) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(),
		middleware.Cors(),
		middleware.Logger(middleware.LoggerConfig{
			SkipPaths: []string{"/health", "/metrics"},
		}),
		middleware.Auth(middleware.AuthConfig{
			Auth: authSvc,
			SkippedPathPrefixes: []string{
				"/health",
				"/metrics",
				"/api/auth/login",
				"/api/auth/refresh",
			},
		}),
	)

	authHandler := NewAuthHandler(authSvc)
	memberHandler := NewMemberHandler(members, authSvc)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)

		authed := authGroup.Group("", middleware.RequireAuth())
		{
			authed.POST("/logout-all", authHandler.LogoutAll)
			authed.GET("/sessions", authHandler.Sessions)
			authed.DELETE("/sessions/:id", authHandler.RevokeSession)
		}
	}

	memberGroup := api.Group("/members")
	{
		memberGroup.POST("", memberHandler.Register)

		authed := memberGroup.Group("", middleware.RequireAuth())
		{
			authed.GET("/:id", memberHandler.Get)
			authed.PUT("/:id", memberHandler.Update)
			authed.POST("/:id/password", memberHandler.ChangePassword)

			admin := authed.Group("", middleware.RequireAuthority(member.RoleAdmin))
			{
				admin.GET("", memberHandler.List)
				admin.DELETE("/:id", memberHandler.Delete)
				admin.PUT("/:id/status", memberHandler.SetStatus)
			}
		}
	}

	return r
}
