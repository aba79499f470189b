package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wikigen-ai/backend-go/internal/handler"
	"github.com/wikigen-ai/backend-go/internal/middleware"
)

func SetupRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	r := gin.Default()
	r.SetTrustedProxies(nil)

	// Public routes
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Auth routes (Public)
	authGroup := r.Group("/api/v1/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/validate", authHandler.Validate)
		authGroup.POST("/refresh", authHandler.RefreshToken)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/status", authHandler.Status)
	}

	// Protected routes (bearer token)
	protected := r.Group("/api/v1/auth")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/me", userHandler.Me)
		protected.PUT("/me", userHandler.UpdateMe)
		protected.POST("/change-password", userHandler.ChangePassword)
		protected.GET("/sessions", userHandler.ListSessions)
		protected.DELETE("/sessions/:session_id", userHandler.RevokeSession)
	}

	return r
}
