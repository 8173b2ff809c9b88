package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/mixmint/mixmint-downloads/internal/api/middleware"
)

// SetupRoutes configures all REST API routes.
// downloadLimit guards the unauthenticated redemption route.
func SetupRoutes(router *gin.Engine, handler Handler, auth *middleware.Authenticator, downloadLimit gin.HandlerFunc) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Download token issuance (requires a user session)
		v1.POST("/downloads/tokens", middleware.Auth(auth), handler.IssueToken)

		// Token redemption: the token is the credential, requests are IP rate limited
		v1.GET("/downloads/file", downloadLimit, handler.DownloadFile)

		// Entitlement check (requires a user session)
		v1.GET("/access/:content_type/:content_id", middleware.Auth(auth), handler.CheckAccess)

		// File upload by the owning DJ (requires a user session)
		v1.POST("/uploads/:content_type/:content_id", middleware.Auth(auth), handler.Upload)

		// Platform settings (requires API key authentication only)
		v1.PUT("/admin/settings", middleware.APIKeyAuth(auth), handler.UpdateSettings)
	}
}
