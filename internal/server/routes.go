package server

import (
	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/server/middleware"
	v1 "github.com/nulzo/model-registry/internal/server/v1"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) SetupRoutes() {
	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)

	api := s.router.Group("/api/v1")
	api.Use(limiter.Middleware())
	api.Use(middleware.Auth(middleware.AuthConfig{
		APIKeys:   s.config.Server.APIKeys,
		AdminKeys: s.config.Server.AdminKeys,
		JWTSecret: s.config.Auth.JWTSecret,
	}))

	models := v1.NewModelHandler(s.service)
	settings := v1.NewSettingsHandler(s.service)

	api.GET("/models", models.ListVisible)

	// the registry repeats the admin check for callers outside HTTP
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/models", models.ListCatalog)
		admin.POST("/models", models.RegisterChat)
		admin.POST("/models/fetch", models.Fetch)
		admin.POST("/models/embedding", models.RegisterEmbedding)
		admin.POST("/models/hide", models.Hide)
		admin.POST("/models/delete", models.Delete)

		admin.GET("/settings", settings.Get)
		admin.PUT("/settings", settings.Update)
	}
}
