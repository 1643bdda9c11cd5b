package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nearby/internal/api/handlers"
	"nearby/internal/api/middleware"
	"nearby/internal/metrics"
)

type Router struct {
	locationHandler *handlers.LocationHandler
	matchHandler    *handlers.MatchHandler
	healthHandler   *handlers.HealthHandler
	verifier        middleware.TokenVerifier
	log             *zap.Logger
}

func NewRouter(
	locationHandler *handlers.LocationHandler,
	matchHandler *handlers.MatchHandler,
	healthHandler *handlers.HealthHandler,
	verifier middleware.TokenVerifier,
	log *zap.Logger,
) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		locationHandler: locationHandler,
		matchHandler:    matchHandler,
		healthHandler:   healthHandler,
		verifier:        verifier,
		log:             log,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.RequestLogger(r.log), metrics.Middleware(), gin.Recovery())

	engine.GET("/health", r.healthHandler.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes
	api := engine.Group("/api/v1")
	api.Use(middleware.Auth(r.verifier))
	{
		api.GET("/location", r.locationHandler.GetLocation)
		api.PUT("/location", r.locationHandler.UpdateLocation)
		api.PUT("/tags", r.locationHandler.UpdateTags)

		api.POST("/nearby", r.matchHandler.Nearby)
		api.GET("/explore", r.matchHandler.Explore)
	}
}
