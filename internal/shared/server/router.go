package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-matcher/internal/batch"
	"resume-matcher/internal/services/health"
	"resume-matcher/internal/shared/config"
	"resume-matcher/internal/shared/metrics"
	"resume-matcher/internal/shared/server/middleware"
	"resume-matcher/internal/shared/server/respond"
)

const rateGroupMatch = "MATCH"

// RouterDeps holds the handlers the router mounts. A nil MatchHandler leaves the match
// routes unregistered.
type RouterDeps struct {
	Config       config.Config
	MatchHandler *batch.Handler
	Health       *health.Service
	RateLimiter  *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = batch.MaxUploadBytes

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: deps.RateLimiter,
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && (c.FullPath() == "/api/v1/match" || c.FullPath() == "/api/v1/match/from-store") {
					return rateGroupMatch
				}
				return ""
			},
			Rules: map[string]middleware.RateLimitRule{
				rateGroupMatch: {Rate: 0.5, Burst: 5},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, deps.Health.Status(c.Request.Context()))
	})
	if deps.MatchHandler != nil {
		deps.MatchHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
