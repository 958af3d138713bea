package handler

import (
	"net/http"
	"time"

	"moral-torture-machine/internal/middleware"
	"moral-torture-machine/internal/models"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// RouterConfig controls the middleware stack of the API router.
type RouterConfig struct {
	Env            string
	AllowedOrigins []string
	// RateLimitStore counts AI requests per client IP. Nil disables the limit.
	RateLimitStore rateli.Store
	Metrics        bool
}

// NewRateLimitStore builds the per-IP store for the AI endpoints. Without a
// Redis client the counters are kept in memory.
func NewRateLimitStore(client *redis.Client, limit uint, window time.Duration) rateli.Store {
	if client != nil {
		return rateli.RedisStore(&rateli.RedisOptions{
			RedisClient: client,
			Rate:        window,
			Limit:       limit,
		})
	}
	return rateli.InMemoryStore(&rateli.InMemoryOptions{
		Rate:  window,
		Limit: limit,
	})
}

// NewRouter builds the gin engine serving h.
func NewRouter(cfg RouterConfig, h *APIHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.GinZapLogger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Session())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		logger.Info("CORS allow-list empty, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", middleware.SessionHeader, "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	if cfg.Metrics {
		// Registered before the routes: gin only applies middleware to routes added after it.
		p := ginprometheus.NewPrometheus("gin")
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if route := c.FullPath(); route != "" {
				return route
			}
			return "unknown"
		}
		p.Use(router)
	}

	h.RegisterRoutes(router, aiRateLimiter(cfg.RateLimitStore, logger))
	return router
}

func aiRateLimiter(store rateli.Store, logger *zap.Logger) gin.HandlerFunc {
	if store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rateli.RateLimiter(store, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			logger.Warn("Rate limit exceeded",
				zap.String("path", c.Request.URL.Path),
				zap.Time("resetTime", info.ResetTime),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    models.ErrCodeRateLimited,
				Message: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
