// Package httpapi wires the HTTP transport (Gin) to the bot and the record
// store. It centralizes cross-cutting concerns such as tracing, correlation
// IDs, logging, panic recovery, metrics, CORS, security headers, and rate
// limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - The Telegram webhook stays outside the rate limiter and CORS: Telegram
//     retries throttled deliveries forever and never sends an Origin
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-repair-bot/internal/config"
	"github.com/tbourn/go-repair-bot/internal/http/handlers"
	"github.com/tbourn/go-repair-bot/internal/http/middleware"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: the Telegram webhook, the public requests view, the token-guarded
// operator API, plus health, metrics, and (optionally) Swagger UI.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//
// Rate limiting, CORS and security headers are applied per route group so the
// webhook path stays exempt.
func RegisterRoutes(r *gin.Engine, st handlers.RequestStore, b handlers.UpdateHandler, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(st, b)

	// Telegram webhook: no rate limiting, no CORS. Telegram authenticates
	// itself by knowing the (secret-ish) path.
	r.POST(cfg.Bot.WebhookPath, h.Webhook)

	security := middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	})
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())

	// Public requests view (HTML, gzipped).
	view := r.Group("/requests")
	view.Use(rl.Handler(), security, gzip.Gzip(gzip.DefaultCompression))
	view.GET("", h.ViewRequests)

	// Operator API, guarded by a shared token.
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(rl.Handler(), corsFor(cfg), security, middleware.OperatorAuth(cfg.OperatorToken))
	{
		api.GET("/requests", h.ListRequests)
		api.DELETE("/requests/:id", h.DeleteRequest)
		api.GET("/requests/export", h.ExportRequests)
	}

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// corsFor builds the CORS posture for the operator API: allow-all when no
// origins are configured, strict allowlist otherwise.
func corsFor(cfg config.Config) gin.HandlerFunc {
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderOperatorToken,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		return cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		})
	}
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "DELETE", "OPTIONS"},
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies make downstream reads fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
