package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/yash1732/gigguard/internal/pkg/metrics"
)

// triggerTimeout bounds a whole SOS resolution including persistence.
// The engine's own budget is lower and returns partial results first.
const triggerTimeout = 60 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// Deprecation headers for pre-v1 paths
	app.Use(DeprecationMiddleware(LegacyRoutes))

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	trigger := timeout.NewWithContext(TriggerSOSHandler(deps), triggerTimeout)

	v1 := app.Group("/v1")
	v1.Post("/sos/trigger", trigger)
	v1.Get("/sos/active", timeout.NewWithContext(ActiveSOSHandler(deps), 15*time.Second))
	v1.Get("/sos/:id", timeout.NewWithContext(GetSOSHandler(deps), 15*time.Second))
	v1.Get("/sos", timeout.NewWithContext(ListSOSHandler(deps), 15*time.Second))
	v1.Post("/sos/:id/ack", timeout.NewWithContext(AckSOSHandler(deps), 15*time.Second))
	v1.Get("/emergency/nearby", timeout.NewWithContext(NearbyHandler(deps), triggerTimeout))

	// Path used by the first mobile release
	app.Post("/api/sos/trigger", trigger)

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, DefaultSpecPath)

	// WebSocket
	if deps.NATS == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
