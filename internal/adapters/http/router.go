package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/crimestat/crimestat/internal/pkg/metrics"
)

// RequestTimeout bounds every /v1 handler except health checks.
const RequestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP. Pointer moves are
	// excluded; a drawing client sends them continuously.
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/v1/sessions/") && strings.HasSuffix(c.Path(), "/pointer/move")
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

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, RequestTimeout)
	}

	// Map sessions
	v1.Post("/sessions", withTimeout(CreateSessionHandler(deps)))
	v1.Get("/sessions/:id", withTimeout(GetSessionHandler(deps)))
	v1.Delete("/sessions/:id", withTimeout(DeleteSessionHandler(deps)))
	v1.Post("/sessions/:id/draw/toggle", withTimeout(ToggleDrawHandler(deps)))
	v1.Post("/sessions/:id/pointer/click", withTimeout(PointerClickHandler(deps)))
	v1.Post("/sessions/:id/pointer/move", withTimeout(PointerMoveHandler(deps)))
	v1.Post("/sessions/:id/month", withTimeout(SelectMonthHandler(deps)))
	v1.Post("/sessions/:id/mode", withTimeout(RenderModeHandler(deps)))
	v1.Get("/sessions/:id/markers", withTimeout(MarkersHandler(deps)))
	v1.Get("/sessions/:id/heat", withTimeout(HeatHandler(deps)))
	v1.Get("/sessions/:id/heat.png", withTimeout(HeatPNGHandler(deps)))
	v1.Get("/sessions/:id/area.geojson", withTimeout(AreaGeoJSONHandler(deps)))
	v1.Get("/sessions/:id/crimes.geojson", withTimeout(CrimesGeoJSONHandler(deps)))
	v1.Get("/sessions/:id/handoff", withTimeout(HandoffHandler(deps)))

	// Statistics view
	v1.Get("/statistics", withTimeout(StatisticsHandler(deps)))
	v1.Get("/statistics/chart.png", withTimeout(StatisticsChartHandler(deps)))

	// Reference data
	v1.Get("/categories", CategoriesHandler())
	v1.Get("/months", MonthsHandler())
	v1.Get("/queries/recent", withTimeout(RecentQueriesHandler(deps)))

	// Trends
	v1.Post("/trends", withTimeout(StartTrendHandler(deps)))
	v1.Get("/trends/:id", withTimeout(GetTrendHandler(deps)))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", WebSocketUpgrade(deps))
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
