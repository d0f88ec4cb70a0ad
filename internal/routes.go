package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "musicpage/api/v1"
	"musicpage/internal/config"
	"musicpage/internal/http"
	"musicpage/internal/http/middleware"
)

// publicCORSConfig returns the standard CORS configuration for public endpoints.
// The beacon is posted from the artist site, which may live on another origin.
var publicCORSConfig = &cors.Config{
	AllowOrigins:     "*",
	AllowMethods:     "POST,GET,OPTIONS",
	AllowHeaders:     "Origin, Content-Type, Accept, Referrer, User-Agent",
	AllowCredentials: false,
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()
	logger := srv.GetLogger()

	// Rate limiting would interfere with tests and local development.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 120 beacons per minute per IP covers a visitor browsing quickly.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CustomMiddleware:   []fiber.Handler{publicRateLimiter},
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	scriptConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	adminAPIConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware: []fiber.Handler{
			middleware.AdminAPIKeyAuth(cfg.AdminAPIKey, logger),
		},
	}

	// === HEALTH ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)
	srv.Get("/robots.txt", http.RobotsAction)

	// === PUBLIC TRACKING ===
	srv.Post("/api/track", v1.TrackAction, publicAPIConfig)
	srv.Options("/api/track", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)
	srv.Get("/api/track.js", v1.TrackerScriptAction, scriptConfig)

	// === METRICS ===
	metricsHandler := adaptor.HTTPHandler(promhttp.Handler())
	srv.Get("/metrics", func(ctx *cartridge.Context) error {
		return metricsHandler(ctx.Ctx)
	}, adminAPIConfig)

	// === ADMIN ANALYTICS API ===
	srv.Get("/admin/api/analytics/overview", http.AnalyticsOverviewAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/albums", http.AnalyticsAlbumsAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/albums/:id", http.AnalyticsAlbumAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/platforms", http.AnalyticsPlatformsAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/countries", http.AnalyticsCountriesAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/events", http.AnalyticsEventsAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/updates", http.AnalyticsUpdatesAction, adminAPIConfig)

	// === ADMIN SETTINGS API ===
	srv.Get("/admin/api/settings", http.SettingsIndexAction, adminAPIConfig)
	srv.Post("/admin/api/settings/:key", http.SettingsUpdateAction, adminAPIConfig)
}
