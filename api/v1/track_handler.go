package v1

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"

	"musicpage/internal/config"
	"musicpage/internal/tracking"
)

const errInvalidJSON = "Invalid JSON body"

// TrackParams is the beacon body accepted by POST /api/track.
type TrackParams struct {
	EventType  tracking.EventType  `json:"event_type"`
	EntityType tracking.EntityType `json:"entity_type"`
	EntityID   string              `json:"entity_id"`
	SessionID  string              `json:"session_id"`
	Metadata   map[string]any      `json:"metadata"`
}

// TrackAction ingests one tracking beacon. Malformed bodies get a 400 with an
// error message; everything else, including storage failures, gets an empty 204.
func TrackAction(ctx *cartridge.Context) error {
	var params TrackParams
	if err := json.Unmarshal(ctx.Body(), &params); err != nil {
		ctx.Logger.Debug("Invalid tracking body", slog.Any("error", err))
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errInvalidJSON})
	}

	params.EntityID = strings.TrimSpace(params.EntityID)
	input := &tracking.CollectEventInput{
		EventType:  params.EventType,
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		Metadata:   params.Metadata,
	}
	if err := input.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	cfg := config.GetConfig()
	input.SessionID = resolveSession(ctx, cfg, params.SessionID)
	input.UserAgent = userAgent(ctx)
	input.Referrer = strings.TrimSpace(ctx.Get(fiber.HeaderReferer))
	input.IPAddress = clientIP(ctx.Ctx)
	input.Country, input.City = tracking.GeoFromHeaders(func(h string) string { return ctx.Get(h) })

	collector := tracking.DefaultCollector(ctx.Logger)
	outcome, err := collector.Collect(ctx.UserContext(), ctx.DBManager, ctx.Logger, input)
	if err != nil {
		ctx.Logger.Error("Failed to collect tracking event",
			slog.String("outcome", string(outcome)),
			slog.Any("error", err))
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

// resolveSession picks the session id from the body, then the cookie, then
// generates one. The cookie is set whenever the request did not carry one.
func resolveSession(ctx *cartridge.Context, cfg *config.Config, fromBody string) string {
	fromCookie := ctx.Cookies(cfg.SessionCookieName)

	sessionID := strings.TrimSpace(fromBody)
	if sessionID == "" {
		sessionID = fromCookie
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if fromCookie == "" {
		ctx.Cookie(&fiber.Cookie{
			Name:     cfg.SessionCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   cfg.SessionCookieMaxAge(),
			HTTPOnly: false,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   cfg.IsProduction(),
		})
	}

	return sessionID
}

func userAgent(ctx *cartridge.Context) string {
	if forwarded := ctx.Get("X-Forwarded-User-Agent"); forwarded != "" {
		return forwarded
	}
	return ctx.Get(fiber.HeaderUserAgent)
}
