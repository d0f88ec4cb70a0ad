package v1

import (
	"bytes"
	"log/slog"
	"sync"
	"text/template"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"musicpage/internal/config"
	"musicpage/web"
)

// Client-side dedupe window applied by the tracker script before sending.
const clientDedupeMs = 800

var (
	trackerTemplate     *template.Template
	trackerTemplateErr  error
	trackerTemplateOnce sync.Once
)

func loadTrackerTemplate() (*template.Template, error) {
	trackerTemplateOnce.Do(func() {
		trackerTemplate, trackerTemplateErr = template.New("track.js").Parse(string(web.TrackerScript()))
	})
	return trackerTemplate, trackerTemplateErr
}

// TrackerScriptAction serves the beacon script with the endpoint baked in.
func TrackerScriptAction(ctx *cartridge.Context) error {
	tmpl, err := loadTrackerTemplate()
	if err != nil {
		ctx.Logger.Error("Failed to parse tracker template", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	var buf bytes.Buffer
	data := map[string]any{
		"BaseURL":    ctx.BaseURL(),
		"CookieName": config.GetConfig().SessionCookieName,
		"DedupeMs":   clientDedupeMs,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		ctx.Logger.Error("Failed to render tracker template", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	content := buf.Bytes()
	etag := generateETag(content)

	if ctx.Get(fiber.HeaderIfNoneMatch) == etag {
		return ctx.Status(fiber.StatusNotModified).Send(nil)
	}

	ctx.Set(fiber.HeaderContentType, "application/javascript")
	ctx.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	ctx.Set(fiber.HeaderETag, etag)
	ctx.Set("Cross-Origin-Resource-Policy", "cross-origin")
	return ctx.Send(content)
}
