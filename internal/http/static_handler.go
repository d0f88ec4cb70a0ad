package http

import (
	"io/fs"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"musicpage/web"
)

// RobotsAction serves the embedded robots.txt
func RobotsAction(ctx *cartridge.Context) error {
	data, err := fs.ReadFile(web.Static(), "robots.txt")
	if err != nil {
		ctx.Logger.Error("Failed to read robots.txt", slog.Any("error", err))
		return ctx.SendStatus(fiber.StatusNotFound)
	}
	ctx.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	ctx.Type("txt", "utf-8")
	return ctx.Send(data)
}
