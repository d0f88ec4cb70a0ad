package http

import (
	"log/slog"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"musicpage/internal/settings"
)

// validateIPList validates a comma-separated list of IP addresses
func validateIPList(ipList string) (bool, string) {
	for _, ip := range strings.Split(ipList, ",") {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		if _, err := netip.ParseAddr(ip); err != nil {
			return false, "Invalid IP address format: " + ip
		}
	}
	return true, ""
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

// SettingsIndexAction handles GET /admin/api/settings
func SettingsIndexAction(ctx *cartridge.Context) error {
	all, err := settings.GetAllSettings(ctx.DB())
	if err != nil {
		ctx.Logger.Error("failed to load settings", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load settings"})
	}
	return ctx.JSON(fiber.Map{"settings": all})
}

// SettingsUpdateAction handles POST /admin/api/settings/:key
func SettingsUpdateAction(ctx *cartridge.Context) error {
	key := ctx.Params("key")
	switch key {
	case settings.KeyExcludedIPs, settings.KeyBotSignatures:
	default:
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown setting"})
	}

	var req updateSettingRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON body"})
	}

	if key == settings.KeyExcludedIPs {
		if valid, msg := validateIPList(req.Value); !valid {
			ctx.Logger.Warn("invalid IP format submitted", slog.String("error", msg))
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
		}
	}

	if err := settings.UpdateSetting(ctx.DB(), key, req.Value); err != nil {
		ctx.Logger.Error("failed to update setting", slog.String("key", key), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update setting"})
	}

	ctx.Logger.Info("setting updated", slog.String("key", key))
	return ctx.JSON(settings.SettingResponse{Key: key, Value: req.Value})
}
