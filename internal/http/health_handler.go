package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"musicpage/internal/tracking"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	DBStatus     string    `json:"db_status"`
	DedupeStatus string    `json:"dedupe_status"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthIndexAction handles GET and HEAD /_health
func HealthIndexAction(ctx *cartridge.Context) error {
	health := HealthStatus{
		Status:       "ok",
		Timestamp:    time.Now().UTC(),
		DBStatus:     "ok",
		DedupeStatus: "ok",
	}

	db := ctx.DBManager.GetConnection()
	if db == nil {
		health.DBStatus = "error"
		ctx.Logger.Error("Database connection unavailable")
	} else if sqlDB, err := db.DB(); err != nil {
		health.DBStatus = "error"
		ctx.Logger.Error("Database connection error", slog.Any("error", err))
	} else if err := sqlDB.PingContext(ctx.UserContext()); err != nil {
		health.DBStatus = "error"
		ctx.Logger.Error("Database ping failed", slog.Any("error", err))
	}

	if p, ok := tracking.DefaultCollector(ctx.Logger).Deduper.(pinger); ok {
		pingCtx, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			health.DedupeStatus = "error"
			ctx.Logger.Error("Dedupe store ping failed", slog.Any("error", err))
		}
	}

	if health.DBStatus != "ok" || health.DedupeStatus != "ok" {
		health.Status = "degraded"
	}

	if ctx.Method() == fiber.MethodHead {
		return ctx.SendStatus(fiber.StatusOK)
	}
	return ctx.JSON(health)
}
