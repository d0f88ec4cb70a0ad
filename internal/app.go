// Package internal wires the application together.
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"musicpage/internal/config"
	"musicpage/internal/database"
	"musicpage/internal/jobs"
	"musicpage/internal/pkg/dedupe"
	"musicpage/internal/pkg/geoip"
	"musicpage/internal/tracking"
)

// Application wraps cartridge.Application with the application's components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Scheduler *jobs.Scheduler
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	return NewAppWithRoutes(cfg, MountAppRoutes)
}

// NewAppWithRoutes creates a new application with custom route mounting function
func NewAppWithRoutes(cfg *config.Config, routeMount func(*cartridge.Server)) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)
	geoip.InitLogger(logger)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Only the in-memory dedupe store needs sweeping; redis expires its keys.
	collector := tracking.DefaultCollector(logger)
	sweeper, _ := collector.Deduper.(dedupe.Sweeper)

	scheduler, err := jobs.NewScheduler(dbManager, sweeper, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    routeMount,
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Scheduler:   scheduler,
	}, nil
}
