package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"musicpage/internal/config"
	"musicpage/internal/metrics"
	"musicpage/internal/pkg/botfilter"
	"musicpage/internal/pkg/dedupe"
	"musicpage/internal/settings"
)

// Outcome is what the collector did with one beacon.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeBot       Outcome = "bot"
	OutcomeExcluded  Outcome = "excluded"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeFailed    Outcome = "failed"
)

// CollectEventInput defines the input required to collect an event.
type CollectEventInput struct {
	EventType  EventType
	EntityType EntityType
	EntityID   string
	SessionID  string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
	Referrer   string
	Country    string
	City       string
}

// Collector filters, deduplicates and stores tracking events.
type Collector struct {
	Deduper dedupe.Store
	Bots    *botfilter.Filter
	Window  time.Duration
	Metrics *metrics.Metrics
	Now     func() time.Time
}

var (
	defaultCollector *Collector
	collectorOnce    sync.Once
)

// DefaultCollector returns the process-wide collector configured from the
// application config. A redis dedupe backend that cannot be reached falls
// back to the in-memory store.
func DefaultCollector(logger *slog.Logger) *Collector {
	collectorOnce.Do(func() {
		cfg := config.GetConfig()
		defaultCollector = &Collector{
			Deduper: newDeduper(cfg, logger),
			Bots:    botfilter.Default(),
			Window:  cfg.DedupeWindow(),
			Metrics: metrics.NewMetrics(),
			Now:     time.Now,
		}
	})
	return defaultCollector
}

func newDeduper(cfg *config.Config, logger *slog.Logger) dedupe.Store {
	if cfg.DedupeBackend == config.DedupeBackendRedis {
		store, err := dedupe.NewRedisStoreFromURL(cfg.RedisURL)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err = store.Ping(ctx); err == nil {
				logger.Info("Using redis dedupe store")
				return store
			}
			store.Close()
		}
		logger.Error("Redis dedupe store unavailable, using memory store", slog.Any("error", err))
	}
	return dedupe.NewMemoryStore(cfg.DedupeMaxEntries)
}

// Validate checks the required fields and enum values of an input.
func (in *CollectEventInput) Validate() error {
	if in.EventType == "" || in.EntityType == "" || in.EntityID == "" {
		return ErrMissingFields
	}
	if !in.EventType.Valid() {
		return ErrInvalidEventType
	}
	if !in.EntityType.Valid() {
		return ErrInvalidEntityType
	}
	return nil
}

// Collect runs one beacon through the pipeline. A non-nil error is only
// returned with OutcomeInvalid or OutcomeFailed; callers on the public path
// are expected to log it and carry on.
func (c *Collector) Collect(ctx context.Context, dbManager cartridge.DBManager, logger *slog.Logger, input *CollectEventInput) (Outcome, error) {
	outcome, err := c.collect(ctx, dbManager, logger, input)
	c.Metrics.RecordTrack(string(outcome))
	return outcome, err
}

func (c *Collector) collect(ctx context.Context, dbManager cartridge.DBManager, logger *slog.Logger, input *CollectEventInput) (Outcome, error) {
	if err := input.Validate(); err != nil {
		return OutcomeInvalid, err
	}

	extra, err := settings.BotSignatures()
	if err != nil {
		logger.Error("Error loading bot signatures", slog.Any("error", err))
	}
	if c.Bots.IsBot(input.UserAgent, extra...) {
		logger.Debug("Skipping event from bot", slog.String("user_agent", input.UserAgent))
		return OutcomeBot, nil
	}

	excluded, err := settings.IsIPExcluded(input.IPAddress)
	if err != nil {
		logger.Error("Error checking IP exclusion", slog.Any("error", err))
	} else if excluded {
		logger.Debug("Skipping event for excluded IP", slog.String("ip", input.IPAddress))
		return OutcomeExcluded, nil
	}

	key := dedupe.Key(string(input.EventType), string(input.EntityType), input.EntityID, input.SessionID)
	duplicate, err := c.Deduper.Seen(ctx, key, c.Window)
	if err != nil {
		logger.Warn("Dedupe store error, accepting event", slog.Any("error", err))
	} else if duplicate {
		logger.Debug("Skipping duplicate event", slog.String("key", key))
		return OutcomeDuplicate, nil
	}

	event := c.buildEvent(logger, input)
	db := dbManager.GetConnection()
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Create(event).Error
	})
	if err != nil {
		logger.Error("Failed to store analytics event", slog.Any("error", err))
		return OutcomeFailed, fmt.Errorf("failed to store analytics event: %w", err)
	}

	return OutcomeAccepted, nil
}

func (c *Collector) buildEvent(logger *slog.Logger, input *CollectEventInput) *AnalyticsEvent {
	country, city := resolveGeo(input.Country, input.City, input.IPAddress)

	var metadata *string
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			logger.Warn("Dropping unserializable metadata", slog.Any("error", err))
		} else {
			metadata = stringPtr(string(raw))
		}
	}

	return &AnalyticsEvent{
		EventType:  input.EventType,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		SessionID:  input.SessionID,
		Country:    stringPtr(country),
		City:       stringPtr(city),
		UserAgent:  stringPtr(input.UserAgent),
		Referrer:   stringPtr(input.Referrer),
		Metadata:   metadata,
		CreatedAt:  c.Now().UTC(),
	}
}
