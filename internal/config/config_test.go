package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"musicpage/internal/config"
)

func TestGetConfigDefaults(t *testing.T) {
	t.Setenv("MUSICPAGE_ENV", "test")
	config.Reset()
	t.Cleanup(config.Reset)

	cfg := config.GetConfig()

	assert.Equal(t, config.Test, cfg.Environment)
	assert.Equal(t, "mp_session", cfg.SessionCookieName)
	assert.Equal(t, 30*24*60*60, cfg.SessionCookieMaxAge())
	assert.Equal(t, time.Second, cfg.DedupeWindow())
	assert.Equal(t, config.DedupeBackendMemory, cfg.DedupeBackend)
	assert.Equal(t, 5000, cfg.AggregationRowCap)
	assert.Equal(t, "storage/musicpage-test.db", cfg.DatabaseDSN())
	assert.Equal(t, 1, cfg.GetMaxOpenConns())
}

func TestGetConfigFromEnvironment(t *testing.T) {
	t.Setenv("MUSICPAGE_ENV", "test")
	t.Setenv("MUSICPAGE_DEDUPE_WINDOW_MS", "250")
	t.Setenv("MUSICPAGE_AGGREGATION_ROW_CAP", "100")
	t.Setenv("MUSICPAGE_SESSION_COOKIE_NAME", "custom_session")
	config.Reset()
	t.Cleanup(config.Reset)

	cfg := config.GetConfig()

	assert.Equal(t, 250*time.Millisecond, cfg.DedupeWindow())
	assert.Equal(t, 100, cfg.AggregationRowCap)
	assert.Equal(t, "custom_session", cfg.SessionCookieName)
}

func TestMaxConnsOverride(t *testing.T) {
	cfg := &config.Config{Environment: config.Production, DatabaseMaxOpenConns: 3}
	assert.Equal(t, 3, cfg.GetMaxOpenConns())
	assert.Equal(t, 5, cfg.GetMaxIdleConns())
}
