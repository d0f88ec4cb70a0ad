// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Dedupe backends
const (
	DedupeBackendMemory = "memory"
	DedupeBackendRedis  = "redis"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`
	AdminAPIKey string   `mapstructure:"adminapikey"`
	Domain      string   `mapstructure:"domain"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	GeoDBPath             string `mapstructure:"geodbpath"`
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Tracking settings
	SessionCookieName       string `mapstructure:"sessioncookiename"`
	SessionCookieMaxAgeDays int    `mapstructure:"sessioncookiemaxagedays"`
	DedupeWindowMs          int    `mapstructure:"dedupewindowms"`
	DedupeBackend           string `mapstructure:"dedupebackend"`
	DedupeMaxEntries        int    `mapstructure:"dedupemaxentries"`
	RedisURL                string `mapstructure:"redisurl"`

	// Aggregation settings
	AggregationRowCap int `mapstructure:"aggregationrowcap"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "musicpage")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", "88888888888888888888888888888888")
		v.SetDefault("adminapikey", "")
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("publicdir", "web")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("sessioncookiename", "mp_session")
		v.SetDefault("sessioncookiemaxagedays", 30)
		v.SetDefault("dedupewindowms", 1000)
		v.SetDefault("dedupebackend", DedupeBackendMemory)
		v.SetDefault("dedupemaxentries", 100000)
		v.SetDefault("redisurl", "")
		v.SetDefault("aggregationrowcap", 5000)
		v.SetDefault("jobintervalseconds", 60)

		v.BindEnv("appname", "MUSICPAGE_APP_NAME")
		v.BindEnv("appport", "MUSICPAGE_APP_PORT")
		v.BindEnv("environment", "MUSICPAGE_ENV")
		v.BindEnv("loglevel", "MUSICPAGE_LOG_LEVEL")
		v.BindEnv("privatekey", "MUSICPAGE_PRIVATE_KEY")
		v.BindEnv("adminapikey", "MUSICPAGE_ADMIN_API_KEY")
		v.BindEnv("domain", "MUSICPAGE_DOMAIN")
		v.BindEnv("storagepath", "MUSICPAGE_STORAGE_PATH")
		v.BindEnv("geodbpath", "MUSICPAGE_GEO_DB_PATH")
		v.BindEnv("publicdir", "MUSICPAGE_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "MUSICPAGE_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "MUSICPAGE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "MUSICPAGE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "MUSICPAGE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "MUSICPAGE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "MUSICPAGE_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "MUSICPAGE_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "MUSICPAGE_DB_MAX_IDLE_CONNS")
		v.BindEnv("sessioncookiename", "MUSICPAGE_SESSION_COOKIE_NAME")
		v.BindEnv("sessioncookiemaxagedays", "MUSICPAGE_SESSION_COOKIE_MAX_AGE_DAYS")
		v.BindEnv("dedupewindowms", "MUSICPAGE_DEDUPE_WINDOW_MS")
		v.BindEnv("dedupebackend", "MUSICPAGE_DEDUPE_BACKEND")
		v.BindEnv("dedupemaxentries", "MUSICPAGE_DEDUPE_MAX_ENTRIES")
		v.BindEnv("redisurl", "MUSICPAGE_REDIS_URL")
		v.BindEnv("aggregationrowcap", "MUSICPAGE_AGGREGATION_ROW_CAP")
		v.BindEnv("jobintervalseconds", "MUSICPAGE_JOB_INTERVAL_SECONDS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()

		defaultKey := "88888888888888888888888888888888"
		if cfg.PrivateKey == "" {
			log.Fatal("Private key is required")
		}
		if cfg.IsProduction() && cfg.PrivateKey == defaultKey {
			log.Fatal("Production requires a unique MUSICPAGE_PRIVATE_KEY (cannot use default)")
		}
		if cfg.IsProduction() && cfg.AdminAPIKey == "" {
			log.Fatal("Production requires MUSICPAGE_ADMIN_API_KEY")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	switch c.DedupeBackend {
	case DedupeBackendMemory:
	case DedupeBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("dedupe backend %q requires a redis url", c.DedupeBackend)
		}
	default:
		return fmt.Errorf("invalid dedupe backend: %s", c.DedupeBackend)
	}

	if c.DedupeWindowMs <= 0 {
		return fmt.Errorf("dedupe window must be positive: %d", c.DedupeWindowMs)
	}
	if c.AggregationRowCap <= 0 {
		return fmt.Errorf("aggregation row cap must be positive: %d", c.AggregationRowCap)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// DedupeWindow returns the server-side dedupe window.
func (c *Config) DedupeWindow() time.Duration {
	return time.Duration(c.DedupeWindowMs) * time.Millisecond
}

// SessionCookieMaxAge returns the tracking cookie lifetime in seconds.
func (c *Config) SessionCookieMaxAge() int {
	return c.SessionCookieMaxAgeDays * 24 * 60 * 60
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1
// - Development/Production: 10 (allows concurrent reads for parallel report sections)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
