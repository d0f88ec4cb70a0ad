package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"musicpage/internal/config"
	"musicpage/internal/database"
	"musicpage/internal/tracking"
)

// TestAdminAPIKey is the admin key configured by UseTestEnvironment.
const TestAdminAPIKey = "test-admin-key"

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// UseTestEnvironment points the config at the test environment. Call it from
// TestMain before any test touches config.GetConfig.
func UseTestEnvironment() {
	os.Setenv("MUSICPAGE_ENV", config.Test)
	os.Setenv("MUSICPAGE_LOG_LEVEL", string(config.LogLevelError))
	os.Setenv("MUSICPAGE_ADMIN_API_KEY", TestAdminAPIKey)
	os.Setenv("MUSICPAGE_GEO_DB_PATH", "")
	config.Reset()
}

// SetupTestDB creates a test database with all models migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by root test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", rootName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set MUSICPAGE_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// EventOption customises an event created by CreateAnalyticsEvent.
type EventOption func(*tracking.AnalyticsEvent)

// WithCountry sets the country code.
func WithCountry(code string) EventOption {
	return func(e *tracking.AnalyticsEvent) { e.Country = &code }
}

// WithReferrer sets the raw referrer.
func WithReferrer(ref string) EventOption {
	return func(e *tracking.AnalyticsEvent) { e.Referrer = &ref }
}

// CreateAnalyticsEvent inserts one raw event directly.
func CreateAnalyticsEvent(t *testing.T, db *gorm.DB, eventType tracking.EventType, entityType tracking.EntityType, entityID string, createdAt time.Time, opts ...EventOption) tracking.AnalyticsEvent {
	t.Helper()

	event := tracking.AnalyticsEvent{
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		SessionID:  "session-test",
		CreatedAt:  createdAt.UTC(),
	}
	for _, opt := range opts {
		opt(&event)
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

// CountAnalyticsEvents returns the number of stored events.
func CountAnalyticsEvents(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&tracking.AnalyticsEvent{}).Count(&count).Error)
	return count
}

// publicDirectory resolves web/static relative to this file so tests work
// from any package directory.
func publicDirectory() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "web", "static")
}

// CreateMinimalTestApp creates a test Fiber app with all routes
func CreateMinimalTestApp(t *testing.T, db *gorm.DB, mount func(*cartridge.Server)) *fiber.App {
	t.Helper()

	appConfig := config.GetConfig()
	appConfig.PublicDirectory = publicDirectory()

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = NewTestDBManager(db)
	cfg.StaticDirectory = appConfig.PublicDirectory
	cfg.StaticPrefix = "/static"
	cfg.TemplatesDirectory = appConfig.PublicDirectory
	cfg.EnableSecFetchSite = false

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	mount(srv)
	return srv.App()
}
