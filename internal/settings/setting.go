package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Setting keys
const (
	KeyExcludedIPs   = "excluded_ips"
	KeyBotSignatures = "bot_signatures"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// SettingResponse represents a setting key-value pair for API responses
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var listCache *cache.Cache[string, []string]

// SetupDefaultSettings initializes default settings in the database
func SetupDefaultSettings(dbConn *gorm.DB) error {
	defaults := []Setting{
		{Key: KeyExcludedIPs, Value: ""},
		{Key: KeyBotSignatures, Value: ""},
	}
	err := sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		for _, setting := range defaults {
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, time.Now().UTC(), time.Now().UTC()).Error
			if err != nil {
				slog.Default().Error("Failed to upsert setting", slog.String("key", setting.Key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})

	loadCache(dbConn, slog.Default())

	return err
}

// IsIPExcluded reports whether ip is in the excluded_ips list.
func IsIPExcluded(ip string) (bool, error) {
	excludedIPs, err := getList(KeyExcludedIPs)
	if err != nil {
		return false, fmt.Errorf("failed to check excluded IPs: %w", err)
	}

	for _, excludedIP := range excludedIPs {
		if excludedIP == ip {
			return true, nil
		}
	}
	return false, nil
}

// BotSignatures returns the extra user-agent signatures configured by the admin.
func BotSignatures() ([]string, error) {
	signatures, err := getList(KeyBotSignatures)
	if err != nil {
		return nil, fmt.Errorf("failed to load bot signatures: %w", err)
	}
	return signatures, nil
}

func getList(key string) ([]string, error) {
	// Cache not initialized yet means no settings were loaded.
	if listCache == nil {
		return nil, nil
	}
	return listCache.Get(key)
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	result := dbConn.Where("key = ?", key).First(&setting)

	if result.Error != nil {
		return "", result.Error
	}

	return setting.Value, nil
}

// UpdateSetting updates a setting, creating it when missing, and reloads the cache.
func UpdateSetting(dbConn *gorm.DB, key string, value string) error {
	err := sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
		if result.Error != nil {
			return fmt.Errorf("failed to update setting: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}
		if err := tx.Create(&Setting{Key: key, Value: value}).Error; err != nil {
			return fmt.Errorf("failed to create setting: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if listCache != nil {
		listCache.Clear()
	}
	loadCache(dbConn, slog.Default())

	return nil
}

// GetAllSettings returns every stored setting ordered by key.
func GetAllSettings(db *gorm.DB) ([]SettingResponse, error) {
	var all []Setting
	if err := db.Order("key ASC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	out := make([]SettingResponse, 0, len(all))
	for _, s := range all {
		out = append(out, SettingResponse{Key: s.Key, Value: s.Value})
	}
	return out, nil
}

func loadCache(dbConn *gorm.DB, logger *slog.Logger) {
	fetchFunc := func(key string) ([]string, error) {
		var value string
		err := dbConn.WithContext(context.Background()).Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).Scan(&value).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return splitList(value), nil
	}
	listCache = cache.NewCache[string, []string](logger, 5*time.Minute, fetchFunc)
}

// splitList parses a comma separated setting, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
