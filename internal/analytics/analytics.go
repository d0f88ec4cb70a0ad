// Package analytics derives report metrics from the raw analytics_events table.
//
// The package is organized into focused modules:
//   - analytics.go: row source (filters, capped reads, counts)
//   - reduce.go: pure reductions over a slice of events
//   - reports.go: report builders used by the admin endpoints
package analytics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"musicpage/internal/config"
	"musicpage/internal/tracking"
)

// DefaultRowCap is the number of newest rows a grouped query reads when no
// configuration is available.
const DefaultRowCap = 5000

// MetricCountResult represents a generic key-count pair for query results
type MetricCountResult struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// EventFilter scopes a read of analytics_events. Zero values match everything.
type EventFilter struct {
	EventType  tracking.EventType
	EntityType tracking.EntityType
	EntityIDs  []string
	Since      time.Time
}

func (f EventFilter) apply(db *gorm.DB) *gorm.DB {
	query := db.Model(&tracking.AnalyticsEvent{})
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityIDs != nil {
		query = query.Where("entity_id IN ?", f.EntityIDs)
	}
	if !f.Since.IsZero() {
		query = query.Where("created_at >= ?", f.Since.UTC())
	}
	return query
}

// RowCap returns the configured read cap.
func RowCap() int {
	if n := config.GetConfig().AggregationRowCap; n > 0 {
		return n
	}
	return DefaultRowCap
}

// CountEvents counts every matching row. Totals use this instead of the
// capped slice.
func CountEvents(ctx context.Context, db *gorm.DB, filter EventFilter) (int64, error) {
	if filter.EntityIDs != nil && len(filter.EntityIDs) == 0 {
		return 0, nil
	}

	var count int64
	if err := filter.apply(db.WithContext(ctx)).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting events: %w", err)
	}
	return count, nil
}

// RecentEvents returns at most limit matching rows, newest first.
func RecentEvents(ctx context.Context, db *gorm.DB, filter EventFilter, limit int) ([]tracking.AnalyticsEvent, error) {
	if filter.EntityIDs != nil && len(filter.EntityIDs) == 0 {
		return []tracking.AnalyticsEvent{}, nil
	}
	if limit <= 0 {
		limit = RowCap()
	}

	var events []tracking.AnalyticsEvent
	err := filter.apply(db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return []tracking.AnalyticsEvent{}, fmt.Errorf("error fetching events: %w", err)
	}
	return events, nil
}

// Earliest returns the creation time of the oldest event in a newest-first
// slice, or the zero time when it is empty.
func Earliest(events []tracking.AnalyticsEvent) time.Time {
	if len(events) == 0 {
		return time.Time{}
	}
	return events[len(events)-1].CreatedAt
}
