// Package tracking owns the analytics_events table and the ingestion pipeline
// that writes to it.
package tracking

import (
	"encoding/json"
	"time"
)

// EventType is what happened.
type EventType string

const (
	EventTypePageView     EventType = "page_view"
	EventTypeLinkClick    EventType = "link_click"
	EventTypeSectionView  EventType = "section_view"
	EventTypeSessionStart EventType = "session_start"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypePageView, EventTypeLinkClick, EventTypeSectionView, EventTypeSessionStart:
		return true
	}
	return false
}

// EntityType is the kind of content an event references.
type EntityType string

const (
	EntityTypeAlbum       EntityType = "album"
	EntityTypeAlbumLink   EntityType = "album_link"
	EntityTypeSiteSection EntityType = "site_section"
	EntityTypeEvent       EntityType = "event"
	EntityTypeEventLink   EntityType = "event_link"
	EntityTypeUpdate      EntityType = "update"
	EntityTypeUpdateLink  EntityType = "update_link"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeAlbum, EntityTypeAlbumLink, EntityTypeSiteSection,
		EntityTypeEvent, EntityTypeEventLink, EntityTypeUpdate, EntityTypeUpdateLink:
		return true
	}
	return false
}

// AnalyticsEvent is one raw tracking event. Rows are written once and never
// updated or deleted; every report is derived from them.
type AnalyticsEvent struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	EventType  EventType  `gorm:"not null;index:idx_analytics_events_type_created,priority:1" json:"event_type"`
	EntityType EntityType `gorm:"not null;index:idx_analytics_events_type_created,priority:2" json:"entity_type"`
	EntityID   string     `gorm:"not null;index" json:"entity_id"`
	SessionID  string     `gorm:"not null;index" json:"session_id"`
	Country    *string    `json:"country"`
	City       *string    `json:"city"`
	UserAgent  *string    `json:"user_agent"`
	Referrer   *string    `json:"referrer"`
	Metadata   *string    `json:"metadata"`
	CreatedAt  time.Time  `gorm:"not null;index;index:idx_analytics_events_type_created,priority:3" json:"created_at"`
}

// TableName sets the table name for AnalyticsEvent.
func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}

// MetadataMap decodes the stored metadata bag. It returns nil when the event
// has no metadata or the stored value is not a JSON object.
func (e AnalyticsEvent) MetadataMap() map[string]any {
	if e.Metadata == nil || *e.Metadata == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(*e.Metadata), &out); err != nil {
		return nil
	}
	return out
}

// stringPtr returns nil for empty strings.
func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
