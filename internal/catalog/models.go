// Package catalog holds the content tables that analytics events reference by id.
package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Platform is a streaming or store service an album can be linked to.
type Platform struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Album is a release shown on the public site.
type Album struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Slug        string     `gorm:"uniqueIndex;not null" json:"slug"`
	ReleaseDate *time.Time `json:"release_date"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AlbumLink points an album at one platform.
type AlbumLink struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	AlbumID    string    `gorm:"index;not null" json:"album_id"`
	PlatformID string    `gorm:"index;not null" json:"platform_id"`
	URL        string    `gorm:"not null" json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Show is a live event. Stored in the events table.
type Show struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Venue     string    `json:"venue"`
	City      string    `json:"city"`
	StartsAt  time.Time `gorm:"index" json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps shows in the events table.
func (Show) TableName() string { return "events" }

// ShowLink is a ticket or info link for a show.
type ShowLink struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ShowID    string    `gorm:"column:event_id;index;not null" json:"event_id"`
	Label     string    `json:"label"`
	URL       string    `gorm:"not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps show links in the event_links table.
func (ShowLink) TableName() string { return "event_links" }

// Update is a news post.
type Update struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	PublishedAt time.Time `gorm:"index" json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// UpdateLink is a call-to-action link inside an update.
type UpdateLink struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UpdateID  string    `gorm:"index;not null" json:"update_id"`
	Label     string    `json:"label"`
	URL       string    `gorm:"not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Models returns every catalog model for migration.
func Models() []any {
	return []any{
		&Platform{},
		&Album{},
		&AlbumLink{},
		&Show{},
		&ShowLink{},
		&Update{},
		&UpdateLink{},
	}
}

func newID() string { return uuid.NewString() }

func (p *Platform) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

func (a *Album) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	return nil
}

func (l *AlbumLink) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = newID()
	}
	return nil
}

func (s *Show) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

func (l *ShowLink) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = newID()
	}
	return nil
}

func (u *Update) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return nil
}

func (l *UpdateLink) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = newID()
	}
	return nil
}
