package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"musicpage/internal/catalog"
	"musicpage/internal/tracking"
)

const batchSize = 500

// Seeder fills the database with a demo catalog and a month of traffic.
type Seeder struct {
	DBManager  cartridge.DBManager
	Logger     *slog.Logger
	EventCount int
	Days       int
	Now        func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, eventCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager:  dbManager,
		Logger:     logger,
		EventCount: eventCount,
		Days:       30,
		Now:        time.Now,
	}
}

// Run executes the seeding process
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Starting database seeding...", slog.Int("eventCount", s.EventCount))

	c, err := s.SeedCatalog()
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	created, err := s.SeedEvents(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	s.Logger.Info("Seeding completed successfully",
		slog.Int("events", created),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Catalog is the demo content the generated events point at.
type Catalog struct {
	Platforms   []catalog.Platform
	Albums      []catalog.Album
	AlbumLinks  []catalog.AlbumLink
	Shows       []catalog.Show
	ShowLinks   []catalog.ShowLink
	Updates     []catalog.Update
	UpdateLinks []catalog.UpdateLink
}

func demoCatalog(now time.Time) Catalog {
	day := func(offset int) time.Time { return now.AddDate(0, 0, offset).UTC().Truncate(24 * time.Hour) }
	released := func(year int, month time.Month) *time.Time {
		t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}

	c := Catalog{
		Platforms: []catalog.Platform{
			{ID: "platform-spotify", Name: "spotify", Slug: "spotify"},
			{ID: "platform-apple-music", Name: "apple_music", Slug: "apple-music"},
			{ID: "platform-bandcamp", Name: "bandcamp", Slug: "bandcamp"},
			{ID: "platform-youtube", Name: "youtube", Slug: "youtube"},
		},
		Albums: []catalog.Album{
			{ID: "album-night-drive", Title: "Night Drive", Slug: "night-drive", ReleaseDate: released(2024, time.March)},
			{ID: "album-paper-moons", Title: "Paper Moons", Slug: "paper-moons", ReleaseDate: released(2022, time.October)},
			{ID: "album-first-light", Title: "First Light", Slug: "first-light", ReleaseDate: released(2019, time.May)},
		},
		Shows: []catalog.Show{
			{ID: "show-lisbon", Title: "Live in Lisbon", Venue: "Musicbox", City: "Lisbon", StartsAt: day(14)},
			{ID: "show-berlin", Title: "Berlin Club Night", Venue: "Lido", City: "Berlin", StartsAt: day(30)},
		},
		Updates: []catalog.Update{
			{ID: "update-tour", Title: "Spring tour announced", PublishedAt: day(-10)},
			{ID: "update-single", Title: "New single out now", PublishedAt: day(-3)},
		},
	}

	for _, album := range c.Albums {
		for _, platform := range c.Platforms {
			c.AlbumLinks = append(c.AlbumLinks, catalog.AlbumLink{
				ID:         album.ID + "-" + platform.Slug,
				AlbumID:    album.ID,
				PlatformID: platform.ID,
				URL:        fmt.Sprintf("https://%s.example/%s", platform.Slug, album.Slug),
			})
		}
	}
	for _, show := range c.Shows {
		c.ShowLinks = append(c.ShowLinks, catalog.ShowLink{
			ID:     show.ID + "-tickets",
			ShowID: show.ID,
			Label:  "Tickets",
			URL:    "https://tickets.example/" + show.ID,
		})
	}
	for _, update := range c.Updates {
		c.UpdateLinks = append(c.UpdateLinks, catalog.UpdateLink{
			ID:       update.ID + "-cta",
			UpdateID: update.ID,
			Label:    "Read more",
			URL:      "https://news.example/" + update.ID,
		})
	}
	return c
}

// SeedCatalog inserts the demo catalog. Existing rows are left untouched.
func (s *Seeder) SeedCatalog() (Catalog, error) {
	c := demoCatalog(s.Now())
	db := s.DBManager.GetConnection()

	err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		for _, rows := range []any{&c.Platforms, &c.Albums, &c.AlbumLinks, &c.Shows, &c.ShowLinks, &c.Updates, &c.UpdateLinks} {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Catalog{}, err
	}

	s.Logger.Info("Catalog seeded",
		slog.Int("albums", len(c.Albums)),
		slog.Int("shows", len(c.Shows)),
		slog.Int("updates", len(c.Updates)))
	return c, nil
}

// SeedEvents generates visitor sessions spread over the last Days days and
// returns how many events were written.
func (s *Seeder) SeedEvents(ctx context.Context, c Catalog) (int, error) {
	db := s.DBManager.GetConnection()
	now := s.Now().UTC()
	days := max(s.Days, 1)

	batch := make([]tracking.AnalyticsEvent, 0, batchSize)
	created := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
			return tx.CreateInBatches(batch, batchSize).Error
		})
		if err != nil {
			return err
		}
		created += len(batch)
		batch = batch[:0]
		return nil
	}

	for created+len(batch) < s.EventCount {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}

		at := now.Add(-time.Duration(rand.Int64N(int64(days) * int64(24*time.Hour))))
		batch = append(batch, s.session(c, at)...)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return created, err
			}
		}
	}

	if err := flush(); err != nil {
		return created, err
	}
	return created, nil
}

// session builds one visit: a session start, a landing page view, a few
// section views and some link clicks.
func (s *Seeder) session(c Catalog, start time.Time) []tracking.AnalyticsEvent {
	sessionID := uuid.NewString()
	country := pick(countries())
	userAgent := pick(userAgents())
	referrer := pick(referrers())

	at := start
	next := func() time.Time {
		at = at.Add(time.Duration(rand.IntN(90)+5) * time.Second)
		return at
	}

	event := func(eventType tracking.EventType, entityType tracking.EntityType, entityID string, ref string, meta map[string]any) tracking.AnalyticsEvent {
		e := tracking.AnalyticsEvent{
			EventType:  eventType,
			EntityType: entityType,
			EntityID:   entityID,
			SessionID:  sessionID,
			Country:    optional(country),
			UserAgent:  optional(userAgent),
			Referrer:   optional(ref),
			CreatedAt:  next(),
		}
		if len(meta) > 0 {
			raw, _ := json.Marshal(meta)
			e.Metadata = optional(string(raw))
		}
		return e
	}

	out := []tracking.AnalyticsEvent{
		event(tracking.EventTypeSessionStart, tracking.EntityTypeSiteSection, "home", referrer, nil),
		event(tracking.EventTypePageView, tracking.EntityTypeSiteSection, "home", referrer, nil),
	}

	for _, section := range []string{"music", "tour", "news"} {
		if rand.Float64() < 0.6 {
			out = append(out, event(tracking.EventTypeSectionView, tracking.EntityTypeSiteSection, section, "", nil))
		}
	}

	album := pick(c.Albums)
	out = append(out, event(tracking.EventTypePageView, tracking.EntityTypeAlbum, album.ID, "", map[string]any{"slug": album.Slug}))
	if rand.Float64() < 0.35 {
		for _, link := range c.AlbumLinks {
			if link.AlbumID == album.ID && rand.Float64() < 0.4 {
				out = append(out, event(tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, link.ID, "", nil))
				break
			}
		}
	}

	if len(c.Shows) > 0 && rand.Float64() < 0.3 {
		i := rand.IntN(len(c.Shows))
		out = append(out, event(tracking.EventTypePageView, tracking.EntityTypeEvent, c.Shows[i].ID, "", nil))
		if rand.Float64() < 0.25 && i < len(c.ShowLinks) {
			out = append(out, event(tracking.EventTypeLinkClick, tracking.EntityTypeEventLink, c.ShowLinks[i].ID, "", nil))
		}
	}

	if len(c.Updates) > 0 && rand.Float64() < 0.3 {
		i := rand.IntN(len(c.Updates))
		out = append(out, event(tracking.EventTypePageView, tracking.EntityTypeUpdate, c.Updates[i].ID, "", nil))
		if rand.Float64() < 0.2 && i < len(c.UpdateLinks) {
			out = append(out, event(tracking.EventTypeLinkClick, tracking.EntityTypeUpdateLink, c.UpdateLinks[i].ID, "", nil))
		}
	}

	return out
}

func pick[T any](items []T) T {
	return items[rand.IntN(len(items))]
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func countries() []string {
	return []string{"US", "US", "GB", "DE", "PT", "FR", "BR", "JP", "MX", ""}
}

func userAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	}
}

func referrers() []string {
	return []string{
		"",
		"",
		"https://www.google.com/",
		"https://www.instagram.com/",
		"https://l.facebook.com/",
		"https://t.co/abc123",
		"https://open.spotify.com/artist/demo",
		"https://www.youtube.com/watch?v=demo",
		"https://linktr.ee/demo",
	}
}
