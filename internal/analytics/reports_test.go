package analytics_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"musicpage/internal/analytics"
	"musicpage/internal/catalog"
	"musicpage/internal/testsupport"
	"musicpage/internal/timeframe"
	"musicpage/internal/tracking"
)

var reportNow = time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Create(&catalog.Platform{ID: "spotify", Name: "spotify", Slug: "spotify"}).Error)
	require.NoError(t, db.Create(&catalog.Platform{ID: "bandcamp", Name: "bandcamp", Slug: "bandcamp"}).Error)
	require.NoError(t, db.Create(&catalog.Album{ID: "album-1", Title: "First Light", Slug: "first-light"}).Error)
	require.NoError(t, db.Create(&catalog.Album{ID: "album-2", Title: "Second Wind", Slug: "second-wind"}).Error)
	require.NoError(t, db.Create(&catalog.AlbumLink{ID: "link-1", AlbumID: "album-1", PlatformID: "spotify", URL: "https://open.spotify.com/album/1"}).Error)
	require.NoError(t, db.Create(&catalog.AlbumLink{ID: "link-2", AlbumID: "album-1", PlatformID: "bandcamp", URL: "https://band.bandcamp.com/album/1"}).Error)
	require.NoError(t, db.Create(&catalog.AlbumLink{ID: "link-3", AlbumID: "album-2", PlatformID: "spotify", URL: "https://open.spotify.com/album/2"}).Error)
}

func TestRecentEvents(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	for i := 0; i < 5; i++ {
		testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypePageView, tracking.EntityTypeAlbum,
			fmt.Sprintf("album-%d", i), reportNow.Add(-time.Duration(i)*time.Hour))
	}
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-1", reportNow)

	filter := analytics.EventFilter{EventType: tracking.EventTypePageView, EntityType: tracking.EntityTypeAlbum}

	events, err := analytics.RecentEvents(context.Background(), db, filter, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "album-0", events[0].EntityID)
	assert.Equal(t, "album-2", events[2].EntityID)

	count, err := analytics.CountEvents(context.Background(), db, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	t.Run("since", func(t *testing.T) {
		filter := filter
		filter.Since = reportNow.Add(-90 * time.Minute)
		events, err := analytics.RecentEvents(context.Background(), db, filter, 0)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("entity ids", func(t *testing.T) {
		filter := filter
		filter.EntityIDs = []string{"album-1", "album-4"}
		count, err := analytics.CountEvents(context.Background(), db, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		filter.EntityIDs = []string{}
		events, err := analytics.RecentEvents(context.Background(), db, filter, 0)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestBuildAlbumReport(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	seedCatalog(t, db)

	create := func(eventType tracking.EventType, entityType tracking.EntityType, id string, ago time.Duration) {
		testsupport.CreateAnalyticsEvent(t, db, eventType, entityType, id, reportNow.Add(-ago))
	}
	create(tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-2", time.Hour)
	create(tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-1", 2*time.Hour)
	create(tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-1", 3*time.Hour)
	create(tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-1", 4*time.Hour)
	create(tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-1", time.Hour)
	create(tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-2", time.Hour)
	create(tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-3", time.Hour)
	// Outside the 7 day window.
	create(tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-2", 10*24*time.Hour)

	report := analytics.BuildAlbumReport(context.Background(), db, logger, timeframe.Window7, reportNow)

	require.Len(t, report.Rows, 2)
	assert.Equal(t, analytics.EngagementRow{ID: "album-1", Title: "First Light", Views: 3, Clicks: 2, CTR: 2.0 * 100 / 3}, report.Rows[0])
	assert.Equal(t, analytics.EngagementRow{ID: "album-2", Title: "Second Wind", Views: 1, Clicks: 1, CTR: 100}, report.Rows[1])
	assert.Equal(t, int64(4), report.TotalViews)
	assert.Equal(t, int64(3), report.TotalClicks)

	t.Run("all time includes older rows", func(t *testing.T) {
		report := analytics.BuildAlbumReport(context.Background(), db, logger, timeframe.WindowAll, reportNow)
		require.Len(t, report.Rows, 2)
		assert.Equal(t, int64(2), report.Rows[1].Views)
	})
}

func TestBuildAlbumDetail(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	seedCatalog(t, db)

	for i := 0; i < 10; i++ {
		testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-1", reportNow.Add(-time.Duration(i)*time.Hour))
	}
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-1", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-1", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-2", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-3", reportNow)

	detail, err := analytics.BuildAlbumDetail(context.Background(), db, logger, "album-1", timeframe.Window7, reportNow)
	require.NoError(t, err)

	assert.Equal(t, "First Light", detail.Title)
	assert.Equal(t, int64(10), detail.Views)
	assert.Equal(t, int64(3), detail.Clicks)
	assert.Equal(t, 30.0, detail.CTR)
	require.Len(t, detail.DailyViews, 7)
	assert.Equal(t, 10, detail.DailyViews[6].Count)
	assert.Equal(t, 3, detail.DailyClicks[6].Count)
	assert.Equal(t, []analytics.PlatformRow{
		{PlatformID: "spotify", Name: "spotify", Clicks: 2},
		{PlatformID: "bandcamp", Name: "bandcamp", Clicks: 1},
	}, detail.Platforms)

	t.Run("unknown album", func(t *testing.T) {
		_, err := analytics.BuildAlbumDetail(context.Background(), db, logger, "missing", timeframe.Window7, reportNow)
		var notFound *catalog.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestBuildPlatformAndCountryReports(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	seedCatalog(t, db)

	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-2", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-1", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-3", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-1", reportNow, testsupport.WithCountry("DE"))
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypePageView, tracking.EntityTypeSiteSection, "tour", reportNow, testsupport.WithCountry("US"))
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-2", reportNow, testsupport.WithCountry("US"))
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-2", reportNow)

	platforms := analytics.BuildPlatformReport(context.Background(), db, logger, timeframe.Window30, reportNow)
	require.Len(t, platforms.Platforms, 2)
	assert.Equal(t, "spotify", platforms.Platforms[0].PlatformID)
	assert.Equal(t, int64(2), platforms.Platforms[0].Clicks)
	assert.Equal(t, int64(3), platforms.TotalClicks)

	countries := analytics.BuildCountryReport(context.Background(), db, logger, timeframe.Window30, reportNow)
	assert.Equal(t, int64(4), countries.TotalViews)
	assert.Equal(t, analytics.MetricCountResult{Name: "US", Count: 2}, countries.Countries[0])
	assert.Contains(t, countries.Countries, analytics.MetricCountResult{Name: analytics.UnknownCountry, Count: 1})
}

func TestBuildOverview(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeSessionStart, tracking.EntityTypeSiteSection, "home", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypePageView, tracking.EntityTypeSiteSection, "home", reportNow,
		testsupport.WithReferrer("https://www.instagram.com/"))
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-1", reportNow.Add(-24*time.Hour))
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeSectionView, tracking.EntityTypeSiteSection, "tour", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeSectionView, tracking.EntityTypeSiteSection, "tour", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeSectionView, tracking.EntityTypeSiteSection, "music", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-1", reportNow)

	overview := analytics.BuildOverview(context.Background(), db, logger, timeframe.Window7, reportNow)

	assert.Equal(t, analytics.Totals{PageViews: 2, LinkClicks: 1, SectionViews: 3, SessionStarts: 1}, overview.Totals)
	require.Len(t, overview.DailyPageViews, 7)
	assert.Equal(t, 1, overview.DailyPageViews[5].Count)
	assert.Equal(t, 1, overview.DailyPageViews[6].Count)
	assert.Equal(t, 1, overview.DailyLinkClicks[6].Count)
	assert.Equal(t, analytics.MetricCountResult{Name: "tour", Count: 2}, overview.TopSections[0])
	assert.Contains(t, overview.TopReferrers, analytics.MetricCountResult{Name: "Instagram", Count: 1})
	assert.Equal(t, []analytics.MetricCountResult{{Name: analytics.UnknownCountry, Count: 2}}, overview.TopCountries)
}

func TestReportsDegradeToEmptyOnReadFailure(t *testing.T) {
	// No tables migrated: every read fails.
	dsn := fmt.Sprintf("file:broken_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	log := testsupport.GetLogger()

	overview := analytics.BuildOverview(context.Background(), db, log, timeframe.Window30, reportNow)
	assert.Equal(t, analytics.Totals{}, overview.Totals)
	assert.Len(t, overview.DailyPageViews, 30)
	assert.NotNil(t, overview.TopCountries)
	assert.Empty(t, overview.TopCountries)

	albums := analytics.BuildAlbumReport(context.Background(), db, log, timeframe.Window30, reportNow)
	assert.NotNil(t, albums.Rows)
	assert.Empty(t, albums.Rows)
	assert.Zero(t, albums.CTR)

	platforms := analytics.BuildPlatformReport(context.Background(), db, log, timeframe.Window30, reportNow)
	assert.Empty(t, platforms.Platforms)
}

type requestKey struct{}

func TestTitleLookupsUseRequestContext(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	seedCatalog(t, db)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypePageView, tracking.EntityTypeAlbum, "album-1", reportNow)
	testsupport.CreateAnalyticsEvent(t, db, tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, "link-1", reportNow)

	var (
		mu       sync.Mutex
		seen     = map[string]bool{}
		detached []string
	)
	require.NoError(t, db.Callback().Row().After("gorm:row").Register("test:record_request_context", func(tx *gorm.DB) {
		table := tx.Statement.Table
		if table != "albums" && table != "platforms" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		seen[table] = true
		if tx.Statement.Context.Value(requestKey{}) == nil {
			detached = append(detached, table)
		}
	}))

	ctx := context.WithValue(context.Background(), requestKey{}, "admin")

	testCases := []struct {
		name  string
		table string
		build func()
	}{
		{"album titles", "albums", func() { analytics.BuildAlbumReport(ctx, db, logger, timeframe.Window7, reportNow) }},
		{"platform names", "platforms", func() { analytics.BuildPlatformReport(ctx, db, logger, timeframe.Window7, reportNow) }},
		{"album detail platform names", "platforms", func() {
			_, err := analytics.BuildAlbumDetail(ctx, db, logger, "album-1", timeframe.Window7, reportNow)
			require.NoError(t, err)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mu.Lock()
			seen = map[string]bool{}
			detached = nil
			mu.Unlock()

			tc.build()

			mu.Lock()
			defer mu.Unlock()
			assert.True(t, seen[tc.table], "expected a lookup against %s", tc.table)
			assert.Empty(t, detached)
		})
	}
}
