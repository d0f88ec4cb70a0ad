package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"

	"musicpage/internal/catalog"
	"musicpage/internal/config"
	"musicpage/internal/metrics"
	"musicpage/internal/pkg/async"
	"musicpage/internal/timeframe"
	"musicpage/internal/tracking"
)

// TopLimit is the number of rows kept in overview top lists.
const TopLimit = 10

var reportPool = async.NewPool(4)

// Totals are uncapped counts for the window.
type Totals struct {
	PageViews     int64
	LinkClicks    int64
	SectionViews  int64
	SessionStarts int64
}

// Overview is the dashboard landing report.
type Overview struct {
	Window          timeframe.Window
	Totals          Totals
	DailyPageViews  []timeframe.DateStat
	DailyLinkClicks []timeframe.DateStat
	TopCountries    []MetricCountResult
	TopReferrers    []MetricCountResult
	TopSections     []MetricCountResult
}

// EngagementRow is the views and clicks of one album, show or update.
type EngagementRow struct {
	ID     string
	Title  string
	Views  int64
	Clicks int64
	CTR    float64
}

// EngagementReport lists entities of one kind ranked by views.
type EngagementReport struct {
	Window      timeframe.Window
	Rows        []EngagementRow
	TotalViews  int64
	TotalClicks int64
	CTR         float64
}

// PlatformRow is the click count of one platform.
type PlatformRow struct {
	PlatformID string
	Name       string
	Clicks     int64
}

// PlatformReport groups album link clicks by platform.
type PlatformReport struct {
	Window      timeframe.Window
	Platforms   []PlatformRow
	TotalClicks int64
}

// CountryReport groups page views by country code.
type CountryReport struct {
	Window     timeframe.Window
	Countries  []MetricCountResult
	TotalViews int64
}

// AlbumDetail is the drill-down report of one album.
type AlbumDetail struct {
	Window      timeframe.Window
	AlbumID     string
	Title       string
	Views       int64
	Clicks      int64
	CTR         float64
	DailyViews  []timeframe.DateStat
	DailyClicks []timeframe.DateStat
	Platforms   []PlatformRow
}

// report carries what every section of one report needs.
type report struct {
	name   string
	db     *gorm.DB
	logger *slog.Logger
	window timeframe.Window
	since  time.Time
	rowCap int
}

func newReport(db *gorm.DB, logger *slog.Logger, name string, window timeframe.Window, now time.Time) *report {
	return &report{
		name:   name,
		db:     db,
		logger: logger,
		window: window,
		since:  window.Since(now),
		rowCap: RowCap(),
	}
}

func (r *report) events(name string, eventType tracking.EventType, entityType tracking.EntityType, ids []string) async.Task {
	filter := EventFilter{EventType: eventType, EntityType: entityType, EntityIDs: ids, Since: r.since}
	return async.Task{
		Name: name,
		Execute: func(ctx context.Context) (any, error) {
			return RecentEvents(ctx, r.db, filter, r.rowCap)
		},
	}
}

func (r *report) count(name string, eventType tracking.EventType, entityType tracking.EntityType, ids []string) async.Task {
	filter := EventFilter{EventType: eventType, EntityType: entityType, EntityIDs: ids, Since: r.since}
	return async.Task{
		Name: name,
		Execute: func(ctx context.Context) (any, error) {
			return CountEvents(ctx, r.db, filter)
		},
	}
}

func (r *report) lookup(name string, load func(*gorm.DB) (map[string]string, error)) async.Task {
	return async.Task{
		Name: name,
		Execute: func(ctx context.Context) (any, error) {
			return load(r.db.WithContext(ctx))
		},
	}
}

func (r *report) run(ctx context.Context, tasks ...async.Task) map[string]async.Result {
	return reportPool.Execute(ctx, tasks)
}

// section extracts a typed task result. Failed sections are logged and
// replaced by fallback.
func section[T any](r *report, results map[string]async.Result, name string, fallback T) T {
	res, ok := results[name]
	if !ok {
		return fallback
	}
	if res.Err != nil {
		r.logger.Error("Error computing report section",
			slog.String("report", r.name),
			slog.String("section", name),
			slog.Any("error", res.Err))
		return fallback
	}
	value, ok := res.Data.(T)
	if !ok {
		return fallback
	}
	return value
}

func (r *report) titles(ctx context.Context, load func(*gorm.DB, []string) (map[string]string, error), ids []string) map[string]string {
	names, err := load(r.db.WithContext(ctx), ids)
	if err != nil {
		r.logger.Error("Error loading display names", slog.String("report", r.name), slog.Any("error", err))
		return map[string]string{}
	}
	return names
}

func earliestOf(slices ...[]tracking.AnalyticsEvent) time.Time {
	var earliest time.Time
	for _, events := range slices {
		if t := Earliest(events); !t.IsZero() && (earliest.IsZero() || t.Before(earliest)) {
			earliest = t
		}
	}
	return earliest
}

func nameOr(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

func selfHost() string {
	return config.GetConfig().Domain
}

var noEvents = []tracking.AnalyticsEvent{}

// BuildOverview computes the landing report.
func BuildOverview(ctx context.Context, db *gorm.DB, logger *slog.Logger, window timeframe.Window, now time.Time) *Overview {
	defer metrics.NewMetrics().ObserveReport("overview", time.Now())
	r := newReport(db, logger, "overview", window, now)

	results := r.run(ctx,
		r.count("page_view_total", tracking.EventTypePageView, "", nil),
		r.count("link_click_total", tracking.EventTypeLinkClick, "", nil),
		r.count("section_view_total", tracking.EventTypeSectionView, "", nil),
		r.count("session_start_total", tracking.EventTypeSessionStart, "", nil),
		r.events("page_views", tracking.EventTypePageView, "", nil),
		r.events("link_clicks", tracking.EventTypeLinkClick, "", nil),
		r.events("section_views", tracking.EventTypeSectionView, tracking.EntityTypeSiteSection, nil),
	)

	views := section(r, results, "page_views", noEvents)
	clicks := section(r, results, "link_clicks", noEvents)
	sections := section(r, results, "section_views", noEvents)
	days := window.DayStarts(now, earliestOf(views, clicks))

	return &Overview{
		Window: window,
		Totals: Totals{
			PageViews:     section(r, results, "page_view_total", int64(0)),
			LinkClicks:    section(r, results, "link_click_total", int64(0)),
			SectionViews:  section(r, results, "section_view_total", int64(0)),
			SessionStarts: section(r, results, "session_start_total", int64(0)),
		},
		DailyPageViews:  Bucket(views, days),
		DailyLinkClicks: Bucket(clicks, days),
		TopCountries:    Rank(CountByCountry(views), TopLimit),
		TopReferrers:    Rank(CountByReferrer(views, selfHost()), TopLimit),
		TopSections:     Rank(CountByEntity(sections), TopLimit),
	}
}

type engagementKind struct {
	name       string
	viewType   tracking.EntityType
	clickType  tracking.EntityType
	linkOwners func(*gorm.DB) (map[string]string, error)
	titles     func(*gorm.DB, []string) (map[string]string, error)
}

var (
	albumEngagement = engagementKind{
		name:       "albums",
		viewType:   tracking.EntityTypeAlbum,
		clickType:  tracking.EntityTypeAlbumLink,
		linkOwners: catalog.AlbumLinkAlbums,
		titles:     catalog.AlbumTitles,
	}
	showEngagement = engagementKind{
		name:       "events",
		viewType:   tracking.EntityTypeEvent,
		clickType:  tracking.EntityTypeEventLink,
		linkOwners: catalog.ShowLinkShows,
		titles:     catalog.ShowTitles,
	}
	updateEngagement = engagementKind{
		name:       "updates",
		viewType:   tracking.EntityTypeUpdate,
		clickType:  tracking.EntityTypeUpdateLink,
		linkOwners: catalog.UpdateLinkUpdates,
		titles:     catalog.UpdateTitles,
	}
)

func buildEngagement(ctx context.Context, db *gorm.DB, logger *slog.Logger, kind engagementKind, window timeframe.Window, now time.Time) *EngagementReport {
	defer metrics.NewMetrics().ObserveReport(kind.name, time.Now())
	r := newReport(db, logger, kind.name, window, now)

	results := r.run(ctx,
		r.events("views", tracking.EventTypePageView, kind.viewType, nil),
		r.events("clicks", tracking.EventTypeLinkClick, kind.clickType, nil),
		r.lookup("link_owners", kind.linkOwners),
	)

	views := CountByEntity(section(r, results, "views", noEvents))
	clicks := CountByParent(
		section(r, results, "clicks", noEvents),
		section(r, results, "link_owners", map[string]string{}),
	)

	ids := append([]string{}, views.Order...)
	for _, id := range clicks.Order {
		if _, seen := views.Values[id]; !seen {
			ids = append(ids, id)
		}
	}
	titles := r.titles(ctx, kind.titles, ids)

	rows := make([]EngagementRow, 0, len(ids))
	for _, id := range ids {
		v, c := views.Get(id), clicks.Get(id)
		rows = append(rows, EngagementRow{
			ID:     id,
			Title:  nameOr(titles, id),
			Views:  v,
			Clicks: c,
			CTR:    ClickThroughRate(c, v),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Views > rows[j].Views
	})

	totalViews, totalClicks := views.Total(), clicks.Total()
	return &EngagementReport{
		Window:      window,
		Rows:        rows,
		TotalViews:  totalViews,
		TotalClicks: totalClicks,
		CTR:         ClickThroughRate(totalClicks, totalViews),
	}
}

// BuildAlbumReport ranks albums by page views with their link clicks.
func BuildAlbumReport(ctx context.Context, db *gorm.DB, logger *slog.Logger, window timeframe.Window, now time.Time) *EngagementReport {
	return buildEngagement(ctx, db, logger, albumEngagement, window, now)
}

// BuildEventReport ranks shows by page views with their link clicks.
func BuildEventReport(ctx context.Context, db *gorm.DB, logger *slog.Logger, window timeframe.Window, now time.Time) *EngagementReport {
	return buildEngagement(ctx, db, logger, showEngagement, window, now)
}

// BuildUpdateReport ranks updates by page views with their link clicks.
func BuildUpdateReport(ctx context.Context, db *gorm.DB, logger *slog.Logger, window timeframe.Window, now time.Time) *EngagementReport {
	return buildEngagement(ctx, db, logger, updateEngagement, window, now)
}

func (r *report) platformRows(ctx context.Context, counts Counts) []PlatformRow {
	ranked := Rank(counts, 0)
	ids := make([]string, len(ranked))
	for i, m := range ranked {
		ids[i] = m.Name
	}
	names := r.titles(ctx, catalog.PlatformNames, ids)

	rows := make([]PlatformRow, 0, len(ranked))
	for _, m := range ranked {
		rows = append(rows, PlatformRow{PlatformID: m.Name, Name: nameOr(names, m.Name), Clicks: m.Count})
	}
	return rows
}

// BuildPlatformReport groups album link clicks by platform.
func BuildPlatformReport(ctx context.Context, db *gorm.DB, logger *slog.Logger, window timeframe.Window, now time.Time) *PlatformReport {
	defer metrics.NewMetrics().ObserveReport("platforms", time.Now())
	r := newReport(db, logger, "platforms", window, now)

	results := r.run(ctx,
		r.events("clicks", tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, nil),
		r.lookup("link_platforms", catalog.LinkPlatforms),
	)

	counts := CountByPlatform(
		section(r, results, "clicks", noEvents),
		section(r, results, "link_platforms", map[string]string{}),
	)

	return &PlatformReport{
		Window:      window,
		Platforms:   r.platformRows(ctx, counts),
		TotalClicks: counts.Total(),
	}
}

// BuildCountryReport groups page views by country.
func BuildCountryReport(ctx context.Context, db *gorm.DB, logger *slog.Logger, window timeframe.Window, now time.Time) *CountryReport {
	defer metrics.NewMetrics().ObserveReport("countries", time.Now())
	r := newReport(db, logger, "countries", window, now)

	results := r.run(ctx,
		r.events("views", tracking.EventTypePageView, "", nil),
		r.count("total", tracking.EventTypePageView, "", nil),
	)

	return &CountryReport{
		Window:     window,
		Countries:  Rank(CountByCountry(section(r, results, "views", noEvents)), 0),
		TotalViews: section(r, results, "total", int64(0)),
	}
}

// BuildAlbumDetail computes the drill-down report of one album. It returns a
// *catalog.NotFoundError when the album does not exist.
func BuildAlbumDetail(ctx context.Context, db *gorm.DB, logger *slog.Logger, albumID string, window timeframe.Window, now time.Time) (*AlbumDetail, error) {
	defer metrics.NewMetrics().ObserveReport("album_detail", time.Now())
	r := newReport(db, logger, "album_detail", window, now)

	title := albumID
	album, err := catalog.GetAlbum(db.WithContext(ctx), albumID)
	if err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		logger.Error("Error loading album", slog.String("album_id", albumID), slog.Any("error", err))
	} else {
		title = album.Title
	}

	linkIDs, err := catalog.AlbumLinkIDs(db.WithContext(ctx), albumID)
	if err != nil {
		logger.Error("Error loading album links", slog.String("album_id", albumID), slog.Any("error", err))
		linkIDs = []string{}
	}
	if linkIDs == nil {
		linkIDs = []string{}
	}

	albumIDs := []string{albumID}
	results := r.run(ctx,
		r.events("views", tracking.EventTypePageView, tracking.EntityTypeAlbum, albumIDs),
		r.count("view_total", tracking.EventTypePageView, tracking.EntityTypeAlbum, albumIDs),
		r.events("clicks", tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, linkIDs),
		r.count("click_total", tracking.EventTypeLinkClick, tracking.EntityTypeAlbumLink, linkIDs),
		r.lookup("link_platforms", catalog.LinkPlatforms),
	)

	views := section(r, results, "views", noEvents)
	clicks := section(r, results, "clicks", noEvents)
	viewTotal := section(r, results, "view_total", int64(0))
	clickTotal := section(r, results, "click_total", int64(0))
	days := window.DayStarts(now, earliestOf(views, clicks))

	return &AlbumDetail{
		Window:      window,
		AlbumID:     albumID,
		Title:       title,
		Views:       viewTotal,
		Clicks:      clickTotal,
		CTR:         ClickThroughRate(clickTotal, viewTotal),
		DailyViews:  Bucket(views, days),
		DailyClicks: Bucket(clicks, days),
		Platforms:   r.platformRows(ctx, CountByPlatform(clicks, section(r, results, "link_platforms", map[string]string{}))),
	}, nil
}
