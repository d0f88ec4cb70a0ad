package http

import (
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"musicpage/internal/analytics"
	"musicpage/internal/catalog"
	"musicpage/internal/timeframe"
)

type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type OverviewResponse struct {
	Window            string                        `json:"window"`
	TotalPageViews    int64                         `json:"total_page_views"`
	TotalLinkClicks   int64                         `json:"total_link_clicks"`
	TotalSectionViews int64                         `json:"total_section_views"`
	TotalSessions     int64                         `json:"total_sessions"`
	PageViews         []TimeSeriesPoint             `json:"page_views"`
	LinkClicks        []TimeSeriesPoint             `json:"link_clicks"`
	TopCountries      []analytics.MetricCountResult `json:"top_countries"`
	TopReferrers      []analytics.MetricCountResult `json:"top_referrers"`
	TopSections       []analytics.MetricCountResult `json:"top_sections"`
}

type EngagementRowResponse struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Views  int64   `json:"views"`
	Clicks int64   `json:"clicks"`
	CTR    float64 `json:"ctr"`
}

type EngagementResponse struct {
	Window      string                  `json:"window"`
	Rows        []EngagementRowResponse `json:"rows"`
	TotalViews  int64                   `json:"total_views"`
	TotalClicks int64                   `json:"total_clicks"`
	CTR         float64                 `json:"ctr"`
}

type PlatformRowResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Clicks int64  `json:"clicks"`
}

type PlatformResponse struct {
	Window      string                `json:"window"`
	Platforms   []PlatformRowResponse `json:"platforms"`
	TotalClicks int64                 `json:"total_clicks"`
}

type CountryResponse struct {
	Window     string                        `json:"window"`
	Countries  []analytics.MetricCountResult `json:"countries"`
	TotalViews int64                         `json:"total_views"`
}

type AlbumDetailResponse struct {
	Window      string                `json:"window"`
	AlbumID     string                `json:"album_id"`
	Title       string                `json:"title"`
	Views       int64                 `json:"views"`
	Clicks      int64                 `json:"clicks"`
	CTR         float64               `json:"ctr"`
	DailyViews  []TimeSeriesPoint     `json:"daily_views"`
	DailyClicks []TimeSeriesPoint     `json:"daily_clicks"`
	Platforms   []PlatformRowResponse `json:"platforms"`
}

func convertToTimeSeries(stats []timeframe.DateStat) []TimeSeriesPoint {
	result := make([]TimeSeriesPoint, len(stats))
	for i, stat := range stats {
		result[i] = TimeSeriesPoint{Date: stat.Date, Count: stat.Count}
	}
	return result
}

func convertCountryStats(items []analytics.MetricCountResult) []analytics.MetricCountResult {
	caser := cases.Upper(language.AmericanEnglish)
	countries := gountries.New()

	result := make([]analytics.MetricCountResult, len(items))
	for i, item := range items {
		name := item.Name
		if name != analytics.UnknownCountry {
			if country, err := countries.FindCountryByAlpha(name); err == nil {
				name = country.Name.Common
			} else {
				name = caser.String(name)
			}
		}
		result[i] = analytics.MetricCountResult{Name: name, Count: item.Count}
	}
	return result
}

func convertPlatformRows(rows []analytics.PlatformRow) []PlatformRowResponse {
	caser := cases.Title(language.AmericanEnglish)

	result := make([]PlatformRowResponse, len(rows))
	for i, row := range rows {
		name := row.Name
		if name == strings.ToLower(name) {
			name = caser.String(strings.ReplaceAll(name, "_", " "))
		}
		result[i] = PlatformRowResponse{ID: row.PlatformID, Name: name, Clicks: row.Clicks}
	}
	return result
}

func convertEngagement(report *analytics.EngagementReport) EngagementResponse {
	rows := make([]EngagementRowResponse, len(report.Rows))
	for i, row := range report.Rows {
		rows[i] = EngagementRowResponse{
			ID:     row.ID,
			Title:  row.Title,
			Views:  row.Views,
			Clicks: row.Clicks,
			CTR:    roundRate(row.CTR),
		}
	}
	return EngagementResponse{
		Window:      report.Window.String(),
		Rows:        rows,
		TotalViews:  report.TotalViews,
		TotalClicks: report.TotalClicks,
		CTR:         roundRate(report.CTR),
	}
}

// roundRate keeps two decimals.
func roundRate(rate float64) float64 {
	return math.Round(rate*100) / 100
}

func ensureNonNil(items []analytics.MetricCountResult) []analytics.MetricCountResult {
	if items == nil {
		return []analytics.MetricCountResult{}
	}
	return items
}

// parseTimeFrame reads ?days=.
func parseTimeFrame(ctx *cartridge.Context) (*timeframe.TimeFrame, error) {
	timeFrame, err := timeframe.NewTimeFrameParser().Parse(ctx.Query("days"))
	if err != nil {
		ctx.Logger.Warn("Invalid analytics window", slog.String("days", ctx.Query("days")), slog.Any("error", err))
		return nil, err
	}
	return timeFrame, nil
}

func invalidWindow(ctx *cartridge.Context) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid window"})
}

// AnalyticsOverviewAction handles GET /admin/api/analytics/overview
func AnalyticsOverviewAction(ctx *cartridge.Context) error {
	timeFrame, err := parseTimeFrame(ctx)
	if err != nil {
		return invalidWindow(ctx)
	}

	overview := analytics.BuildOverview(ctx.UserContext(), ctx.DB(), ctx.Logger, timeFrame.Window, timeFrame.Now)

	return ctx.JSON(OverviewResponse{
		Window:            timeFrame.Window.String(),
		TotalPageViews:    overview.Totals.PageViews,
		TotalLinkClicks:   overview.Totals.LinkClicks,
		TotalSectionViews: overview.Totals.SectionViews,
		TotalSessions:     overview.Totals.SessionStarts,
		PageViews:         convertToTimeSeries(overview.DailyPageViews),
		LinkClicks:        convertToTimeSeries(overview.DailyLinkClicks),
		TopCountries:      convertCountryStats(overview.TopCountries),
		TopReferrers:      ensureNonNil(overview.TopReferrers),
		TopSections:       ensureNonNil(overview.TopSections),
	})
}

// AnalyticsAlbumsAction handles GET /admin/api/analytics/albums
func AnalyticsAlbumsAction(ctx *cartridge.Context) error {
	timeFrame, err := parseTimeFrame(ctx)
	if err != nil {
		return invalidWindow(ctx)
	}

	report := analytics.BuildAlbumReport(ctx.UserContext(), ctx.DB(), ctx.Logger, timeFrame.Window, timeFrame.Now)
	return ctx.JSON(convertEngagement(report))
}

// AnalyticsAlbumAction handles GET /admin/api/analytics/albums/:id
func AnalyticsAlbumAction(ctx *cartridge.Context) error {
	timeFrame, err := parseTimeFrame(ctx)
	if err != nil {
		return invalidWindow(ctx)
	}

	albumID := ctx.Params("id")
	detail, err := analytics.BuildAlbumDetail(ctx.UserContext(), ctx.DB(), ctx.Logger, albumID, timeFrame.Window, timeFrame.Now)
	if err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Album not found"})
		}
		ctx.Logger.Error("Failed to build album report", slog.String("album_id", albumID), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build album report"})
	}

	return ctx.JSON(AlbumDetailResponse{
		Window:      timeFrame.Window.String(),
		AlbumID:     detail.AlbumID,
		Title:       detail.Title,
		Views:       detail.Views,
		Clicks:      detail.Clicks,
		CTR:         roundRate(detail.CTR),
		DailyViews:  convertToTimeSeries(detail.DailyViews),
		DailyClicks: convertToTimeSeries(detail.DailyClicks),
		Platforms:   convertPlatformRows(detail.Platforms),
	})
}

// AnalyticsPlatformsAction handles GET /admin/api/analytics/platforms
func AnalyticsPlatformsAction(ctx *cartridge.Context) error {
	timeFrame, err := parseTimeFrame(ctx)
	if err != nil {
		return invalidWindow(ctx)
	}

	report := analytics.BuildPlatformReport(ctx.UserContext(), ctx.DB(), ctx.Logger, timeFrame.Window, timeFrame.Now)
	return ctx.JSON(PlatformResponse{
		Window:      timeFrame.Window.String(),
		Platforms:   convertPlatformRows(report.Platforms),
		TotalClicks: report.TotalClicks,
	})
}

// AnalyticsCountriesAction handles GET /admin/api/analytics/countries
func AnalyticsCountriesAction(ctx *cartridge.Context) error {
	timeFrame, err := parseTimeFrame(ctx)
	if err != nil {
		return invalidWindow(ctx)
	}

	report := analytics.BuildCountryReport(ctx.UserContext(), ctx.DB(), ctx.Logger, timeFrame.Window, timeFrame.Now)
	return ctx.JSON(CountryResponse{
		Window:     timeFrame.Window.String(),
		Countries:  convertCountryStats(report.Countries),
		TotalViews: report.TotalViews,
	})
}

// AnalyticsEventsAction handles GET /admin/api/analytics/events
func AnalyticsEventsAction(ctx *cartridge.Context) error {
	timeFrame, err := parseTimeFrame(ctx)
	if err != nil {
		return invalidWindow(ctx)
	}

	report := analytics.BuildEventReport(ctx.UserContext(), ctx.DB(), ctx.Logger, timeFrame.Window, timeFrame.Now)
	return ctx.JSON(convertEngagement(report))
}

// AnalyticsUpdatesAction handles GET /admin/api/analytics/updates
func AnalyticsUpdatesAction(ctx *cartridge.Context) error {
	timeFrame, err := parseTimeFrame(ctx)
	if err != nil {
		return invalidWindow(ctx)
	}

	report := analytics.BuildUpdateReport(ctx.UserContext(), ctx.DB(), ctx.Logger, timeFrame.Window, timeFrame.Now)
	return ctx.JSON(convertEngagement(report))
}
