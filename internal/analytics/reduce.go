package analytics

import (
	"sort"
	"strings"
	"time"

	"musicpage/internal/pkg/referrers"
	"musicpage/internal/timeframe"
	"musicpage/internal/tracking"
)

// UnknownCountry groups events without a country.
const UnknownCountry = "Unknown"

// Counts is a grouped count that remembers the order in which keys first
// appeared in the row source.
type Counts struct {
	Values map[string]int64
	Order  []string
}

// NewCounts returns an empty Counts.
func NewCounts() Counts {
	return Counts{Values: make(map[string]int64)}
}

// Add increments key by n.
func (c *Counts) Add(key string, n int64) {
	if _, ok := c.Values[key]; !ok {
		c.Order = append(c.Order, key)
	}
	c.Values[key] += n
}

// Get returns the count for key.
func (c Counts) Get(key string) int64 {
	return c.Values[key]
}

// Total returns the sum of every count.
func (c Counts) Total() int64 {
	var total int64
	for _, v := range c.Values {
		total += v
	}
	return total
}

// CountBy groups events by key. Events for which key returns false are skipped.
func CountBy(events []tracking.AnalyticsEvent, key func(tracking.AnalyticsEvent) (string, bool)) Counts {
	counts := NewCounts()
	for _, e := range events {
		if k, ok := key(e); ok {
			counts.Add(k, 1)
		}
	}
	return counts
}

// CountByEntity groups events by entity id.
func CountByEntity(events []tracking.AnalyticsEvent) Counts {
	return CountBy(events, func(e tracking.AnalyticsEvent) (string, bool) {
		return e.EntityID, true
	})
}

// CountByCountry groups events by country code.
func CountByCountry(events []tracking.AnalyticsEvent) Counts {
	return CountBy(events, func(e tracking.AnalyticsEvent) (string, bool) {
		if e.Country == nil || strings.TrimSpace(*e.Country) == "" {
			return UnknownCountry, true
		}
		return strings.ToUpper(*e.Country), true
	})
}

// CountByReferrer groups events by the display name of their referrer.
// Referrers from selfHost count as direct traffic.
func CountByReferrer(events []tracking.AnalyticsEvent, selfHost string) Counts {
	return CountBy(events, func(e tracking.AnalyticsEvent) (string, bool) {
		return referrers.Label(e.Referrer, selfHost), true
	})
}

// CountByPlatform groups link clicks by platform id using linkPlatforms
// (link id -> platform id). Unknown links are skipped.
func CountByPlatform(events []tracking.AnalyticsEvent, linkPlatforms map[string]string) Counts {
	return CountBy(events, func(e tracking.AnalyticsEvent) (string, bool) {
		platformID, ok := linkPlatforms[e.EntityID]
		return platformID, ok
	})
}

// CountByParent groups link clicks by the entity that owns the link.
func CountByParent(events []tracking.AnalyticsEvent, linkParents map[string]string) Counts {
	return CountBy(events, func(e tracking.AnalyticsEvent) (string, bool) {
		parentID, ok := linkParents[e.EntityID]
		return parentID, ok
	})
}

// Rank orders counts descending. Ties keep first-appearance order. A limit
// of zero or less returns every key.
func Rank(counts Counts, limit int) []MetricCountResult {
	results := make([]MetricCountResult, 0, len(counts.Order))
	for _, key := range counts.Order {
		results = append(results, MetricCountResult{Name: key, Count: counts.Values[key]})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// ClickThroughRate returns clicks as a percentage of views, or 0 without views.
func ClickThroughRate(clicks, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(clicks) * 100 / float64(views)
}

// DailySeries buckets events by UTC day across the window. Every day in the
// window is present, days without events count zero and events outside the
// window are dropped. For the all-time window the series starts on the day
// of the oldest event in the slice.
func DailySeries(events []tracking.AnalyticsEvent, window timeframe.Window, now time.Time) []timeframe.DateStat {
	return Bucket(events, window.DayStarts(now, Earliest(events)))
}

// Bucket counts events per day for the given day starts.
func Bucket(events []tracking.AnalyticsEvent, days []time.Time) []timeframe.DateStat {
	series := make([]timeframe.DateStat, len(days))
	index := make(map[string]int, len(days))
	for i, day := range days {
		key := timeframe.DayKey(day)
		series[i] = timeframe.DateStat{Date: key}
		index[key] = i
	}

	for _, e := range events {
		if i, ok := index[timeframe.DayKey(e.CreatedAt)]; ok {
			series[i].Count++
		}
	}
	return series
}
