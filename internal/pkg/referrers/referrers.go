// Package referrers turns raw Referer headers into stable display labels.
package referrers

import (
	"net/url"
	"strings"
)

// Direct is the label for events without a usable referrer.
const Direct = "Direct / Unknown"

// Hostnames of sources that commonly link to an artist site.
var knownSources = map[string]string{
	// Search
	"google.com":     "Google",
	"bing.com":       "Bing",
	"duckduckgo.com": "DuckDuckGo",
	"yahoo.com":      "Yahoo",
	"ecosia.org":     "Ecosia",

	// Social
	"x.com":         "X/Twitter",
	"twitter.com":   "X/Twitter",
	"t.co":          "X/Twitter",
	"facebook.com":  "Facebook",
	"fb.com":        "Facebook",
	"instagram.com": "Instagram",
	"threads.net":   "Threads",
	"tiktok.com":    "TikTok",
	"reddit.com":    "Reddit",
	"linkedin.com":  "LinkedIn",
	"bsky.app":      "Bluesky",
	"linktr.ee":     "Linktree",
	"discord.com":   "Discord",
	"t.me":          "Telegram",
	"pinterest.com": "Pinterest",

	// Music and video platforms
	"spotify.com":       "Spotify",
	"open.spotify.com":  "Spotify",
	"music.apple.com":   "Apple Music",
	"youtube.com":       "YouTube",
	"youtu.be":          "YouTube",
	"music.youtube.com": "YouTube Music",
	"bandcamp.com":      "Bandcamp",
	"soundcloud.com":    "SoundCloud",
	"deezer.com":        "Deezer",
	"tidal.com":         "Tidal",
	"music.amazon.com":  "Amazon Music",
	"audiomack.com":     "Audiomack",
	"songkick.com":      "Songkick",
	"bandsintown.com":   "Bandsintown",
	"genius.com":        "Genius",
	"last.fm":           "Last.fm",
}

// Hostname extracts the lower-cased host of a referrer URL, without "www.".
// It returns "" when raw is not an absolute URL.
func Hostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// FriendlyName returns a display name for a referrer hostname. Unknown hosts
// are returned as-is, subdomains of known sources map to the source.
func FriendlyName(hostname string) string {
	hostname = strings.TrimPrefix(strings.ToLower(hostname), "www.")
	if hostname == "" {
		return Direct
	}

	if name, ok := knownSources[hostname]; ok {
		return name
	}

	// Longest matching parent domain wins so music.youtube.com beats youtube.com.
	best := ""
	for domain := range knownSources {
		if strings.HasSuffix(hostname, "."+domain) && len(domain) > len(best) {
			best = domain
		}
	}
	if best != "" {
		return knownSources[best]
	}

	return hostname
}

// Label maps a raw Referer value to its display label. Referrers from
// selfHost are treated as internal navigation and labelled Direct.
func Label(raw *string, selfHost string) string {
	if raw == nil {
		return Direct
	}
	host := Hostname(*raw)
	if host == "" {
		return Direct
	}
	if selfHost != "" && host == strings.TrimPrefix(strings.ToLower(selfHost), "www.") {
		return Direct
	}
	return FriendlyName(host)
}
