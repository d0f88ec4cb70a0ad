package referrers

import "testing"

func TestFriendlyName(t *testing.T) {
	tests := []struct {
		hostname string
		expected string
	}{
		{"google.com", "Google"},
		{"www.instagram.com", "Instagram"},
		{"open.spotify.com", "Spotify"},
		{"music.youtube.com", "YouTube Music"},
		{"m.youtube.com", "YouTube"},
		{"l.facebook.com", "Facebook"},
		{"artist.bandcamp.com", "Bandcamp"},
		{"BANDCAMP.COM", "Bandcamp"},
		{"myblog.io", "myblog.io"},
		{"", Direct},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			got := FriendlyName(tt.hostname)
			if got != tt.expected {
				t.Errorf("FriendlyName(%q) = %q, want %q", tt.hostname, got, tt.expected)
			}
		})
	}
}

func TestHostname(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"https://www.Google.com/search?q=band", "google.com"},
		{"https://open.spotify.com/album/1", "open.spotify.com"},
		{"android-app://com.google.android.gm/", "com.google.android.gm"},
		{"not a url", ""},
		{"/relative/path", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Hostname(tt.raw); got != tt.expected {
				t.Errorf("Hostname(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	ref := func(s string) *string { return &s }

	tests := []struct {
		name     string
		raw      *string
		self     string
		expected string
	}{
		{"nil referrer", nil, "", Direct},
		{"empty referrer", ref(""), "", Direct},
		{"internal navigation", ref("https://www.artist.com/albums"), "artist.com", Direct},
		{"known source", ref("https://t.co/abc"), "artist.com", "X/Twitter"},
		{"unknown source", ref("https://blog.example.org/post"), "artist.com", "blog.example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.raw, tt.self); got != tt.expected {
				t.Errorf("Label() = %q, want %q", got, tt.expected)
			}
		})
	}
}
