package botfilter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicpage/internal/pkg/botfilter"
)

func TestIsBot(t *testing.T) {
	testCases := []struct {
		name      string
		userAgent string
		expected  bool
	}{
		{
			name:      "Empty user agent",
			userAgent: "",
			expected:  true,
		},
		{
			name:      "Whitespace user agent",
			userAgent: "   ",
			expected:  true,
		},
		{
			name:      "Googlebot",
			userAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			expected:  true,
		},
		{
			name:      "Facebook link preview",
			userAgent: "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)",
			expected:  true,
		},
		{
			name:      "Uppercase signature",
			userAgent: "SOME-CRAWLER/1.0",
			expected:  true,
		},
		{
			name:      "WhatsApp preview",
			userAgent: "WhatsApp/2.23.20.0 A",
			expected:  true,
		},
		{
			name:      "curl",
			userAgent: "curl/8.4.0",
			expected:  true,
		},
		{
			name:      "python requests",
			userAgent: "python-requests/2.31.0",
			expected:  true,
		},
		{
			name:      "Chrome on Windows",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			expected:  false,
		},
		{
			name:      "Safari on iPhone",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			expected:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, botfilter.Default().IsBot(tc.userAgent))
		})
	}
}

func TestIsBotWithExtraSignatures(t *testing.T) {
	f := botfilter.Default()
	ua := "Mozilla/5.0 (X11; Linux x86_64) InternalMonitor/3.2"

	assert.False(t, f.IsBot(ua))
	assert.True(t, f.IsBot(ua, "internalmonitor"))
	assert.True(t, f.IsBot(ua, " InternalMonitor "))
	assert.False(t, f.IsBot(ua, "", "  "))
}

func TestNew(t *testing.T) {
	t.Run("parses signatures and patterns", func(t *testing.T) {
		f, err := botfilter.New([]byte(`
signatures:
  - " ExampleCrawler "
patterns:
  - name: exact
    regex: '^agent-x$'
`))
		require.NoError(t, err)
		assert.True(t, f.IsBot("My EXAMPLECRAWLER client"))
		assert.True(t, f.IsBot("examplecrawler/1.0"))
		assert.False(t, f.IsBot("Example Crawler"))
		assert.True(t, f.IsBot("agent-x"))
		assert.False(t, f.IsBot("agent-xy"))
	})

	t.Run("rejects invalid yaml", func(t *testing.T) {
		_, err := botfilter.New([]byte("signatures: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("skips invalid patterns", func(t *testing.T) {
		f, err := botfilter.New([]byte(`
patterns:
  - name: broken
    regex: '(['
`))
		require.NoError(t, err)
		assert.False(t, f.IsBot("Mozilla/5.0"))
	})
}
