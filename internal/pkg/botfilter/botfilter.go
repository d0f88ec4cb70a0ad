// Package botfilter decides whether a user-agent belongs to a crawler,
// link-preview fetcher or scripted client.
package botfilter

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

//go:embed bots.yml
var botsDatabase []byte

// PatternEntry is a named PCRE pattern from the bots database.
type PatternEntry struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
}

// Database is the parsed bots.yml.
type Database struct {
	Signatures []string       `yaml:"signatures"`
	Patterns   []PatternEntry `yaml:"patterns"`
}

// Compiled regex cache
type RegexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *RegexCache {
	return &RegexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *RegexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

// Filter matches user-agents against a signature list and a set of patterns.
type Filter struct {
	signatures []string
	patterns   []PatternEntry
	regexCache *RegexCache
}

// New builds a filter from a raw YAML database.
func New(data []byte) (*Filter, error) {
	var db Database
	if err := yaml.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("failed to parse bots database: %w", err)
	}

	f := &Filter{
		patterns:   db.Patterns,
		regexCache: newRegexCache(),
	}
	for _, sig := range db.Signatures {
		if sig = normalize(sig); sig != "" {
			f.signatures = append(f.signatures, sig)
		}
	}
	return f, nil
}

var (
	defaultFilter *Filter
	once          sync.Once
)

// Default returns the filter loaded from the embedded bots database.
func Default() *Filter {
	once.Do(func() {
		f, err := New(botsDatabase)
		if err != nil {
			panic(err)
		}
		defaultFilter = f
	})
	return defaultFilter
}

// IsBot reports whether userAgent is empty or matches a known signature.
// Extra signatures are matched the same way as the built-in ones.
func (f *Filter) IsBot(userAgent string, extra ...string) bool {
	ua := normalize(userAgent)
	if ua == "" {
		return true
	}

	for _, sig := range f.signatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	for _, sig := range extra {
		if sig = normalize(sig); sig != "" && strings.Contains(ua, sig) {
			return true
		}
	}

	for _, p := range f.patterns {
		regex, err := f.regexCache.get(p.Regex)
		if err != nil {
			continue
		}
		if regex.MatchString(userAgent) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
