// Package dedupe collapses repeated deliveries of the same logical tracking
// event that arrive within a short window.
package dedupe

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Store records the last time a key was accepted.
type Store interface {
	// Seen reports whether key was accepted within window of now. A key that
	// is reported as a duplicate keeps its original timestamp; otherwise the
	// timestamp is set to now.
	Seen(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Sweeper is implemented by stores that hold expired entries in process.
type Sweeper interface {
	Sweep(maxAge time.Duration) int
}

// Key builds the composite dedupe key for one event. Every field is length
// prefixed so client supplied ids containing the separator cannot collide.
func Key(eventType, entityType, entityID, sessionID string) string {
	var b strings.Builder
	for i, field := range []string{eventType, entityType, entityID, sessionID} {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(len(field)))
		b.WriteByte(':')
		b.WriteString(field)
	}
	return b.String()
}
