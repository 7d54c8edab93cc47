// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"sync"
	"time"
)

// DefaultCooldown is how long a blocked provider is skipped when no window
// is configured.
const DefaultCooldown = 15 * time.Minute

// Cooldown records providers that signaled abuse detection and reports
// whether they are still inside their cool-down window. One Cooldown is
// shared by every aggregation in the process. A nil *Cooldown never blocks.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	until  map[string]time.Time
	now    func() time.Time
}

// NewCooldown returns a tracker with the given window. A nil now uses
// time.Now.
func NewCooldown(window time.Duration, now func() time.Time) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &Cooldown{window: window, until: make(map[string]time.Time), now: now}
}

// IsBlocked reports whether source is inside its cool-down window. Expired
// marks are dropped.
func (c *Cooldown) IsBlocked(source string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	until, ok := c.until[source]
	if !ok {
		return false
	}
	if !c.now().Before(until) {
		delete(c.until, source)
		return false
	}
	return true
}

// MarkBlocked starts a cool-down for source lasting the configured window,
// or retryAfter when the provider asked for longer.
func (c *Cooldown) MarkBlocked(source string, retryAfter time.Duration) time.Time {
	if c == nil {
		return time.Time{}
	}
	d := c.window
	if retryAfter > d {
		d = retryAfter
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	until := c.now().Add(d)
	if prev, ok := c.until[source]; !ok || until.After(prev) {
		c.until[source] = until
	}
	return c.until[source]
}

// Until returns the end of source's cool-down, if one is active.
func (c *Cooldown) Until(source string) (time.Time, bool) {
	if !c.IsBlocked(source) {
		return time.Time{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.until[source]
	return until, ok
}
