// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCooldown(10*time.Minute, clock.Now)

	assert.False(t, c.IsBlocked("ads"))
	until := c.MarkBlocked("ads", 0)
	assert.Equal(t, clock.Now().Add(10*time.Minute), until)
	assert.True(t, c.IsBlocked("ads"))
	assert.False(t, c.IsBlocked("arxiv"))

	clock.Advance(9 * time.Minute)
	assert.True(t, c.IsBlocked("ads"))
	clock.Advance(time.Minute)
	assert.False(t, c.IsBlocked("ads"))
	_, ok := c.Until("ads")
	assert.False(t, ok)
}

func TestCooldownHonorsLongerRetryAfter(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCooldown(10*time.Minute, clock.Now)

	c.MarkBlocked("semantic_scholar", time.Hour)
	clock.Advance(30 * time.Minute)
	until, ok := c.Until("semantic_scholar")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC), until)

	// A shorter mark does not shorten an active window.
	c.MarkBlocked("semantic_scholar", 0)
	until, _ = c.Until("semantic_scholar")
	assert.Equal(t, time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC), until)

	clock.Advance(30 * time.Minute)
	assert.False(t, c.IsBlocked("semantic_scholar"))
}

func TestCooldownDefaultsAndNil(t *testing.T) {
	c := NewCooldown(0, nil)
	assert.Equal(t, DefaultCooldown, c.window)

	var none *Cooldown
	assert.False(t, none.IsBlocked("ads"))
	assert.True(t, none.MarkBlocked("ads", time.Minute).IsZero())
	_, ok := none.Until("ads")
	assert.False(t, ok)
}

func TestCooldownConcurrentAccess(t *testing.T) {
	c := NewCooldown(time.Minute, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.MarkBlocked("ads", 0)
			} else {
				c.IsBlocked("ads")
			}
		}(i)
	}
	wg.Wait()
	assert.True(t, c.IsBlocked("ads"))
}
