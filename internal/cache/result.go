// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/rankcompare/internal/metrics"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// ResultCache stores provider result sets in a durable Store. Store and
// decode failures are logged and reported as misses; they never reach the
// caller. A ResultCache with a nil Store is a valid always-miss cache.
type ResultCache struct {
	store   Store
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

// resultEntry is the payload stored per key.
type resultEntry struct {
	Source    string               `json:"source"`
	FetchedAt time.Time            `json:"fetched_at"`
	Results   []types.SearchResult `json:"results"`
}

// NewResultCache wraps store. log and m may be nil.
func NewResultCache(store Store, log logrus.FieldLogger, m *metrics.Metrics) *ResultCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ResultCache{store: store, log: log, metrics: m, now: time.Now}
}

// Get returns the cached result set for key. The boolean is false on a miss,
// an expired entry or any cache failure.
func (c *ResultCache) Get(ctx context.Context, source, key string) ([]types.SearchResult, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}

	payload, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.WithFields(logrus.Fields{"source": source, "key": key}).WithError(err).Warn("cache read failed")
		}
		c.metrics.ObserveCacheLookup(source, false)
		return nil, false
	}

	var entry resultEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		c.log.WithFields(logrus.Fields{"source": source, "key": key}).WithError(err).Warn("cache entry undecodable")
		c.metrics.ObserveCacheLookup(source, false)
		return nil, false
	}

	c.log.WithFields(logrus.Fields{"source": source, "key": key, "results": len(entry.Results)}).Debug("cache hit")
	c.metrics.ObserveCacheLookup(source, true)
	return entry.Results, true
}

// Put stores results under key with the given TTL. Failures are logged.
func (c *ResultCache) Put(ctx context.Context, source, key string, results []types.SearchResult, ttl time.Duration) {
	if c == nil || c.store == nil {
		return
	}

	payload, err := json.Marshal(resultEntry{Source: source, FetchedAt: c.now().UTC(), Results: results})
	if err != nil {
		c.log.WithField("source", source).WithError(err).Warn("cache entry unencodable")
		return
	}
	if err := c.store.Put(ctx, key, payload, ttl); err != nil {
		c.log.WithFields(logrus.Fields{"source": source, "key": key}).WithError(err).Warn("cache write failed")
	}
}
