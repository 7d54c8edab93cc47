// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Store.Get when the key was never written or its
// entry has expired. The two cases are indistinguishable to callers.
var ErrMiss = errors.New("cache miss")

// ErrInvalidTTL is returned by Store.Put for a non-positive TTL.
var ErrInvalidTTL = errors.New("cache ttl must be positive")

// Store is a durable keyed blob store with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores payload under key, replacing any previous entry. The entry
	// is served until ttl has elapsed since the write, at millisecond
	// precision. ttl must be positive; otherwise Put returns ErrInvalidTTL
	// and leaves the store unchanged.
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)

	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats summarizes the contents of a Store.
type Stats struct {
	Backend string `json:"backend" yaml:"backend"`
	Entries int    `json:"entries" yaml:"entries"`

	// Expired counts entries past their TTL that have not been purged yet.
	// Stores with native expiry always report zero.
	Expired int `json:"expired" yaml:"expired"`
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func checkTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidTTL, ttl)
	}
	return nil
}
