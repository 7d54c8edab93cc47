// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by provider adapters.
type HTTPConfig struct {
	// Timeout bounds a single provider request. Expiry counts as a
	// transient failure.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "rankcompare/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ProviderConfig is the static per-provider configuration.
type ProviderConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Enabled controls whether the aggregator calls this provider at all.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// MinResults is the smallest result count an attempt must return to
	// count as a success.
	MinResults int `json:"min_results" yaml:"min_results" mapstructure:"min_results"`

	// SourceTimeout bounds every attempt and retry delay for this provider
	// within one aggregation. Zero means Timeout times the attempt budget.
	SourceTimeout time.Duration `json:"source_timeout,omitempty" yaml:"source_timeout,omitempty" mapstructure:"source_timeout"`

	// RequestsPerSecond throttles outgoing requests; zero disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// BaseURL overrides the provider's API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// AggregateConfig holds retry and fan-out settings for the aggregator.
type AggregateConfig struct {
	// MaxAttempts is the default per-source attempt budget (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryBaseDelay is multiplied by the attempt number between retries.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`

	// RetryJitter adds a uniform random delay in [0, RetryJitter).
	RetryJitter time.Duration `json:"retry_jitter" yaml:"retry_jitter" mapstructure:"retry_jitter"`

	// Concurrency bounds the number of sources fetched at once.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// Cooldown is how long a blocked provider is skipped.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown" mapstructure:"cooldown"`

	// MinIntentConfidence is the confidence a query interpretation needs
	// before its rewritten query replaces the original.
	MinIntentConfidence float64 `json:"min_intent_confidence" yaml:"min_intent_confidence" mapstructure:"min_intent_confidence"`

	// IntentURL is the query-intent service endpoint; empty disables
	// query interpretation.
	IntentURL string `json:"intent_url,omitempty" yaml:"intent_url,omitempty" mapstructure:"intent_url"`
}

// CacheBackend selects the durable result store.
type CacheBackend string

const (
	CacheSQLite CacheBackend = "sqlite"
	CacheRedis  CacheBackend = "redis"
	CacheNone   CacheBackend = "none"
)

// CacheConfig holds settings for both result caches.
type CacheConfig struct {
	Backend CacheBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// RedisAddr is host:port of the Redis server.
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`

	// TTL is the lifetime of durable provider result entries.
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// MemorySize caps the in-memory store for derived artifacts.
	MemorySize int `json:"memory_size" yaml:"memory_size" mapstructure:"memory_size"`

	// MemoryTTL is the lifetime of in-memory entries.
	MemoryTTL time.Duration `json:"memory_ttl" yaml:"memory_ttl" mapstructure:"memory_ttl"`
}

// LogConfig selects logger level and output format ("text" or "json").
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings.
type Config struct {
	UserAgent   string                    `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
	Aggregate   AggregateConfig           `json:"aggregate" yaml:"aggregate" mapstructure:"aggregate"`
	Cache       CacheConfig               `json:"cache" yaml:"cache" mapstructure:"cache"`
	Providers   map[string]ProviderConfig `json:"providers" yaml:"providers" mapstructure:"providers"`
	Boost       BoostConfig               `json:"boost" yaml:"boost" mapstructure:"boost"`
	Log         LogConfig                 `json:"log" yaml:"log" mapstructure:"log"`
	MetricsAddr string                    `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty" mapstructure:"metrics_addr"`
}
