// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads rankcompare settings from defaults, an optional
// rankcompare.yaml file and RANKCOMPARE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/rankcompare/internal/provider"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// Names used to locate configuration.
const (
	FileName  = "rankcompare"
	EnvPrefix = "RANKCOMPARE"
)

// DefaultUserAgent is sent when user_agent is not configured.
const DefaultUserAgent = "rankcompare/0.1"

// SetDefaults registers every known key with its default so environment
// variables can override keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("metrics_addr", "")

	v.SetDefault("aggregate.max_attempts", 3)
	v.SetDefault("aggregate.retry_base_delay", 500*time.Millisecond)
	v.SetDefault("aggregate.retry_jitter", 250*time.Millisecond)
	v.SetDefault("aggregate.concurrency", 4)
	v.SetDefault("aggregate.cooldown", 15*time.Minute)
	v.SetDefault("aggregate.min_intent_confidence", 0.5)
	v.SetDefault("aggregate.intent_url", "")

	v.SetDefault("cache.backend", string(types.CacheSQLite))
	v.SetDefault("cache.path", filepath.Join(".rankcompare", "cache.db"))
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.memory_size", 256)
	v.SetDefault("cache.memory_ttl", time.Hour)

	v.SetDefault("boost.combination_method", string(types.CombineSum))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	for _, name := range provider.Names() {
		prefix := "providers." + name + "."
		v.SetDefault(prefix+"enabled", true)
		v.SetDefault(prefix+"min_results", 1)
		v.SetDefault(prefix+"timeout", 30*time.Second)
		v.SetDefault(prefix+"source_timeout", time.Duration(0))
		v.SetDefault(prefix+"requests_per_second", 0)
		v.SetDefault(prefix+"base_url", "")
	}
}

// Init prepares v: defaults, environment binding, and either the explicit
// file or the standard search paths (. and ~/.config/rankcompare).
func Init(v *viper.Viper, file string) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Read loads the config file, if any, and returns its path. A missing file
// in the search paths is not an error; a missing explicit file is.
func Read(v *viper.Viper) (string, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Unmarshal decodes v into a validated Config. Providers without their own
// user agent inherit the global one.
func Unmarshal(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	for name, pc := range cfg.Providers {
		if pc.UserAgent == "" {
			pc.UserAgent = cfg.UserAgent
		}
		cfg.Providers[name] = pc
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the components cannot run with.
func Validate(cfg types.Config) error {
	switch cfg.Cache.Backend {
	case types.CacheSQLite:
		if cfg.Cache.Path == "" {
			return errors.New("cache.path is required for the sqlite backend")
		}
	case types.CacheRedis:
		if cfg.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	case types.CacheNone:
	default:
		return fmt.Errorf("unknown cache.backend %q: use sqlite, redis or none", cfg.Cache.Backend)
	}
	if cfg.Aggregate.MaxAttempts < 0 {
		return fmt.Errorf("aggregate.max_attempts must be non-negative, got %d", cfg.Aggregate.MaxAttempts)
	}
	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", cfg.Cache.TTL)
	}
	for name, pc := range cfg.Providers {
		if pc.Timeout < 0 || pc.SourceTimeout < 0 {
			return fmt.Errorf("providers.%s: timeouts must be non-negative", name)
		}
	}
	if c := cfg.Aggregate.MinIntentConfidence; c < 0 || c > 1 {
		return fmt.Errorf("aggregate.min_intent_confidence must be in [0, 1], got %v", c)
	}
	if err := cfg.Boost.Validate(); err != nil {
		return fmt.Errorf("boost: %w", err)
	}
	return nil
}
