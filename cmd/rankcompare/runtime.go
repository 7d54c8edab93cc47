// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rankcompare/internal/aggregate"
	"github.com/pdiddy/rankcompare/internal/boost"
	"github.com/pdiddy/rankcompare/internal/cache"
	"github.com/pdiddy/rankcompare/internal/provider"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// openStore opens the configured durable cache backend. It returns nil for
// the "none" backend.
func openStore(ctx context.Context, cfg types.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case types.CacheSQLite:
		s, err := cache.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case types.CacheRedis:
		s, err := cache.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return s, nil
	case types.CacheNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// buildProviders constructs every known provider. Disabled providers are
// still built so the aggregator can report them as disabled.
func buildProviders(cfg types.Config) ([]provider.Provider, error) {
	client := &http.Client{}
	var out []provider.Provider
	for _, name := range provider.Names() {
		p, err := provider.New(name, cfg.Providers[name], app.creds, client)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// session bundles an aggregator with the cache store it owns.
type session struct {
	agg   *aggregate.Aggregator
	store cache.Store
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			app.log.WithError(err).Warn("closing cache")
		}
	}
}

func newSession(ctx context.Context, noCache bool) (*session, error) {
	cfg := app.cfg

	var store cache.Store
	if !noCache {
		var err error
		store, err = openStore(ctx, cfg.Cache)
		if err != nil {
			// A broken cache degrades to live fetches.
			app.log.WithError(err).Warn("result cache unavailable; fetching live")
			store = nil
		}
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(providers, cfg.Providers, cfg.Aggregate,
		aggregate.WithCache(cache.NewResultCache(store, app.log, app.metrics), cfg.Cache.TTL),
		aggregate.WithLogger(app.log),
		aggregate.WithMetrics(app.metrics),
	)
	return &session{agg: agg, store: store}, nil
}

// newPreprocessor returns nil when no intent service is configured.
func newPreprocessor() (*aggregate.Preprocessor, error) {
	cfg := app.cfg
	if cfg.Aggregate.IntentURL == "" {
		return nil, nil
	}
	memo, err := cache.NewMemoryLRU[aggregate.Interpretation](cfg.Cache.MemorySize, cfg.Cache.MemoryTTL)
	if err != nil {
		return nil, fmt.Errorf("creating interpretation cache: %w", err)
	}
	interp := &aggregate.HTTPInterpreter{
		Client:    &http.Client{Timeout: aggregate.DefaultTimeout},
		URL:       cfg.Aggregate.IntentURL,
		UserAgent: cfg.UserAgent,
	}
	return aggregate.NewPreprocessor(interp, memo, cfg.Aggregate.MinIntentConfidence, app.log), nil
}

// runOptions are the aggregation flags shared by search, compare and
// evaluate.
type runOptions struct {
	sources     []string
	fields      []string
	limit       int
	maxAttempts int
	noCache     bool
	noIntent    bool
}

// liveRun aggregates query and returns the output with the query actually
// sent to providers.
func liveRun(ctx context.Context, query string, opts runOptions, bcfg types.BoostConfig) (aggregate.Output, error) {
	if !opts.noIntent {
		pre, err := newPreprocessor()
		if err != nil {
			return aggregate.Output{}, err
		}
		query, _ = pre.PrepareQuery(ctx, query)
	}

	s, err := newSession(ctx, opts.noCache)
	if err != nil {
		return aggregate.Output{}, err
	}
	defer s.Close()

	sources := opts.sources
	if len(sources) == 0 {
		sources = enabledSources(app.cfg)
	}
	return s.agg.Aggregate(ctx, aggregate.Request{
		Query:        query,
		Sources:      sources,
		Fields:       opts.fields,
		Limit:        opts.limit,
		MaxAttempts:  opts.maxAttempts,
		FieldWeights: bcfg.QueryFieldWeights(),
	})
}

func enabledSources(cfg types.Config) []string {
	var out []string
	for _, name := range provider.Names() {
		if pc, ok := cfg.Providers[name]; !ok || pc.Enabled {
			out = append(out, name)
		}
	}
	return out
}

// boostAll re-ranks every source's results with cfg.
func boostAll(results map[string][]types.SearchResult, cfg types.BoostConfig) map[string][]types.SearchResult {
	if cfg.IsZero() {
		app.log.Warn("boost model has no citation, recency or doctype weights; ranks will not change")
	}
	out := make(map[string][]types.SearchResult, len(results))
	for name, rs := range results {
		out[name] = boost.Apply(rs, cfg)
	}
	return out
}

// loadBoost returns the configured boost model, replaced by the YAML file at
// path when one is given.
func loadBoost(path string) (types.BoostConfig, error) {
	cfg := app.cfg.Boost
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading boost file: %w", err)
		}
		var fileCfg types.BoostConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parsing boost file %s: %w", path, err)
		}
		cfg = fileCfg
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("boost: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// queryArg joins positional arguments into one query.
func queryArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
