// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate fetches one query from several providers concurrently,
// retrying and falling back per source, and assembles a per-source result
// map. Sources that never succeed are absent from the map; one source's
// failure never fails the whole aggregation.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/rankcompare/internal/cache"
	"github.com/pdiddy/rankcompare/internal/metrics"
	"github.com/pdiddy/rankcompare/internal/provider"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// Defaults applied when AggregateConfig leaves a setting at zero.
const (
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultConcurrency    = 4
	DefaultTimeout        = 30 * time.Second
	DefaultCacheTTL       = 24 * time.Hour
)

// Failure reasons reported for sources absent from Output.Results.
const (
	ReasonDisabled     = "disabled"
	ReasonUnknown      = "unknown"
	ReasonCooldown     = "cooldown"
	ReasonTransient    = "transient"
	ReasonInsufficient = "insufficient"
	ReasonPermanent    = "permanent"
	ReasonBlocked      = "blocked"
	ReasonCanceled     = "canceled"
)

// Request holds the parameters of one aggregation.
type Request struct {
	Query   string
	Sources []string
	Fields  []string
	Limit   int

	// MaxAttempts overrides the configured per-source attempt budget when
	// positive.
	MaxAttempts int

	// FieldWeights is the canonical query-field-weight string passed to
	// providers that support it and folded into the cache key.
	FieldWeights string

	// FieldBoosts is folded into the cache key.
	FieldBoosts map[string]float64
}

// Failure explains why a source is missing from Output.Results.
type Failure struct {
	Source   string `json:"source" yaml:"source"`
	Reason   string `json:"reason" yaml:"reason"`
	Attempts int    `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Output is the result of one aggregation.
type Output struct {
	RunID string
	Query string

	// Results maps source name to its ranked results. A missing key means no
	// usable results; an empty slice means the source succeeded with none.
	Results map[string][]types.SearchResult

	// Failures lists sources absent from Results, sorted by source.
	Failures []Failure

	// CacheHits lists sources served from the cache, sorted.
	CacheHits []string
}

// Empty reports whether no requested source produced results.
func (o Output) Empty() bool {
	return len(o.Results) == 0
}

// Sources returns the sources present in Results, sorted.
func (o Output) Sources() []string {
	names := make([]string, 0, len(o.Results))
	for name := range o.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aggregator orchestrates providers, the result cache and the cool-down
// tracker. It is safe for concurrent use.
type Aggregator struct {
	providers map[string]provider.Provider
	configs   map[string]types.ProviderConfig
	cfg       types.AggregateConfig

	cache    *cache.ResultCache
	cacheTTL time.Duration
	cooldown *Cooldown
	log      logrus.FieldLogger
	metrics  *metrics.Metrics

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCache stores successful fetches in rc with the given TTL.
func WithCache(rc *cache.ResultCache, ttl time.Duration) Option {
	return func(a *Aggregator) {
		a.cache = rc
		if ttl > 0 {
			a.cacheTTL = ttl
		}
	}
}

// WithCooldown shares c across aggregators.
func WithCooldown(c *Cooldown) Option {
	return func(a *Aggregator) { a.cooldown = c }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Aggregator) { a.log = l }
}

// WithMetrics records attempts and latency in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithSleeper replaces the retry delay wait.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Aggregator) { a.sleep = sleep }
}

// WithJitter replaces the random jitter source.
func WithJitter(jitter func(max time.Duration) time.Duration) Option {
	return func(a *Aggregator) { a.jitter = jitter }
}

// New builds an Aggregator over providers. configs holds the static
// per-provider settings; a provider without an entry is enabled with
// defaults.
func New(providers []provider.Provider, configs map[string]types.ProviderConfig, cfg types.AggregateConfig, opts ...Option) *Aggregator {
	a := &Aggregator{
		providers: make(map[string]provider.Provider, len(providers)),
		configs:   configs,
		cfg:       cfg,
		cacheTTL:  DefaultCacheTTL,
		log:       logrus.StandardLogger(),
		sleep:     sleepContext,
		jitter:    randomJitter,
	}
	for _, p := range providers {
		a.providers[p.Name()] = p
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cooldown == nil {
		a.cooldown = NewCooldown(cfg.Cooldown, nil)
	}
	return a
}

// Cooldown returns the tracker used for blocked providers.
func (a *Aggregator) Cooldown() *Cooldown {
	return a.cooldown
}

// sourceOutcome is the result of processing one source.
type sourceOutcome struct {
	results  []types.SearchResult
	ok       bool
	cacheHit bool
	failure  Failure
}

// Aggregate fetches req.Query from every requested source. Per-source work
// continues after ctx is canceled so that in-flight fetches still populate
// the cache; in that case Aggregate returns what has completed so far along
// with ctx.Err().
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (Output, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Output{}, errors.New("query is empty")
	}
	sources := dedupeSources(req.Sources)
	if len(sources) == 0 {
		return Output{}, errors.New("no sources requested")
	}

	start := time.Now()
	runID := uuid.NewString()
	log := a.log.WithFields(logrus.Fields{"run_id": runID, "query": req.Query})

	var (
		mu       sync.Mutex
		outcomes = make(map[string]sourceOutcome, len(sources))
	)

	// Detached from ctx: abandoned aggregations still warm the cache.
	work := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(a.concurrency())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, name := range sources {
			g.Go(func() error {
				out := a.processSource(work, log.WithField("source", name), name, req)
				mu.Lock()
				outcomes[name] = out
				mu.Unlock()
				return nil
			})
		}
		g.Wait()
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		log.WithError(err).Info("aggregation abandoned; in-flight fetches continue")
	}

	mu.Lock()
	output := assemble(runID, req.Query, sources, outcomes, err != nil)
	mu.Unlock()

	a.metrics.ObserveAggregate(time.Since(start))
	log.WithFields(logrus.Fields{
		"succeeded":  len(output.Results),
		"failed":     len(output.Failures),
		"cache_hits": len(output.CacheHits),
		"elapsed":    time.Since(start).Round(time.Millisecond),
	}).Info("aggregation finished")
	return output, err
}

func assemble(runID, query string, sources []string, outcomes map[string]sourceOutcome, canceled bool) Output {
	out := Output{
		RunID:   runID,
		Query:   query,
		Results: make(map[string][]types.SearchResult),
	}
	for _, name := range sources {
		o, ok := outcomes[name]
		switch {
		case !ok && canceled:
			out.Failures = append(out.Failures, Failure{Source: name, Reason: ReasonCanceled})
		case !ok:
			continue
		case o.ok:
			out.Results[name] = o.results
			if o.cacheHit {
				out.CacheHits = append(out.CacheHits, name)
			}
		default:
			out.Failures = append(out.Failures, o.failure)
		}
	}
	sort.Slice(out.Failures, func(i, j int) bool { return out.Failures[i].Source < out.Failures[j].Source })
	sort.Strings(out.CacheHits)
	return out
}

// processSource runs the skip, cache, retry and cache-write steps for one
// source.
func (a *Aggregator) processSource(ctx context.Context, log logrus.FieldLogger, name string, req Request) sourceOutcome {
	p, ok := a.providers[name]
	if !ok {
		a.metrics.ObserveSource(name, "skipped")
		return failed(name, ReasonUnknown, 0, fmt.Errorf("no provider registered as %q", name))
	}
	pcfg := a.providerConfig(name)
	if !pcfg.Enabled {
		log.Debug("provider disabled")
		a.metrics.ObserveSource(name, "skipped")
		return failed(name, ReasonDisabled, 0, nil)
	}

	// Cached results stay servable while the provider is cooling down.
	key := cache.DeriveKey(name, req.Query, req.Fields, req.Limit, req.FieldWeights, req.FieldBoosts)
	if results, hit := a.cache.Get(ctx, name, key); hit {
		a.metrics.ObserveSource(name, "ok")
		return sourceOutcome{results: results, ok: true, cacheHit: true}
	}

	if a.cooldown.IsBlocked(name) {
		until, _ := a.cooldown.Until(name)
		log.WithField("until", until).Info("provider in cool-down; skipping")
		a.metrics.ObserveAttempt(name, metrics.OutcomeCooldown)
		a.metrics.ObserveSource(name, "skipped")
		return failed(name, ReasonCooldown, 0, nil)
	}

	maxAttempts := a.maxAttempts(req)
	sourceCtx, cancel := context.WithTimeout(ctx, sourceTimeout(pcfg, maxAttempts))
	out := a.fetchWithRetry(sourceCtx, log, p, pcfg, req, maxAttempts)
	cancel()
	if !out.ok {
		a.metrics.ObserveSource(name, "failed")
		return out
	}

	a.cache.Put(ctx, name, key, out.results, a.cacheTTL)
	a.metrics.ObserveSource(name, "ok")
	return out
}

// fetchWithRetry makes up to maxAttempts sequential attempts, each bounded
// by the per-attempt timeout and all bounded by ctx. The second and later
// attempts use the provider's fallback strategy when it has one.
func (a *Aggregator) fetchWithRetry(ctx context.Context, log logrus.FieldLogger, p provider.Provider, pcfg types.ProviderConfig, req Request, maxAttempts int) sourceOutcome {
	name := p.Name()
	timeout := attemptTimeout(pcfg)
	preq := provider.Request{
		Query:        req.Query,
		Fields:       req.Fields,
		Limit:        req.Limit,
		FieldWeights: req.FieldWeights,
	}
	simplifier, hasFallback := p.(provider.Simplifier)

	var (
		lastErr    error
		lastReason string
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fetch := p.Fetch
		if attempt > 1 && hasFallback {
			fetch = simplifier.FetchSimplified
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		results, err := fetch(attemptCtx, preq)
		cancel()

		alog := log.WithField("attempt", attempt)
		if err == nil && len(results) >= pcfg.MinResults {
			a.metrics.ObserveAttempt(name, metrics.OutcomeSuccess)
			alog.WithField("results", len(results)).Debug("fetch succeeded")
			return sourceOutcome{results: normalize(results, name, req.Limit), ok: true}
		}

		if err != nil {
			kind := provider.KindOf(err)
			switch kind {
			case provider.KindPermanent:
				a.metrics.ObserveAttempt(name, metrics.OutcomePermanent)
				alog.WithError(err).Warn("permanent provider failure")
				return failed(name, ReasonPermanent, attempt, err)
			case provider.KindBlocked:
				var retryAfter time.Duration
				var pe *provider.Error
				if errors.As(err, &pe) {
					retryAfter = pe.RetryAfter
				}
				until := a.cooldown.MarkBlocked(name, retryAfter)
				a.metrics.ObserveAttempt(name, metrics.OutcomeBlocked)
				alog.WithError(err).WithField("until", until).Warn("provider blocked; starting cool-down")
				return failed(name, ReasonBlocked, attempt, err)
			}
			a.metrics.ObserveAttempt(name, metrics.OutcomeTransient)
			if provider.IsTimeout(err) {
				alog.WithError(err).Warn("attempt timed out")
			} else {
				alog.WithError(err).Warn("transient provider failure")
			}
			lastErr, lastReason = err, ReasonTransient
		} else {
			a.metrics.ObserveAttempt(name, metrics.OutcomeInsufficient)
			lastErr = fmt.Errorf("got %d results, need at least %d", len(results), pcfg.MinResults)
			lastReason = ReasonInsufficient
			alog.WithError(lastErr).Warn("insufficient results")
		}

		if attempt < maxAttempts {
			err := a.sleep(ctx, a.delay(attempt))
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				if provider.IsTimeout(err) {
					alog.WithError(lastErr).Warn("source deadline exceeded; giving up")
					err = fmt.Errorf("source deadline exceeded: %w", lastErr)
				}
				return failed(name, lastReason, attempt, err)
			}
		}
	}
	return failed(name, lastReason, maxAttempts, lastErr)
}

func attemptTimeout(pcfg types.ProviderConfig) time.Duration {
	if pcfg.Timeout > 0 {
		return pcfg.Timeout
	}
	return DefaultTimeout
}

// sourceTimeout bounds all attempts and retry delays for one source. It
// defaults to the per-attempt timeout times the attempt budget.
func sourceTimeout(pcfg types.ProviderConfig, maxAttempts int) time.Duration {
	if pcfg.SourceTimeout > 0 {
		return pcfg.SourceTimeout
	}
	return attemptTimeout(pcfg) * time.Duration(maxAttempts)
}

// delay is base×attempt plus uniform jitter in [0, RetryJitter).
func (a *Aggregator) delay(attempt int) time.Duration {
	base := a.cfg.RetryBaseDelay
	if base <= 0 {
		base = DefaultRetryBaseDelay
	}
	d := base * time.Duration(attempt)
	if a.cfg.RetryJitter > 0 {
		d += a.jitter(a.cfg.RetryJitter)
	}
	return d
}

func (a *Aggregator) maxAttempts(req Request) int {
	switch {
	case req.MaxAttempts > 0:
		return req.MaxAttempts
	case a.cfg.MaxAttempts > 0:
		return a.cfg.MaxAttempts
	default:
		return DefaultMaxAttempts
	}
}

func (a *Aggregator) concurrency() int {
	if a.cfg.Concurrency > 0 {
		return a.cfg.Concurrency
	}
	return DefaultConcurrency
}

func (a *Aggregator) providerConfig(name string) types.ProviderConfig {
	if cfg, ok := a.configs[name]; ok {
		return cfg
	}
	return types.ProviderConfig{Enabled: true}
}

// normalize truncates results to limit, stamps the source and renumbers
// ranks 1..N.
func normalize(results []types.SearchResult, source string, limit int) []types.SearchResult {
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]types.SearchResult, len(results))
	for i, r := range results {
		out[i] = r.Clone()
		out[i].Source = source
	}
	types.Renumber(out)
	return out
}

func failed(source, reason string, attempts int, err error) sourceOutcome {
	f := Failure{Source: source, Reason: reason, Attempts: attempts}
	if err != nil {
		f.Error = err.Error()
	}
	return sourceOutcome{failure: f}
}

func dedupeSources(sources []string) []string {
	seen := make(map[string]bool, len(sources))
	var out []string
	for _, s := range sources {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
