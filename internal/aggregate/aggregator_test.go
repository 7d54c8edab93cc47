// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rankcompare/internal/cache"
	"github.com/pdiddy/rankcompare/internal/provider"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// --- test doubles ---

type step struct {
	results []types.SearchResult
	err     error
}

// scriptedProvider replays one step per call, repeating the last step once
// the script runs out.
type scriptedProvider struct {
	name   string
	script []step

	mu         sync.Mutex
	calls      int
	simplified int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Fetch(ctx context.Context, req provider.Request) ([]types.SearchResult, error) {
	return p.next(false)
}

func (p *scriptedProvider) FetchSimplified(ctx context.Context, req provider.Request) ([]types.SearchResult, error) {
	return p.next(true)
}

func (p *scriptedProvider) next(simplified bool) ([]types.SearchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	if i >= len(p.script) {
		i = len(p.script) - 1
	}
	p.calls++
	if simplified {
		p.simplified++
	}
	s := p.script[i]
	return s.results, s.err
}

func (p *scriptedProvider) Calls() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls, p.simplified
}

// fetchOnly hides the fallback strategy of the wrapped provider.
type fetchOnly struct{ p *scriptedProvider }

func (f fetchOnly) Name() string { return f.p.Name() }

func (f fetchOnly) Fetch(ctx context.Context, req provider.Request) ([]types.SearchResult, error) {
	return f.p.Fetch(ctx, req)
}

// slowProvider blocks until release is closed or ctx ends.
type slowProvider struct {
	name    string
	release chan struct{}
	results []types.SearchResult
}

func (p *slowProvider) Name() string { return p.name }

func (p *slowProvider) Fetch(ctx context.Context, req provider.Request) ([]types.SearchResult, error) {
	select {
	case <-p.release:
		return p.results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func results(source string, n int, withDOI bool) []types.SearchResult {
	out := make([]types.SearchResult, n)
	for i := range out {
		out[i] = types.SearchResult{
			Title:  source + " paper " + string(rune('A'+i)),
			Source: source,
			Rank:   i + 1,
		}
		if withDOI {
			out[i].DOI = "10.1/" + source + string(rune('a'+i))
		}
	}
	return out
}

func transientErr(source string) error {
	return provider.Transient(source, errors.New("HTTP 503"))
}

type harness struct {
	agg     *Aggregator
	rc      *cache.ResultCache
	clock   *fakeClock
	sleeper *recordingSleeper
}

func newHarness(t *testing.T, providers []provider.Provider, configs map[string]types.ProviderConfig) *harness {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store, err := cache.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), cache.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger, _ := test.NewNullLogger()
	rc := cache.NewResultCache(store, logger, nil)
	sleeper := &recordingSleeper{}

	agg := New(providers, configs, types.AggregateConfig{
		MaxAttempts:    3,
		RetryBaseDelay: 100 * time.Millisecond,
		Concurrency:    2,
		Cooldown:       15 * time.Minute,
	},
		WithCache(rc, time.Hour),
		WithCooldown(NewCooldown(15*time.Minute, clock.Now)),
		WithLogger(logger),
		WithSleeper(sleeper.Sleep),
		WithJitter(func(time.Duration) time.Duration { return 0 }),
	)
	return &harness{agg: agg, rc: rc, clock: clock, sleeper: sleeper}
}

// --- Aggregate ---

func TestAggregateTransientTwiceThenSuccess(t *testing.T) {
	ads := &scriptedProvider{name: "ads", script: []step{
		{err: transientErr("ads")},
		{err: transientErr("ads")},
		{results: results("ads", 3, true)},
	}}
	h := newHarness(t, []provider.Provider{ads}, nil)

	req := Request{Query: "triton", Sources: []string{"ads"}, Fields: []string{"title", "doi"}, Limit: 10, MaxAttempts: 3}
	out, err := h.agg.Aggregate(context.Background(), req)
	require.NoError(t, err)

	require.Contains(t, out.Results, "ads")
	assert.Len(t, out.Results["ads"], 3)
	assert.Empty(t, out.Failures)
	assert.NotEmpty(t, out.RunID)

	calls, simplified := ads.Calls()
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, simplified, "second and third attempts use the fallback strategy")
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, h.sleeper.delays)

	key := cache.DeriveKey("ads", "triton", []string{"doi", "title"}, 10, "", nil)
	cached, ok := h.rc.Get(context.Background(), "ads", key)
	require.True(t, ok, "successful fetch populates the cache")
	assert.Equal(t, out.Results["ads"], cached)
}

func TestAggregateServesFromCache(t *testing.T) {
	ads := &scriptedProvider{name: "ads", script: []step{{results: results("ads", 2, true)}}}
	h := newHarness(t, []provider.Provider{ads}, nil)
	req := Request{Query: "triton", Sources: []string{"ads"}}

	_, err := h.agg.Aggregate(context.Background(), req)
	require.NoError(t, err)
	out, err := h.agg.Aggregate(context.Background(), req)
	require.NoError(t, err)

	calls, _ := ads.Calls()
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"ads"}, out.CacheHits)
	assert.Len(t, out.Results["ads"], 2)

	h.clock.Advance(2 * time.Hour)
	_, err = h.agg.Aggregate(context.Background(), req)
	require.NoError(t, err)
	calls, _ = ads.Calls()
	assert.Equal(t, 2, calls, "expired cache entry triggers a live fetch")
}

func TestAggregatePermanentStopsImmediately(t *testing.T) {
	ads := &scriptedProvider{name: "ads", script: []step{
		{err: provider.Permanent("ads", errors.New("HTTP 400"))},
	}}
	arxiv := &scriptedProvider{name: "arxiv", script: []step{{results: results("arxiv", 2, false)}}}
	h := newHarness(t, []provider.Provider{ads, arxiv}, nil)

	out, err := h.agg.Aggregate(context.Background(), Request{Query: "triton", Sources: []string{"ads", "arxiv"}})
	require.NoError(t, err)

	calls, _ := ads.Calls()
	assert.Equal(t, 1, calls)
	assert.NotContains(t, out.Results, "ads")
	assert.Contains(t, out.Results, "arxiv")
	require.Len(t, out.Failures, 1)
	assert.Equal(t, Failure{Source: "ads", Reason: ReasonPermanent, Attempts: 1, Error: "ads: permanent failure: HTTP 400"}, out.Failures[0])
	assert.False(t, out.Empty())
}

func TestAggregateBlockedStartsCooldown(t *testing.T) {
	ads := &scriptedProvider{name: "ads", script: []step{
		{err: provider.Blocked("ads", errors.New("HTTP 403"))},
		{results: results("ads", 1, true)},
	}}
	h := newHarness(t, []provider.Provider{ads}, nil)
	req := Request{Query: "triton", Sources: []string{"ads"}}

	out, err := h.agg.Aggregate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, ReasonBlocked, out.Failures[0].Reason)
	assert.True(t, h.agg.Cooldown().IsBlocked("ads"))

	out, err = h.agg.Aggregate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ReasonCooldown, out.Failures[0].Reason)
	calls, _ := ads.Calls()
	assert.Equal(t, 1, calls, "provider is not called during cool-down")

	h.clock.Advance(16 * time.Minute)
	out, err = h.agg.Aggregate(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, out.Results, "ads")
}

func TestAggregateServesCacheDuringCooldown(t *testing.T) {
	ads := &scriptedProvider{name: "ads", script: []step{
		{results: results("ads", 2, true)},
		{err: provider.Blocked("ads", errors.New("HTTP 403"))},
	}}
	h := newHarness(t, []provider.Provider{ads}, nil)
	ctx := context.Background()

	_, err := h.agg.Aggregate(ctx, Request{Query: "triton", Sources: []string{"ads"}})
	require.NoError(t, err)
	out, err := h.agg.Aggregate(ctx, Request{Query: "neptune", Sources: []string{"ads"}})
	require.NoError(t, err)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, ReasonBlocked, out.Failures[0].Reason)
	require.True(t, h.agg.Cooldown().IsBlocked("ads"))

	out, err = h.agg.Aggregate(ctx, Request{Query: "triton", Sources: []string{"ads"}})
	require.NoError(t, err)
	assert.Empty(t, out.Failures)
	assert.Equal(t, []string{"ads"}, out.CacheHits)
	assert.Len(t, out.Results["ads"], 2)

	out, err = h.agg.Aggregate(ctx, Request{Query: "pluto", Sources: []string{"ads"}})
	require.NoError(t, err)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, ReasonCooldown, out.Failures[0].Reason)

	calls, _ := ads.Calls()
	assert.Equal(t, 2, calls, "cache hits and cool-down skips never reach the provider")
}

func TestAggregateSkipsDisabledAndUnknownSources(t *testing.T) {
	ads := &scriptedProvider{name: "ads", script: []step{{results: results("ads", 1, true)}}}
	h := newHarness(t, []provider.Provider{ads}, map[string]types.ProviderConfig{
		"ads": {Enabled: false},
	})

	out, err := h.agg.Aggregate(context.Background(), Request{Query: "triton", Sources: []string{"ads", "scholar"}})
	require.NoError(t, err)

	calls, _ := ads.Calls()
	assert.Equal(t, 0, calls)
	assert.True(t, out.Empty())
	require.Len(t, out.Failures, 2)
	assert.Equal(t, ReasonDisabled, out.Failures[0].Reason)
	assert.Equal(t, "scholar", out.Failures[1].Source)
	assert.Equal(t, ReasonUnknown, out.Failures[1].Reason)
}

func TestAggregateMinResultsThreshold(t *testing.T) {
	ads := &scriptedProvider{name: "ads", script: []step{{results: results("ads", 1, true)}}}
	h := newHarness(t, []provider.Provider{ads}, map[string]types.ProviderConfig{
		"ads": {Enabled: true, MinResults: 2},
	})

	out, err := h.agg.Aggregate(context.Background(), Request{Query: "triton", Sources: []string{"ads"}})
	require.NoError(t, err)

	assert.True(t, out.Empty())
	require.Len(t, out.Failures, 1)
	assert.Equal(t, ReasonInsufficient, out.Failures[0].Reason)
	assert.Equal(t, 3, out.Failures[0].Attempts)
	calls, _ := ads.Calls()
	assert.Equal(t, 3, calls)
}

func TestAggregateEmptyListIsPresent(t *testing.T) {
	ads := &scriptedProvider{name: "ads", script: []step{{results: []types.SearchResult{}}}}
	h := newHarness(t, []provider.Provider{ads}, nil)

	out, err := h.agg.Aggregate(context.Background(), Request{Query: "zzzz", Sources: []string{"ads"}})
	require.NoError(t, err)
	res, ok := out.Results["ads"]
	assert.True(t, ok)
	assert.Empty(t, res)
}

func TestAggregateExhaustedTransientWithoutFallback(t *testing.T) {
	inner := &scriptedProvider{name: "openalex", script: []step{{err: transientErr("openalex")}}}
	h := newHarness(t, []provider.Provider{fetchOnly{inner}}, nil)

	out, err := h.agg.Aggregate(context.Background(), Request{Query: "triton", Sources: []string{"openalex"}, MaxAttempts: 2})
	require.NoError(t, err)

	calls, simplified := inner.Calls()
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, simplified)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, ReasonTransient, out.Failures[0].Reason)
	assert.Equal(t, 2, out.Failures[0].Attempts)
}

func TestAggregateTimeoutIsTransient(t *testing.T) {
	slow := &slowProvider{name: "arxiv", release: make(chan struct{})}
	defer close(slow.release)
	h := newHarness(t, []provider.Provider{slow}, map[string]types.ProviderConfig{
		"arxiv": {Enabled: true, HTTPConfig: types.HTTPConfig{Timeout: 10 * time.Millisecond}, SourceTimeout: time.Second},
	})

	out, err := h.agg.Aggregate(context.Background(), Request{Query: "triton", Sources: []string{"arxiv"}, MaxAttempts: 2})
	require.NoError(t, err)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, ReasonTransient, out.Failures[0].Reason)
	assert.Equal(t, 2, out.Failures[0].Attempts)
}

// realTimeAggregator uses the real retry sleeper so deadlines are measured
// against wall-clock time.
func realTimeAggregator(providers []provider.Provider, configs map[string]types.ProviderConfig) *Aggregator {
	logger, _ := test.NewNullLogger()
	return New(providers, configs, types.AggregateConfig{
		MaxAttempts:    3,
		RetryBaseDelay: 100 * time.Millisecond,
	},
		WithLogger(logger),
		WithJitter(func(time.Duration) time.Duration { return 0 }),
	)
}

func TestAggregateSourceDeadlineBoundsRetries(t *testing.T) {
	slow := &slowProvider{name: "arxiv", release: make(chan struct{})}
	defer close(slow.release)
	agg := realTimeAggregator([]provider.Provider{slow}, map[string]types.ProviderConfig{
		"arxiv": {Enabled: true, HTTPConfig: types.HTTPConfig{Timeout: 50 * time.Millisecond}},
	})

	start := time.Now()
	out, err := agg.Aggregate(context.Background(), Request{Query: "triton", Sources: []string{"arxiv"}})
	elapsed := time.Since(start)
	require.NoError(t, err)

	require.Len(t, out.Failures, 1)
	assert.Equal(t, ReasonTransient, out.Failures[0].Reason)
	assert.Contains(t, out.Failures[0].Error, "source deadline exceeded")
	assert.Less(t, elapsed, 400*time.Millisecond, "three 50ms attempts are bounded by a 150ms source deadline")
}

func TestAggregateExplicitSourceTimeout(t *testing.T) {
	slow := &slowProvider{name: "arxiv", release: make(chan struct{})}
	defer close(slow.release)
	agg := realTimeAggregator([]provider.Provider{slow}, map[string]types.ProviderConfig{
		"arxiv": {Enabled: true, HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second}, SourceTimeout: 60 * time.Millisecond},
	})

	start := time.Now()
	out, err := agg.Aggregate(context.Background(), Request{Query: "triton", Sources: []string{"arxiv"}})
	elapsed := time.Since(start)
	require.NoError(t, err)

	require.Len(t, out.Failures, 1)
	assert.Equal(t, ReasonTransient, out.Failures[0].Reason)
	assert.Equal(t, 1, out.Failures[0].Attempts)
	assert.Contains(t, out.Failures[0].Error, "source deadline exceeded")
	assert.Less(t, elapsed, time.Second)
}

func TestSourceTimeout(t *testing.T) {
	tests := []struct {
		name        string
		cfg         types.ProviderConfig
		maxAttempts int
		want        time.Duration
	}{
		{"explicit", types.ProviderConfig{SourceTimeout: 7 * time.Second}, 3, 7 * time.Second},
		{"derived from attempt timeout", types.ProviderConfig{HTTPConfig: types.HTTPConfig{Timeout: 2 * time.Second}}, 3, 6 * time.Second},
		{"default attempt timeout", types.ProviderConfig{}, 2, 2 * DefaultTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sourceTimeout(tt.cfg, tt.maxAttempts))
		})
	}
}

func TestAggregateTruncatesAndRenumbers(t *testing.T) {
	raw := results("ads", 5, true)
	raw[0].Rank, raw[1].Rank = 7, 9
	ads := &scriptedProvider{name: "ads", script: []step{{results: raw}}}
	h := newHarness(t, []provider.Provider{ads}, nil)

	out, err := h.agg.Aggregate(context.Background(), Request{Query: "triton", Sources: []string{"ads"}, Limit: 3})
	require.NoError(t, err)
	got := out.Results["ads"]
	require.Len(t, got, 3)
	for i, r := range got {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestAggregateAbandonedRequestStillWarmsCache(t *testing.T) {
	slow := &slowProvider{name: "arxiv", release: make(chan struct{}), results: results("arxiv", 2, false)}
	h := newHarness(t, []provider.Provider{slow}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := Request{Query: "triton", Sources: []string{"arxiv"}}

	resultCh := make(chan Output, 1)
	errCh := make(chan error, 1)
	go func() {
		out, err := h.agg.Aggregate(ctx, req)
		resultCh <- out
		errCh <- err
	}()

	cancel()
	out := <-resultCh
	assert.ErrorIs(t, <-errCh, context.Canceled)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, ReasonCanceled, out.Failures[0].Reason)

	close(slow.release)
	key := cache.DeriveKey("arxiv", "triton", nil, 0, "", nil)
	assert.Eventually(t, func() bool {
		_, ok := h.rc.Get(context.Background(), "arxiv", key)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAggregateRejectsEmptyInput(t *testing.T) {
	h := newHarness(t, nil, nil)
	_, err := h.agg.Aggregate(context.Background(), Request{Query: " ", Sources: []string{"ads"}})
	assert.Error(t, err)
	_, err = h.agg.Aggregate(context.Background(), Request{Query: "triton"})
	assert.Error(t, err)
}

func TestDelayAddsJitter(t *testing.T) {
	a := New(nil, nil, types.AggregateConfig{RetryBaseDelay: time.Second, RetryJitter: 250 * time.Millisecond},
		WithJitter(func(max time.Duration) time.Duration { return max / 2 }))
	assert.Equal(t, 2*time.Second+125*time.Millisecond, a.delay(2))
}

func TestRandomJitterBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		j := randomJitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, 10*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), randomJitter(0))
}
