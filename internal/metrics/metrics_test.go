// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAttempt(t *testing.T) {
	m := New()
	m.ObserveAttempt("ads", OutcomeTransient)
	m.ObserveAttempt("ads", OutcomeTransient)
	m.ObserveAttempt("ads", OutcomeSuccess)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("ads", OutcomeTransient)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("ads", OutcomeSuccess)))
}

func TestObserveCacheLookup(t *testing.T) {
	m := New()
	m.ObserveCacheLookup("arxiv", true)
	m.ObserveCacheLookup("arxiv", false)
	m.ObserveCacheLookup("arxiv", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("arxiv", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("arxiv", "miss")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAttempt("ads", OutcomeSuccess)
		m.ObserveCacheLookup("ads", true)
		m.ObserveSource("ads", "ok")
		m.ObserveAggregate(time.Second)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveSource("openalex", "ok")
	m.ObserveAggregate(250 * time.Millisecond)

	ts := httptest.NewServer(m.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `rankcompare_aggregate_sources_total{source="openalex",status="ok"} 1`)
	assert.Contains(t, string(body), "rankcompare_aggregate_duration_seconds_count 1")
}
