// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rankcompare/internal/aggregate"
	"github.com/pdiddy/rankcompare/pkg/types"
)

func sampleOutput() aggregate.Output {
	return aggregate.Output{
		RunID: "run-1",
		Query: "triton",
		Results: map[string][]types.SearchResult{
			"ads": {
				{Title: "Triton Geysers", DOI: "10.1/a", Year: 1990, Source: "ads", Rank: 1, CitationCount: types.IntPtr(12)},
				{Title: "Neptune Moons", Source: "ads", Rank: 2},
			},
			"openalex": {},
		},
		Failures:  []aggregate.Failure{{Source: "arxiv", Reason: aggregate.ReasonTransient, Attempts: 3, Error: "503"}},
		CacheHits: []string{"ads"},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "triton.yaml")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	boost := &types.BoostConfig{CitationBoost: 1.5}

	snap := FromOutput(sampleOutput(), []string{"openalex", "arxiv", "ads"}, 10, boost, now)
	require.NoError(t, Write(path, snap))

	got, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "triton", got.Query)
	assert.Equal(t, []string{"ads", "arxiv", "openalex"}, got.Sources)
	assert.Equal(t, 10, got.Limit)
	require.NotNil(t, got.Boost)
	assert.InDelta(t, 1.5, got.Boost.CitationBoost, 1e-9)
	assert.True(t, got.Timestamp.Equal(now))

	require.Len(t, got.Results["ads"], 2)
	assert.Equal(t, "10.1/a", got.Results["ads"][0].DOI)
	n, ok := got.Results["ads"][0].Citations()
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	empty, present := got.Results["openalex"]
	assert.True(t, present, "a source that succeeded with no results must survive the round trip")
	assert.Empty(t, empty)

	require.Len(t, got.Failures, 1)
	assert.Equal(t, aggregate.ReasonTransient, got.Failures[0].Reason)
	assert.Equal(t, []string{"ads"}, got.CacheHits)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestReadRejectsSnapshotWithoutQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run_id: x\n"), 0o644))

	_, err := Read(path)
	assert.ErrorContains(t, err, "no query")
}

func TestReadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query: [unterminated\n"), 0o644))

	_, err := Read(path)
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	snap := FromOutput(sampleOutput(), []string{"ads"}, 0, nil, time.Now())

	all, err := snap.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := snap.Select([]string{"ads"})
	require.NoError(t, err)
	assert.Len(t, one, 1)

	_, err = snap.Select([]string{"arxiv"})
	assert.Error(t, err)
}
