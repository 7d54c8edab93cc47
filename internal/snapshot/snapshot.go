// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package snapshot saves an aggregation run to a YAML file so comparisons
// and evaluations can be re-run later without re-querying providers.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rankcompare/internal/aggregate"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// Snapshot is the on-disk representation of one aggregation run.
type Snapshot struct {
	RunID     string                          `yaml:"run_id"`
	Query     string                          `yaml:"query"`
	Sources   []string                        `yaml:"sources"`
	Limit     int                             `yaml:"limit,omitempty"`
	Boost     *types.BoostConfig              `yaml:"boost,omitempty"`
	Results   map[string][]types.SearchResult `yaml:"results"`
	Failures  []aggregate.Failure             `yaml:"failures,omitempty"`
	CacheHits []string                        `yaml:"cache_hits,omitempty"`
	Timestamp time.Time                       `yaml:"timestamp"`
}

// FromOutput builds a snapshot of out. boost is nil when results were not
// re-ranked.
func FromOutput(out aggregate.Output, requested []string, limit int, boost *types.BoostConfig, now time.Time) Snapshot {
	sources := append([]string(nil), requested...)
	sort.Strings(sources)
	return Snapshot{
		RunID:     out.RunID,
		Query:     out.Query,
		Sources:   sources,
		Limit:     limit,
		Boost:     boost,
		Results:   out.Results,
		Failures:  out.Failures,
		CacheHits: out.CacheHits,
		Timestamp: now.UTC(),
	}
}

// Write saves snap to path, creating parent directories as needed.
func Write(path string, snap Snapshot) error {
	if snap.Results == nil {
		snap.Results = map[string][]types.SearchResult{}
	}
	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a snapshot written by Write.
func Read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	if snap.Query == "" {
		return nil, errors.New("snapshot has no query")
	}
	if snap.Results == nil {
		snap.Results = map[string][]types.SearchResult{}
	}
	return &snap, nil
}

// Select returns the result lists for the named sources. An empty names
// list selects every source in the snapshot. Naming a source the snapshot
// does not hold is an error.
func (s *Snapshot) Select(names []string) (map[string][]types.SearchResult, error) {
	if len(names) == 0 {
		return s.Results, nil
	}
	out := make(map[string][]types.SearchResult, len(names))
	for _, name := range names {
		results, ok := s.Results[name]
		if !ok {
			return nil, fmt.Errorf("snapshot %s has no results for source %q", s.RunID, name)
		}
		out[name] = results
	}
	return out, nil
}
