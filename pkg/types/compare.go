// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Metric names accepted by the comparison engine.
const (
	MetricJaccard = "jaccard"
	MetricRBO     = "rbo"
	MetricCosine  = "cosine"
)

// Overlap counts shared results between two ranked lists.
type Overlap struct {
	ByDOI     int `json:"by_doi" yaml:"by_doi"`
	ByTitle   int `json:"by_title" yaml:"by_title"`
	Total     int `json:"total" yaml:"total"`
	SameRank  int `json:"same_rank" yaml:"same_rank"`
	UniqueToA int `json:"unique_to_a" yaml:"unique_to_a"`
	UniqueToB int `json:"unique_to_b" yaml:"unique_to_b"`
}

// ComparisonResult is the agreement report for one source pair. It is
// derived on demand and never persisted on its own.
type ComparisonResult struct {
	SourceA string  `json:"source_a" yaml:"source_a"`
	SourceB string  `json:"source_b" yaml:"source_b"`
	Overlap Overlap `json:"overlap" yaml:"overlap"`

	// Metrics maps metric name (e.g. "jaccard", "rbo", "cosine:title",
	// "jaccard:doi") to its score.
	Metrics map[string]float64 `json:"metrics" yaml:"metrics"`

	// RBOFallback is set when RBO could not be computed and Jaccard was
	// reported in its place.
	RBOFallback bool `json:"rbo_fallback,omitempty" yaml:"rbo_fallback,omitempty"`
}
