// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CombinationMethod selects how independent boost contributions combine.
type CombinationMethod string

const (
	// CombineSum adds contributions. This is the default.
	CombineSum CombinationMethod = "sum"

	// CombineProduct multiplies (1 + contribution) factors and subtracts one,
	// so a batch with no applicable boosts still scores zero.
	CombineProduct CombinationMethod = "product"
)

// Boost factor names recorded in SearchResult.BoostFactors.
const (
	FactorCitation = "citation"
	FactorRecency  = "recency"
	FactorDocType  = "doctype"
)

// BoostConfig is a caller-supplied scoring model. Treat it as immutable once
// it has been applied to a batch.
type BoostConfig struct {
	// CitationBoost weights ln(1 + citation_count).
	CitationBoost float64 `json:"citation_boost" yaml:"citation_boost" mapstructure:"citation_boost"`

	// MinCitations is the threshold below which no citation boost applies.
	MinCitations int `json:"min_citations" yaml:"min_citations" mapstructure:"min_citations"`

	// RecencyBoost is divided by 1 + age in years.
	RecencyBoost float64 `json:"recency_boost" yaml:"recency_boost" mapstructure:"recency_boost"`

	// ReferenceYear anchors the age computation; zero means the current year.
	ReferenceYear int `json:"reference_year,omitempty" yaml:"reference_year,omitempty" mapstructure:"reference_year"`

	// DocTypeBoosts maps a doctype to its additive weight.
	DocTypeBoosts map[string]float64 `json:"doctype_boosts,omitempty" yaml:"doctype_boosts,omitempty" mapstructure:"doctype_boosts"`

	// FieldWeights maps a query field to its weight. These shape the query
	// sent to providers and the cache key; they do not score results.
	FieldWeights map[string]float64 `json:"field_weights,omitempty" yaml:"field_weights,omitempty" mapstructure:"field_weights"`

	// CombinationMethod is "sum" (default) or "product".
	CombinationMethod CombinationMethod `json:"combination_method,omitempty" yaml:"combination_method,omitempty" mapstructure:"combination_method"`
}

// IsZero reports whether the config has no result-side boosts configured.
func (c BoostConfig) IsZero() bool {
	return c.CitationBoost == 0 && c.RecencyBoost == 0 && len(c.DocTypeBoosts) == 0
}

// Validate rejects negative thresholds and unknown combination methods.
func (c BoostConfig) Validate() error {
	if c.MinCitations < 0 {
		return fmt.Errorf("min_citations must be non-negative, got %d", c.MinCitations)
	}
	switch c.CombinationMethod {
	case "", CombineSum, CombineProduct:
	default:
		return fmt.Errorf("unknown combination_method %q: use sum or product", c.CombinationMethod)
	}
	return nil
}

// QueryFieldWeights renders FieldWeights as "abstract^1.5 title^3", sorted by
// field name. An empty map renders as "".
func (c BoostConfig) QueryFieldWeights() string {
	if len(c.FieldWeights) == 0 {
		return ""
	}
	fields := make([]string, 0, len(c.FieldWeights))
	for f := range c.FieldWeights {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + "^" + strconv.FormatFloat(c.FieldWeights[f], 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
