// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package boost re-ranks one source's result list under a configurable
// scoring model of citation, recency and document-type contributions.
//
// Contributions are additive by default:
//
//	citation = citation_boost × ln(1 + citations)   when citations ≥ min_citations
//	recency  = recency_boost / (1 + max(0, reference_year − year))
//	doctype  = doctype_boosts[doctype]
//
// With combination_method "product" the final score is Π(1 + cᵢ) − 1 over
// the non-zero contributions.
package boost

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/rankcompare/pkg/types"
)

// Apply returns a re-ranked copy of results. The input slice is not
// modified. When no result receives a non-zero score the order is kept and
// every rank_change is zero.
func Apply(results []types.SearchResult, cfg types.BoostConfig) []types.SearchResult {
	return ApplyAt(results, cfg, time.Now())
}

// ApplyAt is Apply with an explicit clock for the default reference year.
func ApplyAt(results []types.SearchResult, cfg types.BoostConfig, now time.Time) []types.SearchResult {
	refYear := cfg.ReferenceYear
	if refYear == 0 {
		refYear = now.Year()
	}
	docTypes := make(map[string]float64, len(cfg.DocTypeBoosts))
	for k, v := range cfg.DocTypeBoosts {
		docTypes[strings.ToLower(strings.TrimSpace(k))] = v
	}

	out := make([]types.SearchResult, len(results))
	anyBoosted := false
	for i, r := range results {
		r = r.Clone()
		if r.OriginalRank == 0 {
			r.OriginalRank = r.Rank
			r.OriginalScore = r.Score
		}

		factors := contributions(r, cfg, refYear, docTypes)
		r.BoostFactors = nil
		if len(factors) > 0 {
			r.BoostFactors = factors
		}
		r.BoostedScore = combine(factors, cfg.CombinationMethod)
		if r.BoostedScore != 0 {
			anyBoosted = true
		}
		out[i] = r
	}

	if anyBoosted {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].BoostedScore != out[j].BoostedScore {
				return out[i].BoostedScore > out[j].BoostedScore
			}
			return out[i].OriginalRank < out[j].OriginalRank
		})
	}

	for i := range out {
		out[i].Rank = i + 1
		out[i].RankChange = out[i].OriginalRank - out[i].Rank
	}
	return out
}

// contributions returns the non-zero boost contributions for r.
func contributions(r types.SearchResult, cfg types.BoostConfig, refYear int, docTypes map[string]float64) map[string]float64 {
	factors := make(map[string]float64, 3)

	if n, ok := r.Citations(); ok && cfg.CitationBoost != 0 && n >= cfg.MinCitations && n >= 0 {
		if c := cfg.CitationBoost * math.Log1p(float64(n)); c != 0 {
			factors[types.FactorCitation] = c
		}
	}

	if r.Year > 0 && cfg.RecencyBoost != 0 {
		age := refYear - r.Year
		if age < 0 {
			age = 0
		}
		factors[types.FactorRecency] = cfg.RecencyBoost / float64(1+age)
	}

	if r.DocType != "" {
		if w, ok := docTypes[strings.ToLower(strings.TrimSpace(r.DocType))]; ok && w != 0 {
			factors[types.FactorDocType] = w
		}
	}
	return factors
}

func combine(factors map[string]float64, method types.CombinationMethod) float64 {
	if len(factors) == 0 {
		return 0
	}
	// Fixed order keeps floating-point results reproducible.
	names := []string{types.FactorCitation, types.FactorRecency, types.FactorDocType}

	if method == types.CombineProduct {
		p := 1.0
		for _, name := range names {
			if c, ok := factors[name]; ok {
				p *= 1 + c
			}
		}
		return p - 1
	}

	var sum float64
	for _, name := range names {
		sum += factors[name]
	}
	return sum
}
