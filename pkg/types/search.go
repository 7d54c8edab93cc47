// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for rankcompare: ranked
// search results, boost configuration, relevance judgments, and the
// comparison and evaluation reports derived from them.
package types

import "strings"

// SearchResult is one ranked hit from one source. Providers normalize their
// wire formats into this shape; the aggregation, boosting, comparison and
// evaluation stages never see provider-specific structures.
type SearchResult struct {
	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract, empty when the source omits it.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// DOI is the lowercased, trimmed DOI without any resolver prefix.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Year is the publication year; zero means unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// URL points to the result's landing page at the source.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Source identifies the provider that returned this result (e.g. "ads").
	Source string `json:"source" yaml:"source"`

	// Rank is the 1-based position within the source's result list.
	Rank int `json:"rank" yaml:"rank"`

	// CitationCount is nil when the source does not report citations.
	CitationCount *int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// DocType is the source's document type label (e.g. "article", "eprint").
	DocType string `json:"doctype,omitempty" yaml:"doctype,omitempty"`

	// Properties holds source property tags (e.g. "REFEREED", "OPENACCESS").
	Properties []string `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Score is the provider's own relevance score, when it reports one.
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`

	// The fields below are set only by the boost engine.

	// OriginalRank is the rank before the first boost was applied.
	OriginalRank int `json:"original_rank,omitempty" yaml:"original_rank,omitempty"`

	// RankChange is OriginalRank - Rank; positive means the result moved up.
	RankChange int `json:"rank_change,omitempty" yaml:"rank_change,omitempty"`

	// OriginalScore is Score as it was before boosting.
	OriginalScore float64 `json:"original_score,omitempty" yaml:"original_score,omitempty"`

	// BoostedScore is the combined boost score used for re-ranking.
	BoostedScore float64 `json:"boosted_score,omitempty" yaml:"boosted_score,omitempty"`

	// BoostFactors maps boost kind to its non-zero contribution.
	BoostFactors map[string]float64 `json:"boost_factors,omitempty" yaml:"boost_factors,omitempty"`
}

// Citations returns the citation count and whether the source reported one.
func (r SearchResult) Citations() (int, bool) {
	if r.CitationCount == nil {
		return 0, false
	}
	return *r.CitationCount, true
}

// Property tags shared across sources.
const (
	PropertyOpenAccess = "OPENACCESS"
	PropertyEprint     = "EPRINT"
)

// HasProperty reports whether the result carries the given property tag,
// compared case-insensitively.
func (r SearchResult) HasProperty(tag string) bool {
	for _, p := range r.Properties {
		if strings.EqualFold(p, tag) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can re-rank without aliasing the
// caller's slices and maps.
func (r SearchResult) Clone() SearchResult {
	out := r
	if r.Authors != nil {
		out.Authors = append([]string(nil), r.Authors...)
	}
	if r.Properties != nil {
		out.Properties = append([]string(nil), r.Properties...)
	}
	if r.CitationCount != nil {
		n := *r.CitationCount
		out.CitationCount = &n
	}
	if r.BoostFactors != nil {
		out.BoostFactors = make(map[string]float64, len(r.BoostFactors))
		for k, v := range r.BoostFactors {
			out.BoostFactors[k] = v
		}
	}
	return out
}

// NormalizeDOI lowercases and trims a DOI and strips resolver prefixes so
// "https://doi.org/10.1/ABC" and "10.1/abc" compare equal.
func NormalizeDOI(doi string) string {
	d := strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		d = strings.TrimPrefix(d, prefix)
	}
	return strings.TrimSpace(d)
}

// Renumber assigns contiguous 1-based ranks in slice order.
func Renumber(results []SearchResult) {
	for i := range results {
		results[i].Rank = i + 1
	}
}

// IntPtr returns a pointer to n. Providers use it to fill CitationCount.
func IntPtr(n int) *int { return &n }
