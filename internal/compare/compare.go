// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compare measures agreement between two sources' ranked result
// lists: identifier overlap, same-rank matches, Jaccard similarity, rank
// biased overlap and term-frequency cosine similarity. Every function is
// pure and defined on empty input.
package compare

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/rankcompare/internal/textnorm"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// DefaultPersistence is the RBO persistence parameter p.
const DefaultPersistence = 0.98

// DefaultCosineFields are compared when Options.Fields is empty.
var DefaultCosineFields = []string{"title", "abstract"}

// Options selects what Compare computes.
type Options struct {
	// Metrics lists metric names (types.MetricJaccard, MetricRBO,
	// MetricCosine). Empty means all three.
	Metrics []string

	// Fields lists result fields for per-field Jaccard and cosine. Empty
	// means cosine over DefaultCosineFields and no per-field Jaccard.
	Fields []string

	// Persistence is the RBO p parameter; zero means DefaultPersistence.
	Persistence float64
}

func (o Options) wants(metric string) bool {
	if len(o.Metrics) == 0 {
		return true
	}
	for _, m := range o.Metrics {
		if strings.EqualFold(strings.TrimSpace(m), metric) {
			return true
		}
	}
	return false
}

// Identifier returns "doi:<doi>" when the result has a DOI and
// "title:<normalized title>" otherwise. A result with neither has no
// identifier and returns "".
func Identifier(r types.SearchResult) string {
	if doi := types.NormalizeDOI(r.DOI); doi != "" {
		return "doi:" + doi
	}
	if title := strings.ToLower(strings.TrimSpace(r.Title)); title != "" {
		return "title:" + title
	}
	return ""
}

// RankedIdentifiers returns the identifiers of results in list order with
// repeats and unidentifiable results removed, keeping the first occurrence.
func RankedIdentifiers(results []types.SearchResult) []string {
	seen := make(map[string]bool, len(results))
	ids := make([]string, 0, len(results))
	for _, r := range results {
		id := Identifier(r)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// rankMap maps identifier to the rank of its first occurrence. Results
// without an identifier never match and are left out.
func rankMap(results []types.SearchResult) map[string]int {
	m := make(map[string]int, len(results))
	for i, r := range results {
		id := Identifier(r)
		if id == "" {
			continue
		}
		if _, ok := m[id]; ok {
			continue
		}
		rank := r.Rank
		if rank <= 0 {
			rank = i + 1
		}
		m[id] = rank
	}
	return m
}

// ComputeOverlap counts results shared by a and b. Results with a DOI match
// only by DOI; title matches are counted only between results lacking a DOI
// on both sides.
func ComputeOverlap(a, b []types.SearchResult) types.Overlap {
	ra, rb := rankMap(a), rankMap(b)

	var ov types.Overlap
	for id, rankA := range ra {
		rankB, ok := rb[id]
		if !ok {
			continue
		}
		if strings.HasPrefix(id, "doi:") {
			ov.ByDOI++
		} else {
			ov.ByTitle++
		}
		if rankA == rankB {
			ov.SameRank++
		}
	}
	ov.Total = ov.ByDOI + ov.ByTitle
	ov.UniqueToA = len(a) - ov.Total
	ov.UniqueToB = len(b) - ov.Total
	return ov
}

// Compare computes the selected metrics between two named result lists.
func Compare(nameA string, a []types.SearchResult, nameB string, b []types.SearchResult, opts Options) types.ComparisonResult {
	res := types.ComparisonResult{
		SourceA: nameA,
		SourceB: nameB,
		Overlap: ComputeOverlap(a, b),
		Metrics: make(map[string]float64),
	}

	idsA, idsB := RankedIdentifiers(a), RankedIdentifiers(b)

	if opts.wants(types.MetricJaccard) {
		res.Metrics[types.MetricJaccard] = Jaccard(idsA, idsB)
		for _, f := range opts.Fields {
			res.Metrics[types.MetricJaccard+":"+f] = FieldJaccard(a, b, f)
		}
	}

	if opts.wants(types.MetricRBO) {
		p := opts.Persistence
		if p == 0 {
			p = DefaultPersistence
		}
		score, err := RBO(idsA, idsB, p)
		if err != nil {
			score = Jaccard(idsA, idsB)
			res.RBOFallback = true
		}
		res.Metrics[types.MetricRBO] = score
	}

	if opts.wants(types.MetricCosine) {
		fields := opts.Fields
		if len(fields) == 0 {
			fields = DefaultCosineFields
		}
		for _, f := range fields {
			if !isTextField(f) {
				continue
			}
			res.Metrics[types.MetricCosine+":"+f] = Cosine(fieldTerms(a, f), fieldTerms(b, f))
		}
	}
	return res
}

// All compares every unordered pair of sources in sets, in sorted source
// order.
func All(sets map[string][]types.SearchResult, opts Options) []types.ComparisonResult {
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []types.ComparisonResult
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			out = append(out, Compare(names[i], sets[names[i]], names[j], sets[names[j]], opts))
		}
	}
	return out
}

// Jaccard is |A ∩ B| / |A ∪ B| over the distinct values of a and b. Two
// empty sets score 1; exactly one empty set scores 0.
func Jaccard(a, b []string) float64 {
	setA, setB := toSet(a), toSet(b)
	switch {
	case len(setA) == 0 && len(setB) == 0:
		return 1
	case len(setA) == 0 || len(setB) == 0:
		return 0
	}
	inter := 0
	for v := range setA {
		if setB[v] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// FieldJaccard is Jaccard over the raw values of one field.
func FieldJaccard(a, b []types.SearchResult, field string) float64 {
	return Jaccard(fieldValues(a, field), fieldValues(b, field))
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// fieldValues returns the normalized non-empty values of field.
func fieldValues(results []types.SearchResult, field string) []string {
	var out []string
	for _, r := range results {
		var v string
		switch strings.ToLower(field) {
		case "title":
			v = textnorm.NormalizeTitle(r.Title)
		case "abstract":
			v = textnorm.NormalizeTitle(r.Abstract)
		case "doi":
			v = types.NormalizeDOI(r.DOI)
		case "url":
			v = strings.TrimSpace(r.URL)
		case "year":
			if r.Year > 0 {
				v = strconv.Itoa(r.Year)
			}
		case "doctype":
			v = strings.ToLower(strings.TrimSpace(r.DocType))
		case "authors":
			for _, a := range r.Authors {
				if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
					out = append(out, a)
				}
			}
			continue
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isTextField(field string) bool {
	switch strings.ToLower(field) {
	case "title", "abstract", "authors":
		return true
	}
	return false
}

func fieldTerms(results []types.SearchResult, field string) map[string]int {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		switch strings.ToLower(field) {
		case "title":
			texts = append(texts, r.Title)
		case "abstract":
			texts = append(texts, r.Abstract)
		case "authors":
			texts = append(texts, strings.Join(r.Authors, " "))
		}
	}
	return textnorm.TermFrequencies(texts...)
}
