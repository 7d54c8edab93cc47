// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/pdiddy/rankcompare/internal/textnorm"
)

// FuzzyThreshold is the minimum similarity for a fuzzy query match.
const FuzzyThreshold = 0.8

// NormalizeQuery lowercases a query and collapses its whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// ResolveQuery picks the judged query that best matches query. It tries, in
// order: an exact normalized match; a judged query whose word set contains
// or is contained in the query's, preferring the largest shared word set;
// and the most similar judged query by edit distance at or above
// FuzzyThreshold. The boolean is false when nothing qualifies.
func ResolveQuery(query string, available []string) (string, bool) {
	keys := append([]string(nil), available...)
	sort.Strings(keys)

	norm := NormalizeQuery(query)
	if norm == "" {
		return "", false
	}
	for _, k := range keys {
		if NormalizeQuery(k) == norm {
			return k, true
		}
	}

	qWords := textnorm.WordSet(norm)
	best, bestShared := "", 0
	for _, k := range keys {
		kWords := textnorm.WordSet(k)
		shared := sharedCount(qWords, kWords)
		if shared == 0 {
			continue
		}
		if (shared == len(qWords) || shared == len(kWords)) && shared > bestShared {
			best, bestShared = k, shared
		}
	}
	if bestShared > 0 {
		return best, true
	}

	best, bestSim := "", 0.0
	for _, k := range keys {
		if sim := Similarity(norm, NormalizeQuery(k)); sim >= FuzzyThreshold && sim > bestSim {
			best, bestSim = k, sim
		}
	}
	return best, best != ""
}

// Similarity is 1 − levenshtein(a, b) / max(len(a), len(b)) in runes. Two
// empty strings are identical.
func Similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func sharedCount(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}
