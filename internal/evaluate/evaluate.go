// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate scores a ranked result list against relevance judgments
// with nDCG@k, precision@k and recall.
package evaluate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/rankcompare/internal/textnorm"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// Cutoffs are the k values reported for nDCG and precision.
var Cutoffs = []int{5, 10, 20}

// Evaluate resolves query against the judged queries in judged and scores
// results against the matching judgments. Unresolvable queries and empty
// judgment lists are reported through the result status.
func Evaluate(query string, results []types.SearchResult, judged map[string][]types.Judgment) types.EvaluationResult {
	available := make([]string, 0, len(judged))
	for q := range judged {
		available = append(available, q)
	}
	sort.Strings(available)

	matched, ok := ResolveQuery(query, available)
	if !ok {
		return types.EvaluationResult{
			Status:           types.EvaluationNoMatchingQuery,
			Query:            query,
			AvailableQueries: available,
		}
	}

	res := Score(results, judged[matched])
	res.Query = query
	res.MatchedQuery = matched
	return res
}

// Score computes metrics for results against one judgment list.
func Score(results []types.SearchResult, judgments []types.Judgment) types.EvaluationResult {
	if len(judgments) == 0 {
		return types.EvaluationResult{Status: types.EvaluationNoJudgments}
	}

	m := newMatcher(judgments)
	ratings := make([]int, len(results))
	judgedSeen := make(map[int]bool)
	for i, r := range results {
		idx, ok := m.match(r)
		if !ok {
			continue
		}
		ratings[i] = judgments[idx].Rating
		judgedSeen[idx] = true
	}

	ideal := make([]int, len(judgments))
	totalRelevant := 0
	for i, j := range judgments {
		ideal[i] = j.Rating
		if j.Rating > 0 {
			totalRelevant++
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ideal)))

	relevantRetrieved := 0
	for idx := range judgedSeen {
		if judgments[idx].Rating > 0 {
			relevantRetrieved++
		}
	}

	res := types.EvaluationResult{
		Status:            types.EvaluationOK,
		Metrics:           make(map[string]float64, 2*len(Cutoffs)),
		JudgedRetrieved:   len(judgedSeen),
		RelevantRetrieved: relevantRetrieved,
		TotalJudged:       len(judgments),
		TotalRelevant:     totalRelevant,
	}
	for _, k := range Cutoffs {
		res.Metrics[fmt.Sprintf("ndcg@%d", k)] = NDCG(ratings, ideal, k)
		res.Metrics[fmt.Sprintf("p@%d", k)] = PrecisionAt(ratings, k)
	}
	if totalRelevant > 0 {
		res.Recall = float64(relevantRetrieved) / float64(totalRelevant)
	}
	return res
}

// DCG is Σ (2^rating − 1) / log2(i + 2) over the first k ratings. Negative
// ratings contribute no gain.
func DCG(ratings []int, k int) float64 {
	var dcg float64
	for i := 0; i < k && i < len(ratings); i++ {
		rating := ratings[i]
		if rating <= 0 {
			continue
		}
		dcg += (math.Pow(2, float64(rating)) - 1) / math.Log2(float64(i+2))
	}
	return dcg
}

// NDCG is DCG@k of ratings over DCG@k of ideal, which must be sorted
// descending. It is 0 when the ideal DCG is 0.
func NDCG(ratings, ideal []int, k int) float64 {
	idcg := DCG(ideal, k)
	if idcg == 0 {
		return 0
	}
	return DCG(ratings, k) / idcg
}

// PrecisionAt is the share of the first k positions holding a rating above
// zero. The denominator is always k.
func PrecisionAt(ratings []int, k int) float64 {
	if k <= 0 {
		return 0
	}
	hits := 0
	for i := 0; i < k && i < len(ratings); i++ {
		if ratings[i] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// DocID extracts the compact document identifier from a result URL: the
// digits of the bibliographic code between "abs/" and "/abstract". It
// returns "" when the URL has no such segment.
func DocID(url string) string {
	start := strings.Index(url, "abs/")
	if start < 0 {
		return ""
	}
	rest := url[start+len("abs/"):]
	end := strings.Index(rest, "/abstract")
	if end < 0 {
		return ""
	}
	return digits(rest[:end])
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// matcher looks up judgments by compact identifier, then by title.
type matcher struct {
	byID    map[string]int
	byTitle map[string]int
}

func newMatcher(judgments []types.Judgment) matcher {
	m := matcher{byID: make(map[string]int), byTitle: make(map[string]int)}
	for i, j := range judgments {
		if id := compactID(j.DocID); id != "" {
			if _, dup := m.byID[id]; !dup {
				m.byID[id] = i
			}
		}
		if t := textnorm.NormalizeTitle(j.Title); t != "" {
			if _, dup := m.byTitle[t]; !dup {
				m.byTitle[t] = i
			}
		}
	}
	return m
}

func (m matcher) match(r types.SearchResult) (int, bool) {
	if id := DocID(r.URL); id != "" {
		if idx, ok := m.byID[id]; ok {
			return idx, true
		}
	}
	if t := textnorm.NormalizeTitle(r.Title); t != "" {
		if idx, ok := m.byTitle[t]; ok {
			return idx, true
		}
	}
	return 0, false
}

// compactID reduces a judged document identifier to the form DocID
// produces. Bibcodes and abstract URLs are accepted as well as bare digits.
func compactID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if fromURL := DocID(id); fromURL != "" {
		return fromURL
	}
	return digits(id)
}
