// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders aggregation runs, comparisons and evaluations for
// the terminal (fixed-width tables), for tools (JSON) and for reference
// managers (CSL-YAML).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/rankcompare/internal/aggregate"
	"github.com/pdiddy/rankcompare/internal/evaluate"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// Output formats accepted by the CLI.
const (
	FormatNameTable = "table"
	FormatNameJSON  = "json"
	FormatNameCSL   = "csl"
)

// FormatRun writes every source's results as a table, followed by the
// sources that produced nothing and why.
func FormatRun(out aggregate.Output, w io.Writer) {
	fmt.Fprintf(w, "Query: %s\n", out.Query)
	if out.RunID != "" {
		fmt.Fprintf(w, "Run:   %s\n", out.RunID)
	}

	for _, name := range out.Sources() {
		fmt.Fprintln(w)
		cached := ""
		if slices.Contains(out.CacheHits, name) {
			cached = " (cached)"
		}
		fmt.Fprintf(w, "== %s%s ==\n", name, cached)
		FormatTable(out.Results[name], w)
	}

	if len(out.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Unavailable sources:")
		for _, f := range out.Failures {
			line := fmt.Sprintf("  %-18s %s", f.Source, f.Reason)
			if f.Attempts > 0 {
				line += fmt.Sprintf(" after %d attempt(s)", f.Attempts)
			}
			if f.Error != "" {
				line += ": " + f.Error
			}
			fmt.Fprintln(w, line)
		}
	}
	if out.Empty() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No results from any requested source.")
	}
}

// FormatTable writes one ranked list as a human-readable table. Boosted
// lists get a rank-change column and the boosted score.
func FormatTable(results []types.SearchResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	boosted := false
	for _, r := range results {
		if r.OriginalRank > 0 {
			boosted = true
			break
		}
	}

	if boosted {
		fmt.Fprintf(w, "%-4s  %-4s  %-56s  %-20s  %-4s  %-6s  %s\n",
			"Rank", "Move", "Title", "Authors", "Year", "Cites", "Boost")
	} else {
		fmt.Fprintf(w, "%-4s  %-56s  %-20s  %-4s  %-6s  %-2s  %s\n",
			"Rank", "Title", "Authors", "Year", "Cites", "OA", "DOI")
	}
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range results {
		title := truncate(r.Title, 56)
		authors := formatAuthors(r.Authors)
		year := ""
		if r.Year > 0 {
			year = strconv.Itoa(r.Year)
		}
		cites := ""
		if n, ok := r.Citations(); ok {
			cites = strconv.Itoa(n)
		}
		if boosted {
			fmt.Fprintf(w, "%-4d  %-4s  %-56s  %-20s  %-4s  %-6s  %.3f\n",
				r.Rank, formatMove(r.RankChange), title, authors, year, cites, r.BoostedScore)
		} else {
			fmt.Fprintf(w, "%-4d  %-56s  %-20s  %-4s  %-6s  %-2s  %s\n",
				r.Rank, title, authors, year, cites, openAccess(r), r.DOI)
		}
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
}

// openAccess marks results any source tagged as open access.
func openAccess(r types.SearchResult) string {
	if r.HasProperty(types.PropertyOpenAccess) {
		return "y"
	}
	return ""
}

// FormatComparisons writes one block per source pair.
func FormatComparisons(results []types.ComparisonResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "Nothing to compare: at least two sources with results are needed.")
		return
	}
	for i, c := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s vs %s\n", c.SourceA, c.SourceB)
		fmt.Fprintf(w, "  overlap      %d (doi %d, title %d)\n", c.Overlap.Total, c.Overlap.ByDOI, c.Overlap.ByTitle)
		fmt.Fprintf(w, "  same rank    %d\n", c.Overlap.SameRank)
		fmt.Fprintf(w, "  unique       %s %d, %s %d\n", c.SourceA, c.Overlap.UniqueToA, c.SourceB, c.Overlap.UniqueToB)
		for _, name := range sortedKeys(c.Metrics) {
			label := name
			if name == types.MetricRBO && c.RBOFallback {
				label += " (jaccard fallback)"
			}
			fmt.Fprintf(w, "  %-28s %.4f\n", label, c.Metrics[name])
		}
	}
}

// FormatEvaluation writes one source's evaluation.
func FormatEvaluation(source string, res types.EvaluationResult, w io.Writer) {
	fmt.Fprintf(w, "%s: ", source)
	switch res.Status {
	case types.EvaluationNoMatchingQuery:
		fmt.Fprintf(w, "no judged query matches %q\n", res.Query)
		if len(res.AvailableQueries) > 0 {
			fmt.Fprintf(w, "  judged queries: %s\n", strings.Join(res.AvailableQueries, "; "))
		}
		return
	case types.EvaluationNoJudgments:
		fmt.Fprintln(w, "no judgments for this query")
		return
	}

	if res.MatchedQuery != "" && evaluate.NormalizeQuery(res.MatchedQuery) != evaluate.NormalizeQuery(res.Query) {
		fmt.Fprintf(w, "matched judged query %q\n", res.MatchedQuery)
	} else {
		fmt.Fprintln(w)
	}
	for _, k := range evaluate.Cutoffs {
		fmt.Fprintf(w, "  @%-3d ndcg %.4f  precision %.4f\n", k,
			res.Metrics[fmt.Sprintf("ndcg@%d", k)], res.Metrics[fmt.Sprintf("p@%d", k)])
	}
	fmt.Fprintf(w, "  recall %.4f (%d of %d relevant; %d of %d judged retrieved)\n",
		res.Recall, res.RelevantRetrieved, res.TotalRelevant, res.JudgedRetrieved, res.TotalJudged)
}

// FormatJSON writes v as indented JSON to w.
func FormatJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RunDocument is the JSON shape of an aggregation run.
type RunDocument struct {
	RunID     string                          `json:"run_id"`
	Query     string                          `json:"query"`
	Results   map[string][]types.SearchResult `json:"results"`
	Failures  []aggregate.Failure             `json:"failures,omitempty"`
	CacheHits []string                        `json:"cache_hits,omitempty"`
}

// NewRunDocument converts out for JSON output.
func NewRunDocument(out aggregate.Output) RunDocument {
	results := out.Results
	if results == nil {
		results = map[string][]types.SearchResult{}
	}
	return RunDocument{
		RunID:     out.RunID,
		Query:     out.Query,
		Results:   results,
		Failures:  out.Failures,
		CacheHits: out.CacheHits,
	}
}

func formatMove(change int) string {
	switch {
	case change > 0:
		return "+" + strconv.Itoa(change)
	case change < 0:
		return strconv.Itoa(change)
	default:
		return "="
	}
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
