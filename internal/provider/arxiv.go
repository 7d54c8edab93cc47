// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/rankcompare/internal/httputil"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API. The API returns a fixed record shape, so
// the requested field list is ignored.
type Arxiv struct {
	Client    *http.Client
	UserAgent string
	BaseURL   string
	Limiter   *httputil.Limiter
}

// Name returns the provider identifier.
func (p *Arxiv) Name() string { return NameArxiv }

// Fetch runs the query as an all-fields conjunction of its words.
func (p *Arxiv) Fetch(ctx context.Context, req Request) ([]types.SearchResult, error) {
	return p.search(ctx, req, buildArxivQuery(req.Query))
}

// FetchSimplified strips operators and punctuation before querying.
func (p *Arxiv) FetchSimplified(ctx context.Context, req Request) ([]types.SearchResult, error) {
	return p.search(ctx, req, buildArxivQuery(SimplifyQuery(req.Query)))
}

func (p *Arxiv) search(ctx context.Context, req Request, q string) ([]types.SearchResult, error) {
	if q == "" {
		return nil, Permanent(NameArxiv, errors.New("empty query"))
	}

	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(req.limit(2000))},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	base := p.BaseURL
	if base == "" {
		base = arxivAPIBase
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, Permanent(NameArxiv, fmt.Errorf("creating request: %w", err))
	}
	if p.UserAgent != "" {
		httpReq.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.Do(ctx, p.Client, httpReq, p.Limiter)
	if err != nil {
		return nil, fromHTTP(NameArxiv, err)
	}
	defer resp.Body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, Transient(NameArxiv, fmt.Errorf("parsing arXiv response: %w", err))
	}

	results := make([]types.SearchResult, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if extractArxivID(entry.ID) == "" {
			continue
		}
		r := types.SearchResult{
			Title:      collapseSpace(entry.Title),
			Abstract:   collapseSpace(entry.Summary),
			DOI:        types.NormalizeDOI(entry.DOI),
			URL:        strings.TrimSpace(entry.ID),
			Source:     NameArxiv,
			DocType:    "eprint",
			Properties: []string{types.PropertyEprint, types.PropertyOpenAccess},
		}
		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				r.Authors = append(r.Authors, name)
			}
		}
		if t, parseErr := time.Parse(time.RFC3339, strings.TrimSpace(entry.Published)); parseErr == nil {
			r.Year = t.Year()
		}
		results = append(results, r)
	}
	for i := range results {
		results[i].Rank = i + 1
		results[i].Score = positionScore(i, len(results))
	}
	return results, nil
}

// buildArxivQuery turns free text into an arXiv search_query that matches
// every word in any field. Words already carrying an arXiv field prefix
// (e.g. "au:vaswani") and boolean operators are kept as-is.
func buildArxivQuery(q string) string {
	var parts []string
	for _, term := range strings.Fields(q) {
		switch {
		case booleanOperators[term]:
			continue
		case strings.Contains(term, ":"):
			parts = append(parts, term)
		default:
			parts = append(parts, "all:"+term)
		}
	}
	return strings.Join(parts, " AND ")
}

// collapseSpace joins the whitespace-separated words of s with single spaces;
// arXiv wraps titles and abstracts across lines.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	DOI       string        `xml:"http://arxiv.org/schemas/atom doi"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
