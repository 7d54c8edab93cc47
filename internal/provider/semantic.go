// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/rankcompare/internal/httputil"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

var semanticFieldMap = []struct{ field, api string }{
	{"title", "title"},
	{"authors", "authors"},
	{"abstract", "abstract"},
	{"doi", "externalIds"},
	{"year", "year"},
	{"url", "url"},
	{"citation_count", "citationCount"},
	{"doctype", "publicationTypes"},
	{"properties", "isOpenAccess"},
}

const semanticReducedFields = "title,externalIds,year"

// SemanticScholar queries the Semantic Scholar Graph API.
type SemanticScholar struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
	BaseURL   string
	Limiter   *httputil.Limiter
}

// Name returns the provider identifier.
func (p *SemanticScholar) Name() string { return NameSemanticScholar }

// Fetch runs the query with the requested field list.
func (p *SemanticScholar) Fetch(ctx context.Context, req Request) ([]types.SearchResult, error) {
	return p.search(ctx, req, semanticFields(req.Fields))
}

// FetchSimplified requests only title, external IDs and year.
func (p *SemanticScholar) FetchSimplified(ctx context.Context, req Request) ([]types.SearchResult, error) {
	return p.search(ctx, req, semanticReducedFields)
}

func (p *SemanticScholar) search(ctx context.Context, req Request, fields string) ([]types.SearchResult, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return nil, Permanent(NameSemanticScholar, errors.New("empty query"))
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(req.limit(100))},
		"fields": {fields},
	}

	base := p.BaseURL
	if base == "" {
		base = semanticAPIBase
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, Permanent(NameSemanticScholar, fmt.Errorf("creating request: %w", err))
	}
	if p.UserAgent != "" {
		httpReq.Header.Set("User-Agent", p.UserAgent)
	}
	if p.APIKey != "" {
		httpReq.Header.Set("x-api-key", p.APIKey)
	}

	resp, err := httputil.Do(ctx, p.Client, httpReq, p.Limiter)
	if err != nil {
		return nil, fromHTTP(NameSemanticScholar, err)
	}
	defer resp.Body.Close()

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, Transient(NameSemanticScholar, fmt.Errorf("parsing Semantic Scholar response: %w", err))
	}

	results := make([]types.SearchResult, 0, len(sr.Data))
	for i, paper := range sr.Data {
		r := types.SearchResult{
			Title:    strings.TrimSpace(paper.Title),
			Abstract: paper.Abstract,
			DOI:      types.NormalizeDOI(paper.ExternalIDs.DOI),
			Year:     paper.Year,
			URL:      paper.URL,
			Source:   NameSemanticScholar,
			Rank:     i + 1,
			Score:    positionScore(i, len(sr.Data)),
		}
		for _, a := range paper.Authors {
			if a.Name != "" {
				r.Authors = append(r.Authors, a.Name)
			}
		}
		if paper.CitationCount != nil {
			r.CitationCount = types.IntPtr(*paper.CitationCount)
		}
		if len(paper.PublicationTypes) > 0 {
			r.DocType = strings.ToLower(paper.PublicationTypes[0])
		}
		if paper.IsOpenAccess {
			r.Properties = append(r.Properties, types.PropertyOpenAccess)
		}
		if paper.ExternalIDs.ArXiv != "" {
			r.Properties = append(r.Properties, types.PropertyEprint)
		}
		results = append(results, r)
	}
	return results, nil
}

// semanticFields maps requested SearchResult fields to the API fields list.
func semanticFields(fields []string) string {
	var out []string
	for _, m := range semanticFieldMap {
		if wantsField(fields, m.field) {
			out = append(out, m.api)
		}
	}
	if len(out) == 0 {
		return semanticReducedFields
	}
	return strings.Join(out, ",")
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID          string              `json:"paperId"`
	Title            string              `json:"title"`
	Abstract         string              `json:"abstract"`
	Year             int                 `json:"year"`
	URL              string              `json:"url"`
	CitationCount    *int                `json:"citationCount"`
	PublicationTypes []string            `json:"publicationTypes"`
	IsOpenAccess     bool                `json:"isOpenAccess"`
	Authors          []semanticAuthor    `json:"authors"`
	ExternalIDs      semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
