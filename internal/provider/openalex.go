// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/rankcompare/internal/httputil"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex Works API.
type OpenAlex struct {
	Client *http.Client
	// Email is sent as mailto parameter for polite pool access.
	Email     string
	UserAgent string
	BaseURL   string
	Limiter   *httputil.Limiter
}

// Name returns the provider identifier.
func (p *OpenAlex) Name() string { return NameOpenAlex }

// Fetch runs the query as a full-text search.
func (p *OpenAlex) Fetch(ctx context.Context, req Request) ([]types.SearchResult, error) {
	return p.search(ctx, req, strings.TrimSpace(req.Query))
}

// FetchSimplified strips operators and punctuation before querying.
func (p *OpenAlex) FetchSimplified(ctx context.Context, req Request) ([]types.SearchResult, error) {
	return p.search(ctx, req, SimplifyQuery(req.Query))
}

func (p *OpenAlex) search(ctx context.Context, req Request, searchText string) ([]types.SearchResult, error) {
	if searchText == "" {
		return nil, Permanent(NameOpenAlex, errors.New("empty query"))
	}

	params := url.Values{
		"search":   {searchText},
		"per_page": {strconv.Itoa(req.limit(200))},
		"page":     {"1"},
	}
	if p.Email != "" {
		params.Set("mailto", p.Email)
	}

	base := p.BaseURL
	if base == "" {
		base = openAlexSearchBase
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, Permanent(NameOpenAlex, fmt.Errorf("creating request: %w", err))
	}
	if p.UserAgent != "" {
		httpReq.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.Do(ctx, p.Client, httpReq, p.Limiter)
	if err != nil {
		return nil, fromHTTP(NameOpenAlex, err)
	}
	defer resp.Body.Close()

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, Transient(NameOpenAlex, fmt.Errorf("parsing OpenAlex response: %w", err))
	}

	results := make([]types.SearchResult, 0, len(oar.Results))
	for i, work := range oar.Results {
		r := types.SearchResult{
			Title:   strings.TrimSpace(work.Title),
			DOI:     types.NormalizeDOI(work.DOI),
			Year:    work.PublicationYear,
			URL:     work.ID,
			Source:  NameOpenAlex,
			Rank:    i + 1,
			DocType: work.Type,
			Score:   positionScore(i, len(oar.Results)),
		}
		if wantsField(req.Fields, "abstract") {
			r.Abstract = reconstructAbstract(work.AbstractInvertedIndex)
		}
		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				r.Authors = append(r.Authors, authorship.Author.DisplayName)
			}
		}
		if work.CitedByCount != nil {
			r.CitationCount = types.IntPtr(*work.CitedByCount)
		}
		if work.OpenAccess.IsOA {
			r.Properties = append(r.Properties, types.PropertyOpenAccess)
		}
		results = append(results, r)
	}
	return results, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	Type                  string               `json:"type"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          *int                 `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}
