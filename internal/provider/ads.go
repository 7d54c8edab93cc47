// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
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

// adsAPIBase is the ADS search endpoint. Declared as a var so tests can
// substitute an httptest server.
var adsAPIBase = "https://api.adsabs.harvard.edu/v1/search/query"

// adsAbstractBase prefixes a bibcode to form the landing page URL.
const adsAbstractBase = "https://ui.adsabs.harvard.edu/abs/"

// adsFieldMap maps SearchResult fields to ADS field names.
var adsFieldMap = []struct{ field, ads string }{
	{"title", "title"},
	{"authors", "author"},
	{"abstract", "abstract"},
	{"doi", "doi"},
	{"year", "year"},
	{"citation_count", "citation_count"},
	{"doctype", "doctype"},
	{"properties", "property"},
}

// adsReducedFields is the field list used by the fallback strategy.
const adsReducedFields = "bibcode,title,doi,year"

// ADS queries the NASA Astrophysics Data System search API.
type ADS struct {
	Client    *http.Client
	Token     string
	UserAgent string
	BaseURL   string
	Limiter   *httputil.Limiter
}

// Name returns the provider identifier.
func (p *ADS) Name() string { return NameADS }

// Fetch runs the query with the requested field list.
func (p *ADS) Fetch(ctx context.Context, req Request) ([]types.SearchResult, error) {
	return p.search(ctx, req, adsFields(req.Fields))
}

// FetchSimplified requests only the bibcode, title, DOI and year.
func (p *ADS) FetchSimplified(ctx context.Context, req Request) ([]types.SearchResult, error) {
	return p.search(ctx, req, adsReducedFields)
}

func (p *ADS) search(ctx context.Context, req Request, fl string) ([]types.SearchResult, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return nil, Permanent(NameADS, errors.New("empty query"))
	}
	if p.Token == "" {
		return nil, Permanent(NameADS, errors.New("missing API token (ads-api-token)"))
	}

	params := url.Values{
		"q":    {q},
		"fl":   {fl},
		"rows": {strconv.Itoa(req.limit(2000))},
		"sort": {"score desc"},
	}
	if req.FieldWeights != "" {
		params.Set("qf", req.FieldWeights)
	}

	base := p.BaseURL
	if base == "" {
		base = adsAPIBase
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, Permanent(NameADS, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.Token)
	if p.UserAgent != "" {
		httpReq.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.Do(ctx, p.Client, httpReq, p.Limiter)
	if err != nil {
		return nil, fromHTTP(NameADS, err)
	}
	defer resp.Body.Close()

	var ar adsResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, Transient(NameADS, fmt.Errorf("parsing ADS response: %w", err))
	}

	results := make([]types.SearchResult, 0, len(ar.Response.Docs))
	for i, doc := range ar.Response.Docs {
		r := types.SearchResult{
			Title:      doc.Title.First(),
			Authors:    doc.Author.Values(),
			Abstract:   doc.Abstract,
			DOI:        types.NormalizeDOI(doc.DOI.First()),
			Source:     NameADS,
			Rank:       i + 1,
			DocType:    doc.DocType,
			Properties: doc.Property.Values(),
			Score:      positionScore(i, len(ar.Response.Docs)),
		}
		if doc.Bibcode != "" {
			r.URL = adsAbstractBase + doc.Bibcode + "/abstract"
		}
		if y, err := strconv.Atoi(strings.TrimSpace(doc.Year)); err == nil {
			r.Year = y
		}
		if doc.CitationCount != nil {
			r.CitationCount = types.IntPtr(*doc.CitationCount)
		}
		results = append(results, r)
	}
	return results, nil
}

// adsFields maps requested SearchResult fields to an ADS fl parameter. The
// bibcode is always requested because it forms the result URL.
func adsFields(fields []string) string {
	out := []string{"bibcode"}
	for _, m := range adsFieldMap {
		if wantsField(fields, m.field) {
			out = append(out, m.ads)
		}
	}
	return strings.Join(out, ",")
}

// ADS API JSON structures.
type adsResponse struct {
	Response struct {
		NumFound int      `json:"numFound"`
		Docs     []adsDoc `json:"docs"`
	} `json:"response"`
}

type adsDoc struct {
	Bibcode       string     `json:"bibcode"`
	Title         stringList `json:"title"`
	Author        stringList `json:"author"`
	Abstract      string     `json:"abstract"`
	DOI           stringList `json:"doi"`
	Year          string     `json:"year"`
	CitationCount *int       `json:"citation_count"`
	DocType       string     `json:"doctype"`
	Property      stringList `json:"property"`
}

// stringList decodes either a JSON string or an array of strings. ADS
// returns some fields in both shapes depending on the record.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = stringList{v}
		return nil
	}
	var vs []string
	if err := json.Unmarshal(data, &vs); err != nil {
		return err
	}
	*s = vs
	return nil
}

// First returns the first element or "".
func (s stringList) First() string {
	if len(s) == 0 {
		return ""
	}
	return strings.TrimSpace(s[0])
}

// Values returns the trimmed, non-empty elements.
func (s stringList) Values() []string {
	var out []string
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
