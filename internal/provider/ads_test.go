// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adsFixture = `{
  "responseHeader": {"status": 0},
  "response": {
    "numFound": 2,
    "docs": [
      {
        "bibcode": "2019Natur.568..193T",
        "title": ["A trapped Triton"],
        "author": ["Smith, J.", "Doe, A."],
        "abstract": "We report...",
        "doi": ["10.1038/S41586-019-1080-Z"],
        "year": "2019",
        "citation_count": 42,
        "doctype": "article",
        "property": ["REFEREED", "ARTICLE"]
      },
      {
        "bibcode": "2020arXiv200101234X",
        "title": "Single string title",
        "year": "2020"
      }
    ]
  }
}`

func withADSServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := adsAPIBase
	adsAPIBase = ts.URL
	t.Cleanup(func() { adsAPIBase = old })
	return ts
}

func TestADSFetch(t *testing.T) {
	var captured *http.Request
	ts := withADSServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, adsFixture)
	})

	p := &ADS{Client: ts.Client(), Token: "tok", UserAgent: "rankcompare-test"}
	results, err := p.Fetch(context.Background(), Request{
		Query:        "triton",
		Fields:       []string{"title", "doi", "citation_count"},
		Limit:        10,
		FieldWeights: "abstract^1.5 title^3",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	q := captured.URL.Query()
	assert.Equal(t, "triton", q.Get("q"))
	assert.Equal(t, "bibcode,title,doi,citation_count", q.Get("fl"))
	assert.Equal(t, "10", q.Get("rows"))
	assert.Equal(t, "abstract^1.5 title^3", q.Get("qf"))
	assert.Equal(t, "Bearer tok", captured.Header.Get("Authorization"))
	assert.Equal(t, "rankcompare-test", captured.Header.Get("User-Agent"))

	first := results[0]
	assert.Equal(t, "A trapped Triton", first.Title)
	assert.Equal(t, []string{"Smith, J.", "Doe, A."}, first.Authors)
	assert.Equal(t, "10.1038/s41586-019-1080-z", first.DOI)
	assert.Equal(t, 2019, first.Year)
	assert.Equal(t, "https://ui.adsabs.harvard.edu/abs/2019Natur.568..193T/abstract", first.URL)
	assert.Equal(t, NameADS, first.Source)
	assert.Equal(t, 1, first.Rank)
	n, ok := first.Citations()
	assert.True(t, ok)
	assert.Equal(t, 42, n)
	assert.True(t, first.HasProperty("refereed"))

	second := results[1]
	assert.Equal(t, "Single string title", second.Title)
	assert.Equal(t, 2, second.Rank)
	_, ok = second.Citations()
	assert.False(t, ok)
}

func TestADSFetchSimplifiedUsesReducedFields(t *testing.T) {
	var fl string
	ts := withADSServer(t, func(w http.ResponseWriter, r *http.Request) {
		fl = r.URL.Query().Get("fl")
		fmt.Fprint(w, `{"response":{"docs":[]}}`)
	})

	p := &ADS{Client: ts.Client(), Token: "tok"}
	_, err := p.FetchSimplified(context.Background(), Request{Query: "triton"})
	require.NoError(t, err)
	assert.Equal(t, adsReducedFields, fl)
}

func TestADSFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header string
		want   Kind
	}{
		{"server error", http.StatusBadGateway, "", KindTransient},
		{"rate limited", http.StatusTooManyRequests, "5", KindTransient},
		{"blocked", http.StatusForbidden, "", KindBlocked},
		{"bad query", http.StatusBadRequest, "", KindPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withADSServer(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(tt.status)
			})
			p := &ADS{Client: ts.Client(), Token: "tok"}
			_, err := p.Fetch(context.Background(), Request{Query: "triton"})
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestADSFetchMalformedBodyIsTransient(t *testing.T) {
	ts := withADSServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":`)
	})
	p := &ADS{Client: ts.Client(), Token: "tok"}
	_, err := p.Fetch(context.Background(), Request{Query: "triton"})
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestADSFetchPermanentWithoutTokenOrQuery(t *testing.T) {
	p := &ADS{Client: http.DefaultClient}
	_, err := p.Fetch(context.Background(), Request{Query: "triton"})
	assert.Equal(t, KindPermanent, KindOf(err))

	p.Token = "tok"
	_, err = p.Fetch(context.Background(), Request{Query: "  "})
	assert.Equal(t, KindPermanent, KindOf(err))
}

func TestADSBaseURLOverride(t *testing.T) {
	hit := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		fmt.Fprint(w, `{"response":{"docs":[]}}`)
	}))
	defer ts.Close()

	p := &ADS{Client: ts.Client(), Token: "tok", BaseURL: ts.URL}
	results, err := p.Fetch(context.Background(), Request{Query: "triton"})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.True(t, hit)
}
