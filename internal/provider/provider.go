// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider defines the uniform contract every search source adapter
// satisfies and ships adapters for ADS, arXiv, Semantic Scholar and
// OpenAlex. Adapters own request construction and response parsing; callers
// only see ranked []types.SearchResult values and a three-way error kind.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/pdiddy/rankcompare/internal/httputil"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// Provider names.
const (
	NameADS             = "ads"
	NameArxiv           = "arxiv"
	NameSemanticScholar = "semantic_scholar"
	NameOpenAlex        = "openalex"
)

// Provider fetches one ranked result list from one search backend.
// Failures are reported as *Error values classified by Kind.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]types.SearchResult, error)
}

// Simplifier is implemented by providers that offer a cheaper fallback
// strategy, such as a simplified query or a reduced field list. The
// aggregator switches to it after the first failed attempt.
type Simplifier interface {
	FetchSimplified(ctx context.Context, req Request) ([]types.SearchResult, error)
}

// Request holds the parameters of one fetch.
type Request struct {
	Query string

	// Fields lists the SearchResult fields the caller needs (e.g. "title",
	// "abstract", "doi"). Adapters map them to their own field names and use
	// a default set when empty.
	Fields []string

	// Limit is the maximum number of results; zero means the adapter default.
	Limit int

	// FieldWeights is the canonical query-side weighting string
	// ("abstract^1.5 title^3"). Adapters that cannot weight fields ignore it.
	FieldWeights string
}

const defaultLimit = 20

func (r Request) limit(max int) int {
	n := r.Limit
	if n <= 0 {
		n = defaultLimit
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

// Credentials carries API keys loaded from the secrets directory.
type Credentials struct {
	ADSToken           string
	SemanticScholarKey string
	OpenAlexEmail      string
}

// Names returns the supported provider names in sorted order.
func Names() []string {
	names := []string{NameADS, NameArxiv, NameSemanticScholar, NameOpenAlex}
	sort.Strings(names)
	return names
}

// New builds the adapter registered under name.
func New(name string, cfg types.ProviderConfig, creds Credentials, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{}
	}
	limiter := httputil.NewLimiter(cfg.RequestsPerSecond)

	switch name {
	case NameADS:
		return &ADS{Client: client, Token: creds.ADSToken, UserAgent: cfg.UserAgent, BaseURL: cfg.BaseURL, Limiter: limiter}, nil
	case NameArxiv:
		return &Arxiv{Client: client, UserAgent: cfg.UserAgent, BaseURL: cfg.BaseURL, Limiter: limiter}, nil
	case NameSemanticScholar:
		return &SemanticScholar{Client: client, APIKey: creds.SemanticScholarKey, UserAgent: cfg.UserAgent, BaseURL: cfg.BaseURL, Limiter: limiter}, nil
	case NameOpenAlex:
		return &OpenAlex{Client: client, Email: creds.OpenAlexEmail, UserAgent: cfg.UserAgent, BaseURL: cfg.BaseURL, Limiter: limiter}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q (known: %v)", name, Names())
	}
}
