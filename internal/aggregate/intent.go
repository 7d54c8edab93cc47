// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/rankcompare/internal/cache"
	"github.com/pdiddy/rankcompare/internal/httputil"
)

// DefaultMinConfidence is the interpretation confidence required before a
// rewritten query replaces the original.
const DefaultMinConfidence = 0.5

// Interpretation is the output of a query-intent service.
type Interpretation struct {
	Query      string  `json:"transformed_query"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Interpreter rewrites a free-text query before aggregation.
type Interpreter interface {
	Interpret(ctx context.Context, query string) (Interpretation, error)
}

// Preprocessor applies an Interpreter to queries, memoizing
// interpretations in a bounded in-memory cache.
type Preprocessor struct {
	interp        Interpreter
	memo          *cache.MemoryLRU[Interpretation]
	minConfidence float64
	log           logrus.FieldLogger
}

// NewPreprocessor wraps interp. memo may be nil to disable memoization; a
// non-positive minConfidence uses DefaultMinConfidence.
func NewPreprocessor(interp Interpreter, memo *cache.MemoryLRU[Interpretation], minConfidence float64, log logrus.FieldLogger) *Preprocessor {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Preprocessor{interp: interp, memo: memo, minConfidence: minConfidence, log: log}
}

// PrepareQuery returns the query to aggregate. The rewritten query is used
// only when the interpretation is confident enough and non-empty; any
// interpreter failure falls back to the original query.
func (p *Preprocessor) PrepareQuery(ctx context.Context, query string) (string, Interpretation) {
	if p == nil || p.interp == nil {
		return query, Interpretation{}
	}

	key := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	interp, ok := Interpretation{}, false
	if p.memo != nil {
		interp, ok = p.memo.Get(key)
	}
	if !ok {
		var err error
		interp, err = p.interp.Interpret(ctx, query)
		if err != nil {
			p.log.WithField("query", query).WithError(err).Warn("query interpretation failed; using original query")
			return query, Interpretation{}
		}
		if p.memo != nil {
			p.memo.Put(key, interp)
		}
	}

	rewritten := strings.TrimSpace(interp.Query)
	if rewritten == "" || interp.Confidence < p.minConfidence {
		p.log.WithFields(logrus.Fields{"query": query, "confidence": interp.Confidence}).Debug("interpretation not applied")
		return query, interp
	}
	p.log.WithFields(logrus.Fields{"query": query, "rewritten": rewritten, "intent": interp.Intent}).Info("query rewritten")
	return rewritten, interp
}

// HTTPInterpreter calls a query-intent service that accepts
// {"query": "..."} and answers with an Interpretation document.
type HTTPInterpreter struct {
	Client    *http.Client
	URL       string
	UserAgent string
}

// Interpret posts query to the service.
func (h *HTTPInterpreter) Interpret(ctx context.Context, query string) (Interpretation, error) {
	if h.URL == "" {
		return Interpretation{}, errors.New("intent service URL not configured")
	}
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return Interpretation{}, fmt.Errorf("encoding intent request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return Interpretation{}, fmt.Errorf("creating intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.Do(ctx, client, req, nil)
	if err != nil {
		return Interpretation{}, fmt.Errorf("calling intent service: %w", err)
	}
	defer resp.Body.Close()

	var out Interpretation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Interpretation{}, fmt.Errorf("parsing intent response: %w", err)
	}
	return out, nil
}
