// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rankcompare/internal/cache"
)

type countingInterpreter struct {
	out   Interpretation
	err   error
	calls int
}

func (c *countingInterpreter) Interpret(ctx context.Context, query string) (Interpretation, error) {
	c.calls++
	return c.out, c.err
}

func newMemo(t *testing.T) *cache.MemoryLRU[Interpretation] {
	t.Helper()
	m, err := cache.NewMemoryLRU[Interpretation](8, time.Hour)
	require.NoError(t, err)
	return m
}

func TestPrepareQueryUsesConfidentRewrite(t *testing.T) {
	interp := &countingInterpreter{out: Interpretation{Query: "abs:triton year:2000-", Intent: "recent", Confidence: 0.9}}
	logger, _ := test.NewNullLogger()
	p := NewPreprocessor(interp, newMemo(t), 0, logger)

	q, got := p.PrepareQuery(context.Background(), "recent papers on Triton")
	assert.Equal(t, "abs:triton year:2000-", q)
	assert.Equal(t, "recent", got.Intent)

	q, _ = p.PrepareQuery(context.Background(), "Recent  papers on triton")
	assert.Equal(t, "abs:triton year:2000-", q)
	assert.Equal(t, 1, interp.calls, "interpretation is memoized by normalized query")
}

func TestPrepareQueryKeepsOriginalBelowThreshold(t *testing.T) {
	interp := &countingInterpreter{out: Interpretation{Query: "something else", Confidence: 0.3}}
	p := NewPreprocessor(interp, nil, 0.5, nil)

	q, got := p.PrepareQuery(context.Background(), "triton")
	assert.Equal(t, "triton", q)
	assert.Equal(t, 0.3, got.Confidence)
}

func TestPrepareQueryFallsBackOnError(t *testing.T) {
	interp := &countingInterpreter{err: errors.New("service down")}
	logger, hook := test.NewNullLogger()
	p := NewPreprocessor(interp, newMemo(t), 0, logger)

	q, _ := p.PrepareQuery(context.Background(), "triton")
	assert.Equal(t, "triton", q)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "query interpretation failed; using original query", hook.LastEntry().Message)

	// Failures are not memoized.
	p.PrepareQuery(context.Background(), "triton")
	assert.Equal(t, 2, interp.calls)
}

func TestPrepareQueryNilPreprocessor(t *testing.T) {
	var p *Preprocessor
	q, _ := p.PrepareQuery(context.Background(), "triton")
	assert.Equal(t, "triton", q)
}

func TestHTTPInterpreter(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body["query"]
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"transformed_query":"abs:triton","intent":"topic","confidence":0.8}`)
	}))
	defer ts.Close()

	h := &HTTPInterpreter{Client: ts.Client(), URL: ts.URL}
	out, err := h.Interpret(context.Background(), "papers about triton")
	require.NoError(t, err)
	assert.Equal(t, "papers about triton", gotQuery)
	assert.Equal(t, Interpretation{Query: "abs:triton", Intent: "topic", Confidence: 0.8}, out)
}

func TestHTTPInterpreterErrors(t *testing.T) {
	_, err := (&HTTPInterpreter{}).Interpret(context.Background(), "q")
	assert.Error(t, err)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()
	_, err = (&HTTPInterpreter{Client: ts.Client(), URL: ts.URL}).Interpret(context.Background(), "q")
	assert.Error(t, err)
}
