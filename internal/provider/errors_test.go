// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rankcompare/internal/httputil"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		retryAfter time.Duration
		want       Kind
	}{
		{"429 short wait", http.StatusTooManyRequests, 30 * time.Second, KindTransient},
		{"429 no header", http.StatusTooManyRequests, 0, KindTransient},
		{"429 long wait", http.StatusTooManyRequests, time.Hour, KindBlocked},
		{"429 at threshold", http.StatusTooManyRequests, BlockThreshold, KindBlocked},
		{"403", http.StatusForbidden, 0, KindBlocked},
		{"408", http.StatusRequestTimeout, 0, KindTransient},
		{"500", http.StatusInternalServerError, 0, KindTransient},
		{"503", http.StatusServiceUnavailable, 0, KindTransient},
		{"400", http.StatusBadRequest, 0, KindPermanent},
		{"401", http.StatusUnauthorized, 0, KindPermanent},
		{"404", http.StatusNotFound, 0, KindPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStatus(tt.code, tt.retryAfter))
		})
	}
}

func TestFromHTTP(t *testing.T) {
	se := &httputil.StatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 10 * time.Minute}
	pe := fromHTTP(NameADS, fmt.Errorf("wrapped: %w", se))
	assert.Equal(t, KindBlocked, pe.Kind)
	assert.Equal(t, 10*time.Minute, pe.RetryAfter)
	assert.Equal(t, NameADS, pe.Source)

	pe = fromHTTP(NameArxiv, context.DeadlineExceeded)
	assert.Equal(t, KindTransient, pe.Kind)
	assert.True(t, IsTimeout(pe))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPermanent, KindOf(Permanent("x", errors.New("bad"))))
	assert.Equal(t, KindBlocked, KindOf(fmt.Errorf("outer: %w", Blocked("x", errors.New("captcha")))))
	assert.Equal(t, KindTransient, KindOf(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := Permanent(NameOpenAlex, errors.New("empty query"))
	require.Error(t, err)
	assert.Equal(t, "openalex: permanent failure: empty query", err.Error())
	assert.Equal(t, "blocked", KindBlocked.String())
}
