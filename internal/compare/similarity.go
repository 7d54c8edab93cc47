// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compare

import (
	"errors"
	"fmt"
	"math"
)

// RBO returns the extrapolated rank-biased overlap of two ranked lists of
// distinct items (Webber, Moffat & Zobel 2010, uneven-length form). p is
// the persistence in (0, 1); higher values weight deeper ranks more. Empty
// lists and out-of-range p are errors.
func RBO(a, b []string, p float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return 0, fmt.Errorf("rbo persistence must be in (0, 1), got %v", p)
	}
	if len(a) == 0 || len(b) == 0 {
		return 0, errors.New("rbo undefined for empty list")
	}

	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	s, l := len(short), len(long)

	// overlap[d] is |short[:min(d,s)] ∩ long[:d]|.
	overlap := make([]float64, l+1)
	seenShort := make(map[string]bool, s)
	seenLong := make(map[string]bool, l)
	x := 0
	for d := 1; d <= l; d++ {
		item := long[d-1]
		if !seenLong[item] {
			seenLong[item] = true
			if seenShort[item] {
				x++
			}
		}
		if d <= s {
			item := short[d-1]
			if !seenShort[item] {
				seenShort[item] = true
				if seenLong[item] {
					x++
				}
			}
		}
		overlap[d] = float64(x)
	}

	xs, xl := overlap[s], overlap[l]
	var sum float64
	pd := 1.0
	for d := 1; d <= l; d++ {
		pd *= p
		sum += overlap[d] / float64(d) * pd
		if d > s {
			sum += xs * float64(d-s) / float64(s*d) * pd
		}
	}
	score := (1-p)/p*sum + ((xl-xs)/float64(l)+xs/float64(s))*pd

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("rbo computation diverged for p=%v", p)
	}
	return math.Max(0, math.Min(1, score)), nil
}

// Cosine is the cosine similarity of two term-frequency vectors. Two empty
// vectors score 1; one empty vector or a zero magnitude scores 0.
func Cosine(a, b map[string]int) float64 {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 1
	case len(a) == 0 || len(b) == 0:
		return 0
	}

	var dot, magA, magB float64
	for term, ca := range a {
		fa := float64(ca)
		magA += fa * fa
		if cb, ok := b[term]; ok {
			dot += fa * float64(cb)
		}
	}
	for _, cb := range b {
		fb := float64(cb)
		magB += fb * fb
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
