// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"strings"
	"unicode"
)

// booleanOperators are dropped by SimplifyQuery.
var booleanOperators = map[string]bool{"AND": true, "OR": true, "NOT": true}

// SimplifyQuery strips field prefixes ("author:"), quotes, parentheses and
// boolean operators, leaving plain search words. Providers use it as their
// fallback strategy when the full query keeps failing.
func SimplifyQuery(q string) string {
	var words []string
	for _, tok := range strings.Fields(q) {
		if booleanOperators[tok] {
			continue
		}
		if i := strings.Index(tok, ":"); i >= 0 {
			tok = tok[i+1:]
		}
		tok = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' {
				return r
			}
			return ' '
		}, tok)
		words = append(words, strings.Fields(tok)...)
	}
	return strings.Join(words, " ")
}

// wantsField reports whether field was requested. An empty request means
// every field is wanted.
func wantsField(fields []string, field string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if strings.EqualFold(strings.TrimSpace(f), field) {
			return true
		}
	}
	return false
}

// positionScore maps a 0-based position to a score in [0.1, 1.0] for
// providers that return order but no score.
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}
