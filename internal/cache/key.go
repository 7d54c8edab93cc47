// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores previously fetched result sets. It offers a durable
// keyed Store (SQLite or Redis) with per-entry TTL for provider results, a
// ResultCache that encodes result payloads and degrades every store failure
// to a miss, and a bounded in-memory MemoryLRU for derived artifacts.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// keySep separates key components so no component value can shift into its
// neighbor.
const keySep = "\x1f"

// DeriveKey hashes the parameters of one provider fetch into a fixed-length
// key. The field list is sorted and field boosts are serialized in field-name
// order, so permutations of either produce the same key.
func DeriveKey(source, query string, fields []string, limit int, queryFieldWeights string, fieldBoosts map[string]float64) string {
	sorted := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			sorted = append(sorted, f)
		}
	}
	sort.Strings(sorted)

	parts := []string{
		strings.ToLower(strings.TrimSpace(source)),
		normalizeQuery(query),
		strings.Join(sorted, ","),
		strconv.Itoa(limit),
		strings.TrimSpace(queryFieldWeights),
		canonicalBoosts(fieldBoosts),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, keySep)))
	return hex.EncodeToString(sum[:])
}

// normalizeQuery lowercases the query and collapses runs of whitespace.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func canonicalBoosts(boosts map[string]float64) string {
	if len(boosts) == 0 {
		return ""
	}
	names := make([]string, 0, len(boosts))
	for name := range boosts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(boosts[name], 'g', -1, 64))
	}
	return b.String()
}
