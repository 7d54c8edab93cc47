// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rankcompare/pkg/types"
)

// CSLItem is a bibliographic entry in CSL-YAML form, consumable by Pandoc
// and reference managers.
type CSLItem struct {
	ID       string    `yaml:"id"`
	Type     string    `yaml:"type"`
	Title    string    `yaml:"title"`
	Author   []CSLName `yaml:"author,omitempty"`
	Abstract string    `yaml:"abstract,omitempty"`
	Issued   *CSLDate  `yaml:"issued,omitempty"`
	DOI      string    `yaml:"DOI,omitempty"`
	URL      string    `yaml:"URL,omitempty"`
	Source   string    `yaml:"source,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a CSL date using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// cslTypes maps lowercased source doctypes to CSL item types.
var cslTypes = map[string]string{
	"article":         "article-journal",
	"journalarticle":  "article-journal",
	"journal-article": "article-journal",
	"eprint":          "article",
	"preprint":        "article",
	"inproceedings":   "paper-conference",
	"conference":      "paper-conference",
	"book":            "book",
	"inbook":          "chapter",
	"book-chapter":    "chapter",
	"phdthesis":       "thesis",
	"dissertation":    "thesis",
	"review":          "review",
	"dataset":         "dataset",
	"software":        "software",
	"techreport":      "report",
}

// FormatCSL writes results as a CSL-YAML list to w.
func FormatCSL(results []types.SearchResult, w io.Writer) error {
	items := make([]CSLItem, len(results))
	for i, r := range results {
		items[i] = toCSLItem(r)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(r types.SearchResult) CSLItem {
	item := CSLItem{
		ID:       cslID(r),
		Type:     "article",
		Title:    r.Title,
		Abstract: r.Abstract,
		DOI:      r.DOI,
		URL:      r.URL,
		Source:   r.Source,
	}
	if t, ok := cslTypes[strings.ToLower(strings.TrimSpace(r.DocType))]; ok {
		item.Type = t
	}
	for _, a := range r.Authors {
		if name := parseAuthorName(a); name != (CSLName{}) {
			item.Author = append(item.Author, name)
		}
	}
	if r.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{r.Year}}}
	}
	return item
}

// cslID prefers the DOI, then the landing URL, then source and rank.
func cslID(r types.SearchResult) string {
	switch {
	case r.DOI != "":
		return r.DOI
	case r.URL != "":
		return r.URL
	default:
		return fmt.Sprintf("%s-%d", r.Source, r.Rank)
	}
}

// parseAuthorName splits a name into CSL family/given parts. "Family,
// Given" splits on the comma; otherwise the last token is the family name.
// Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		family, given = strings.TrimSpace(family), strings.TrimSpace(given)
		if given == "" {
			return CSLName{Literal: family}
		}
		return CSLName{Family: family, Given: given}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  strings.TrimSpace(name[:idx]),
		Family: name[idx+1:],
	}
}
