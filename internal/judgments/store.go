// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package judgments loads relevance judgments from YAML files. Each YAML
// document describes one case: an ID, an optional name and a mapping from
// judged query to rated documents. A file may hold several documents and a
// directory may hold several files.
package judgments

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rankcompare/internal/evaluate"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// ErrUnknownCase is returned when a case ID is not in the store.
var ErrUnknownCase = errors.New("unknown judgment case")

// caseFile is the on-disk shape of one case document.
type caseFile struct {
	ID      string                      `yaml:"id"`
	Name    string                      `yaml:"name,omitempty"`
	Queries map[string][]types.Judgment `yaml:"queries"`
}

type judgmentCase struct {
	desc    types.JudgmentCase
	queries map[string][]types.Judgment
}

// FileStore holds judgment cases loaded from disk. It is read-only after
// Load and safe for concurrent use.
type FileStore struct {
	cases map[string]judgmentCase
}

// Load reads path, which may be a YAML file or a directory of .yaml/.yml
// files. Duplicate case IDs, and queries that collide after normalization
// within one case, are errors.
func Load(path string, log logrus.FieldLogger) (*FileStore, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening judgments: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = yamlFiles(path)
		if err != nil {
			return nil, err
		}
	}

	s := &FileStore{cases: make(map[string]judgmentCase)}
	for _, f := range files {
		n, err := s.loadFile(f)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"file": f, "cases": n}).Debug("loaded judgment file")
	}
	return s, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading judgments directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *FileStore) loadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading judgments file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	n := 0
	for {
		var cf caseFile
		err := dec.Decode(&cf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := s.add(cf); err != nil {
			return n, fmt.Errorf("%s: %w", path, err)
		}
		n++
	}
	return n, nil
}

func (s *FileStore) add(cf caseFile) error {
	id := strings.TrimSpace(cf.ID)
	if id == "" {
		return errors.New("judgment case without id")
	}
	if _, dup := s.cases[id]; dup {
		return fmt.Errorf("duplicate judgment case %q", id)
	}

	c := judgmentCase{
		desc:    types.JudgmentCase{ID: id, Name: cf.Name},
		queries: make(map[string][]types.Judgment, len(cf.Queries)),
	}
	seen := make(map[string]string, len(cf.Queries))
	for q, js := range cf.Queries {
		norm := evaluate.NormalizeQuery(q)
		if norm == "" {
			return fmt.Errorf("case %q: empty query", id)
		}
		if prev, ok := seen[norm]; ok {
			return fmt.Errorf("case %q: queries %q and %q are the same query", id, prev, q)
		}
		seen[norm] = q
		c.queries[q] = js
		c.desc.Queries = append(c.desc.Queries, q)
	}
	sort.Strings(c.desc.Queries)
	s.cases[id] = c
	return nil
}

// ListCases returns every case sorted by ID.
func (s *FileStore) ListCases() []types.JudgmentCase {
	out := make([]types.JudgmentCase, 0, len(s.cases))
	for _, c := range s.cases {
		desc := c.desc
		desc.Queries = append([]string(nil), c.desc.Queries...)
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Judgments returns every judged query of a case with its judgments, in the
// shape evaluate.Evaluate consumes.
func (s *FileStore) Judgments(caseID string) (map[string][]types.Judgment, error) {
	c, ok := s.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCase, caseID)
	}
	out := make(map[string][]types.Judgment, len(c.queries))
	for q, js := range c.queries {
		out[q] = append([]types.Judgment(nil), js...)
	}
	return out, nil
}

// GetJudgments returns the judgments of the case's query whose normalized
// form equals query's. An unjudged query yields an empty list, not an error.
func (s *FileStore) GetJudgments(caseID, query string) ([]types.Judgment, error) {
	c, ok := s.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCase, caseID)
	}
	norm := evaluate.NormalizeQuery(query)
	for q, js := range c.queries {
		if evaluate.NormalizeQuery(q) == norm {
			return append([]types.Judgment(nil), js...), nil
		}
	}
	return nil, nil
}

// DefaultCase returns the only case ID when the store holds exactly one.
func (s *FileStore) DefaultCase() (string, bool) {
	if len(s.cases) != 1 {
		return "", false
	}
	for id := range s.cases {
		return id, true
	}
	return "", false
}
