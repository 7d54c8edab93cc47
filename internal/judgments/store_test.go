// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judgments

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outerPlanets = `id: outer
name: Outer solar system
queries:
  triton:
    - doc_id: "1990Sci...250..410S"
      title: Triton's geyser-like plumes
      rating: 3
    - title: Neptune's moons
      rating: 1
  neptune rings:
    - doc_id: "1991AJ....101..1234X"
      rating: 2
---
id: inner
queries:
  mercury:
    - title: Mercury's core
      rating: 2
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func TestLoadFileWithSeveralCases(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cases.yaml", outerPlanets)

	s, err := Load(path, quietLogger())
	require.NoError(t, err)

	cases := s.ListCases()
	require.Len(t, cases, 2)
	assert.Equal(t, "inner", cases[0].ID)
	assert.Equal(t, "outer", cases[1].ID)
	assert.Equal(t, "Outer solar system", cases[1].Name)
	assert.Equal(t, []string{"neptune rings", "triton"}, cases[1].Queries)

	_, ok := s.DefaultCase()
	assert.False(t, ok)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "id: a\nqueries:\n  x:\n    - title: t\n      rating: 1\n")
	writeFile(t, dir, "b.yml", "id: b\nqueries:\n  y:\n    - title: u\n      rating: 0\n")
	writeFile(t, dir, "notes.txt", "ignored")

	s, err := Load(dir, quietLogger())
	require.NoError(t, err)
	assert.Len(t, s.ListCases(), 2)
}

func TestLoadRejectsDuplicateCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "id: a\nqueries: {}\n")
	writeFile(t, dir, "b.yaml", "id: a\nqueries: {}\n")

	_, err := Load(dir, quietLogger())
	assert.ErrorContains(t, err, "duplicate")
}

func TestLoadRejectsMissingID(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.yaml", "queries: {}\n")

	_, err := Load(path, quietLogger())
	assert.ErrorContains(t, err, "without id")
}

func TestLoadRejectsQueriesEqualAfterNormalization(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.yaml", "id: a\nqueries:\n  Triton: []\n  \"triton \": []\n")

	_, err := Load(path, quietLogger())
	assert.ErrorContains(t, err, "same query")
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"), quietLogger())
	assert.Error(t, err)
}

func TestGetJudgments(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cases.yaml", outerPlanets)
	s, err := Load(path, quietLogger())
	require.NoError(t, err)

	js, err := s.GetJudgments("outer", "  TRITON ")
	require.NoError(t, err)
	require.Len(t, js, 2)
	assert.Equal(t, 3, js[0].Rating)

	js, err = s.GetJudgments("outer", "pluto")
	require.NoError(t, err)
	assert.Empty(t, js)

	_, err = s.GetJudgments("nope", "triton")
	assert.ErrorIs(t, err, ErrUnknownCase)
}

func TestJudgmentsReturnsCopies(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cases.yaml", outerPlanets)
	s, err := Load(path, quietLogger())
	require.NoError(t, err)

	all, err := s.Judgments("outer")
	require.NoError(t, err)
	require.Len(t, all, 2)
	all["triton"][0].Rating = 0

	again, err := s.Judgments("outer")
	require.NoError(t, err)
	assert.Equal(t, 3, again["triton"][0].Rating)
}

func TestDefaultCase(t *testing.T) {
	path := writeFile(t, t.TempDir(), "one.yaml", "id: solo\nqueries: {}\n")
	s, err := Load(path, quietLogger())
	require.NoError(t, err)

	id, ok := s.DefaultCase()
	assert.True(t, ok)
	assert.Equal(t, "solo", id)
}
