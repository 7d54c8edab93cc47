// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Judgment is an externally supplied relevance rating for one document under
// one query. DocID is the compact bibliographic identifier when known; Title
// is used for matching when no identifier matches.
type Judgment struct {
	DocID  string `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Rating int    `json:"rating" yaml:"rating"`
	Note   string `json:"note,omitempty" yaml:"note,omitempty"`
}

// JudgmentCase describes one judged case and the queries it covers.
type JudgmentCase struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Queries []string `json:"queries" yaml:"queries"`
}

// EvaluationStatus distinguishes a computed evaluation from the structured
// not-found outcomes.
type EvaluationStatus string

const (
	EvaluationOK              EvaluationStatus = "ok"
	EvaluationNoMatchingQuery EvaluationStatus = "no_matching_query"
	EvaluationNoJudgments     EvaluationStatus = "no_judgments"
)

// EvaluationResult reports ranking quality against judgments for one query.
type EvaluationResult struct {
	Status EvaluationStatus `json:"status" yaml:"status"`

	// Query is the query as supplied; MatchedQuery is the judged query it
	// resolved to.
	Query        string `json:"query" yaml:"query"`
	MatchedQuery string `json:"matched_query,omitempty" yaml:"matched_query,omitempty"`

	// Metrics maps "ndcg@5", "p@10", ... to scores.
	Metrics map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Recall  float64            `json:"recall" yaml:"recall"`

	JudgedRetrieved   int `json:"judged_retrieved" yaml:"judged_retrieved"`
	RelevantRetrieved int `json:"relevant_retrieved" yaml:"relevant_retrieved"`
	TotalJudged       int `json:"total_judged" yaml:"total_judged"`
	TotalRelevant     int `json:"total_relevant" yaml:"total_relevant"`

	// AvailableQueries lists judged queries when Status is no_matching_query.
	AvailableQueries []string `json:"available_queries,omitempty" yaml:"available_queries,omitempty"`
}
