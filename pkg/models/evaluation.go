package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchingStrategy selects how unordered lists are paired up.
type MatchingStrategy string

const (
	// MatchingGreedy pairs each gold item with the first unused equal
	// prediction. Scores are comparable with previously published numbers.
	MatchingGreedy MatchingStrategy = "greedy"
	// MatchingMaximum finds a maximum-cardinality pairing. It can only
	// raise scores relative to greedy.
	MatchingMaximum MatchingStrategy = "maximum"
)

// Valid reports whether s is a known strategy.
func (s MatchingStrategy) Valid() bool {
	return s == MatchingGreedy || s == MatchingMaximum
}

// Sample is one gold/predicted pair of a dataset.
type Sample struct {
	ID        string `json:"id"`
	DBID      string `json:"db_id"`
	Question  string `json:"question,omitempty"`
	Gold      string `json:"gold"`
	Predicted string `json:"predicted"`
}

// SampleResult is the outcome of scoring one sample. Exactly one of Scores
// and Error is set.
type SampleResult struct {
	Sample
	Scores     *Scores  `json:"scores,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Error      string   `json:"error,omitempty"`
	Side       string   `json:"side,omitempty"` // "gold" or "predicted" when canonicalization failed
	ExactMatch bool     `json:"exact_match"`
	AuditFlags []string `json:"audit_flags,omitempty"`
	DurationMS float64  `json:"duration_ms"`
}

// Failed reports whether the sample was excluded from aggregation.
func (r *SampleResult) Failed() bool {
	return r.Scores == nil
}

// MetricSummary is the dataset average of one metric.
type MetricSummary struct {
	Clause    Clause  `json:"clause"`
	Key       string  `json:"key"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Summary holds dataset-level averages.
type Summary struct {
	Scored       int             `json:"scored"`
	ExactMatches int             `json:"exact_matches"`
	ClauseCounts map[Clause]int  `json:"clause_counts"`
	Metrics      []MetricSummary `json:"metrics"`
}

// Metric returns the summary of the named metric, if present.
func (s *Summary) Metric(c Clause, key string) (MetricSummary, bool) {
	for _, m := range s.Metrics {
		if m.Clause == c && m.Key == key {
			return m, true
		}
	}
	return MetricSummary{}, false
}

// Report is the output of a dataset evaluation run.
type Report struct {
	RunID        uuid.UUID        `json:"run_id"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Matching     MatchingStrategy `json:"matching"`
	Total        int              `json:"total"`
	Failed       int              `json:"failed"`
	ErrorsByKind map[string]int   `json:"errors_by_kind,omitempty"`
	Summary      Summary          `json:"summary"`
	Samples      []SampleResult   `json:"samples"`
}
