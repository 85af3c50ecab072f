package domain

import "time"

// SourceMetric holds per-source counters for one run.
type SourceMetric struct {
	JobID           string
	Source          string
	Found           int
	Processed       int
	Filtered        int
	Duplicates      int
	Errors          int
	PassedRelevance int
	AvgQuality      *float64
	AvgEURelevance  *float64
	Categories      map[string]int
	Duration        time.Duration
}

// ClassifierStats summarizes classification paths taken during a run.
type ClassifierStats struct {
	ModelCalls    int
	ModelFailures int
	Fallbacks     int
	BudgetSkipped int
	KeywordOnly   int
	TokensUsed    int
}

// RunStats holds the aggregate outcome of one pipeline run.
type RunStats struct {
	JobID      string
	Found      int
	Processed  int
	Filtered   int
	Duplicates int
	Errors     int
	Sources    []SourceMetric
	Classifier ClassifierStats
	Duration   time.Duration
}

// Add folds a source metric into the run totals.
func (r *RunStats) Add(m SourceMetric) {
	r.Found += m.Found
	r.Processed += m.Processed
	r.Filtered += m.Filtered
	r.Duplicates += m.Duplicates
	r.Errors += m.Errors
	r.Sources = append(r.Sources, m)
}

type ModelCallStatus string

const (
	ModelCallOK         ModelCallStatus = "ok"
	ModelCallAPIError   ModelCallStatus = "api_error"
	ModelCallTimeout    ModelCallStatus = "timeout"
	ModelCallParseError ModelCallStatus = "parse_error"
	ModelCallNoAPIKey   ModelCallStatus = "no_api_key"
)

// ModelCall is the telemetry row of one model-assisted classification attempt.
type ModelCall struct {
	ArticleURL     string
	Model          string
	PromptVersion  string
	Latency        time.Duration
	TokensIn       int
	TokensOut      int
	Status         ModelCallStatus
	FallbackReason string
	CreatedAt      time.Time
}
