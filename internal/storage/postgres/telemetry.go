package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"news_ingest/internal/domain"
)

// TelemetryStore persists per-run source metrics and model-call records.
type TelemetryStore struct {
	db *sqlx.DB
}

func NewTelemetryStore(db *sqlx.DB) *TelemetryStore {
	return &TelemetryStore{db: db}
}

func (s *TelemetryStore) RecordSourceMetrics(ctx context.Context, metrics []domain.SourceMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	insert := psql.Insert("source_metrics").Columns(
		"job_id", "source", "found", "processed", "filtered", "duplicates", "errors",
		"passed_relevance", "avg_quality", "avg_eu_relevance", "categories", "duration_ms",
	)
	for _, m := range metrics {
		categories, err := json.Marshal(m.Categories)
		if err != nil {
			return fmt.Errorf("marshal categories: %w", err)
		}
		insert = insert.Values(
			m.JobID, m.Source, m.Found, m.Processed, m.Filtered, m.Duplicates, m.Errors,
			m.PassedRelevance, m.AvgQuality, m.AvgEURelevance, string(categories), m.Duration.Milliseconds(),
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = GetExecutor(ctx, s.db).ExecContext(ctx, query, args...)
	return err
}

func (s *TelemetryStore) RecordModelCalls(ctx context.Context, jobID string, calls []domain.ModelCall) error {
	if len(calls) == 0 {
		return nil
	}

	insert := psql.Insert("model_calls").Columns(
		"job_id", "article_url", "model", "prompt_version", "latency_ms", "tokens_in",
		"tokens_out", "status", "fallback_reason", "created_at",
	)
	for _, c := range calls {
		var reason *string
		if c.FallbackReason != "" {
			reason = &c.FallbackReason
		}
		insert = insert.Values(
			jobID, c.ArticleURL, c.Model, c.PromptVersion, c.Latency.Milliseconds(), c.TokensIn,
			c.TokensOut, string(c.Status), reason, c.CreatedAt,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = GetExecutor(ctx, s.db).ExecContext(ctx, query, args...)
	return err
}
