// Package classifier assigns articles to a category using keyword rules, an
// external text model, or both side by side.
package classifier

import (
	"context"
	"fmt"

	"news_ingest/internal/domain"
)

const (
	StrategyKeyword = "keyword"
	StrategyModel   = "model"
)

// Result is one strategy's verdict on an article.
type Result struct {
	Category    string
	Country     string
	EURelevance *float64
	Confidence  *float64
	Strategy    string
}

// Apply copies the verdict onto the article.
func (r Result) Apply(a *domain.Article) {
	a.Category = r.Category
	a.Country = nil
	if r.Country != "" {
		country := r.Country
		a.Country = &country
	}
	a.EURelevance = r.EURelevance
	a.Confidence = r.Confidence
}

// Strategy is implemented by both classification variants. The Selector
// holds one of each.
type Strategy interface {
	Classify(ctx context.Context, a *domain.Article) (Result, error)
}

// Error is a failed model-assisted classification. It never escapes the Selector.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "classification failed: " + e.Reason
	}
	return fmt.Sprintf("classification failed: %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
