package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"news_ingest/internal/domain"
)

const (
	minConfidence  = 0.5
	minEURelevance = 2.0
	categoryOther  = "other"
)

// ParseClassification treats raw model output as untrusted input. Numeric
// fields are clamped into range rather than rejected.
func ParseClassification(raw string, categories domain.Categories) (Result, error) {
	text := stripFences(raw)
	if text == "" {
		return Result{}, errors.New("empty response")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return Result{}, fmt.Errorf("response is not a JSON object: %w", err)
	}

	rawCategory, ok := data["category"].(string)
	if !ok {
		return Result{}, errors.New("category missing or not a string")
	}
	category := strings.ToLower(strings.TrimSpace(rawCategory))
	if category == "" || category == domain.CategoryUncategorized || !categories.Contains(category) {
		return Result{}, fmt.Errorf("category %q is not allowed", rawCategory)
	}

	eu, err := number(data, "eu_relevance")
	if err != nil {
		return Result{}, err
	}
	confidence, err := number(data, "confidence")
	if err != nil {
		return Result{}, err
	}
	eu = clampRange(eu, 0, 10)
	confidence = clampRange(confidence, 0, 1)

	country, _ := data["country"].(string)

	return Result{
		Category:    category,
		Country:     strings.TrimSpace(country),
		EURelevance: &eu,
		Confidence:  &confidence,
		Strategy:    StrategyModel,
	}, nil
}

// ValidateClassification applies the editorial rules on top of a parsed
// result: low confidence or low European relevance demotes to "other", and
// "other" carries no relevance.
func ValidateClassification(r Result, categories domain.Categories) Result {
	demoteTo := domain.CategoryUncategorized
	if categories.Contains(categoryOther) {
		demoteTo = categoryOther
	}

	if r.Category != categoryOther && r.Category != domain.CategoryUncategorized {
		if (r.Confidence != nil && *r.Confidence < minConfidence) ||
			(r.EURelevance != nil && *r.EURelevance < minEURelevance) {
			r.Category = demoteTo
		}
	}
	if r.Category == categoryOther || r.Category == domain.CategoryUncategorized {
		zero := 0.0
		r.EURelevance = &zero
	}
	return r
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func number(data map[string]any, key string) (float64, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) {
			return 0, fmt.Errorf("%s is not numeric: %q", key, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s has unexpected type %T", key, v)
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
