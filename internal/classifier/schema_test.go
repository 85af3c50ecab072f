package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingest/internal/domain"
)

func TestParseClassification_Valid(t *testing.T) {
	raw := "```json\n{\"category\": \" Startups \", \"country\": \"France\", \"eu_relevance\": 9, \"confidence\": 0.95}\n```"

	res, err := ParseClassification(raw, domain.DefaultCategories)
	require.NoError(t, err)

	assert.Equal(t, "startups", res.Category)
	assert.Equal(t, "France", res.Country)
	assert.Equal(t, 9.0, *res.EURelevance)
	assert.Equal(t, 0.95, *res.Confidence)
	assert.Equal(t, StrategyModel, res.Strategy)
}

func TestParseClassification_ClampsNumbers(t *testing.T) {
	res, err := ParseClassification(`{"category":"policy","eu_relevance":42,"confidence":"1.7"}`, domain.DefaultCategories)
	require.NoError(t, err)
	assert.Equal(t, 10.0, *res.EURelevance)
	assert.Equal(t, 1.0, *res.Confidence)
	assert.Equal(t, "", res.Country)

	res, err = ParseClassification(`{"category":"policy","eu_relevance":-3,"confidence":-0.2}`, domain.DefaultCategories)
	require.NoError(t, err)
	assert.Equal(t, 0.0, *res.EURelevance)
	assert.Equal(t, 0.0, *res.Confidence)
}

func TestParseClassification_InfinityClampsToBounds(t *testing.T) {
	res, err := ParseClassification(`{"category":"policy","eu_relevance":"+Inf","confidence":"-Inf"}`, domain.DefaultCategories)
	require.NoError(t, err)
	assert.Equal(t, 10.0, *res.EURelevance)
	assert.Equal(t, 0.0, *res.Confidence)
}

func TestParseClassification_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":            "  ",
		"not json":         "I think this is about startups",
		"array":            `["startups"]`,
		"missing category": `{"eu_relevance": 5}`,
		"non-string":       `{"category": 3}`,
		"unknown category": `{"category": "sports"}`,
		"country as label": `{"category": "France"}`,
		"uncategorized":    `{"category": "uncategorized"}`,
		"bad number":       `{"category": "policy", "eu_relevance": "high"}`,
		"bad number type":  `{"category": "policy", "confidence": [1]}`,
		"nan relevance":    `{"category": "policy", "eu_relevance": "NaN", "confidence": 0.9}`,
		"nan confidence":   `{"category": "policy", "eu_relevance": 5, "confidence": " nan "}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClassification(raw, domain.DefaultCategories)
			assert.Error(t, err)
		})
	}
}

func TestValidateClassification(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	res := ValidateClassification(Result{Category: "startups", EURelevance: f(8), Confidence: f(0.9)}, domain.DefaultCategories)
	assert.Equal(t, "startups", res.Category)
	assert.Equal(t, 8.0, *res.EURelevance)

	res = ValidateClassification(Result{Category: "startups", EURelevance: f(8), Confidence: f(0.3)}, domain.DefaultCategories)
	assert.Equal(t, "other", res.Category)
	assert.Equal(t, 0.0, *res.EURelevance)

	res = ValidateClassification(Result{Category: "industry", EURelevance: f(1), Confidence: f(0.9)}, domain.DefaultCategories)
	assert.Equal(t, "other", res.Category)

	res = ValidateClassification(Result{Category: "other", EURelevance: f(7), Confidence: f(0.9)}, domain.DefaultCategories)
	assert.Equal(t, 0.0, *res.EURelevance)

	res = ValidateClassification(Result{Category: "policy", EURelevance: f(0), Confidence: f(0.9)}, domain.Categories{"policy"})
	assert.Equal(t, domain.CategoryUncategorized, res.Category)
}
