// Package quality scores article drafts from their content signals.
package quality

import (
	"strings"
	"unicode/utf8"

	"news_ingest/internal/domain"
)

const (
	// Floor is returned for near-empty content.
	Floor = 0.05

	minContentChars = 50
	saturationChars = 1500

	weightLength    = 0.50
	weightTitle     = 0.15
	weightSummary   = 0.10
	weightStructure = 0.15
	weightSource    = 0.10
)

// Scorer is a deterministic heuristic with no side effects.
type Scorer struct {
	tier1 map[string]struct{}
	tier2 map[string]struct{}
}

func NewScorer(tier1, tier2 []string) *Scorer {
	return &Scorer{tier1: toSet(tier1), tier2: toSet(tier2)}
}

// Score returns a value in [0, 1]. Longer content scores higher until the
// saturation length; content below the minimum length gets the floor.
func (s *Scorer) Score(a *domain.Article) float64 {
	length := utf8.RuneCountInString(strings.TrimSpace(a.Content))
	if length < minContentChars {
		return Floor
	}

	score := weightLength * min(float64(length)/saturationChars, 1)
	score += s.titleSignal(a.Title)
	if a.Summary != nil && strings.TrimSpace(*a.Summary) != "" {
		score += weightSummary
	}
	score += s.structureSignal(a)
	score += s.sourceSignal(a.Source)

	// Never below what shorter content would have scored.
	return clamp(max(score, Floor))
}

func (s *Scorer) titleSignal(title string) float64 {
	words := len(strings.Fields(title))
	switch {
	case words >= 5 && words <= 20:
		return weightTitle
	case words >= 3 && words <= 25:
		return 0.08
	default:
		return 0
	}
}

func (s *Scorer) structureSignal(a *domain.Article) float64 {
	var score float64
	if a.PublishedDate != nil && !a.PublishedDate.IsZero() {
		score += weightStructure / 3
	}
	if strings.TrimSpace(a.Source) != "" {
		score += weightStructure / 3
	}
	if a.Category != "" && a.Category != domain.CategoryUncategorized {
		score += weightStructure / 3
	}
	return score
}

func (s *Scorer) sourceSignal(source string) float64 {
	if _, ok := s.tier1[source]; ok {
		return weightSource
	}
	if _, ok := s.tier2[source]; ok {
		return 0.07
	}
	return 0.03
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
