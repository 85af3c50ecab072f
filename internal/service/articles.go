package service

import (
	"context"
	"fmt"
	"math"

	"news_ingest/internal/domain"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ArticleService is the read side over stored articles.
type ArticleService struct {
	articles   ArticleStore
	categories domain.Categories
}

func NewArticleService(articles ArticleStore, categories domain.Categories) *ArticleService {
	if len(categories) == 0 {
		categories = domain.DefaultCategories
	}
	return &ArticleService{articles: articles, categories: categories}
}

// List returns one page of articles, newest first. A zero limit selects
// DefaultListLimit; filters outside their range wrap domain.ErrInvalidFilter.
func (s *ArticleService) List(ctx context.Context, filter domain.ArticleFilter) (*domain.ArticlePage, error) {
	if filter.Limit == 0 {
		filter.Limit = DefaultListLimit
	}
	if err := s.validate(filter); err != nil {
		return nil, err
	}

	articles, total, err := s.articles.ListArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if articles == nil {
		articles = []domain.Article{}
	}

	return &domain.ArticlePage{
		Articles: articles,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

func (s *ArticleService) Get(ctx context.Context, id int64) (*domain.Article, error) {
	if id <= 0 {
		return nil, domain.ErrNotFound
	}
	return s.articles.GetArticle(ctx, id)
}

func (s *ArticleService) validate(f domain.ArticleFilter) error {
	switch {
	case f.Limit < 1 || f.Limit > MaxListLimit:
		return fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidFilter, MaxListLimit)
	case f.Offset < 0:
		return fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidFilter)
	case math.IsNaN(f.MinQuality) || f.MinQuality < 0 || f.MinQuality > 1:
		return fmt.Errorf("%w: min_quality must be between 0 and 1", domain.ErrInvalidFilter)
	case f.Category != "" && !s.categories.Contains(f.Category):
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidFilter, f.Category)
	}
	return nil
}
