package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"news_ingest/internal/domain"
	"news_ingest/internal/service/mocks"
)

type ArticleServiceTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	articles *mocks.MockArticleStore
	service  *ArticleService
	ctx      context.Context
}

func (s *ArticleServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.articles = mocks.NewMockArticleStore(s.ctrl)
	s.service = NewArticleService(s.articles, domain.DefaultCategories)
	s.ctx = context.Background()
}

func (s *ArticleServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestArticleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ArticleServiceTestSuite))
}

func (s *ArticleServiceTestSuite) TestList_AppliesDefaultLimit() {
	s.articles.EXPECT().
		ListArticles(gomock.Any(), domain.ArticleFilter{Category: "policy", Limit: DefaultListLimit}).
		Return([]domain.Article{{ID: 1, Category: "policy"}}, 12, nil)

	page, err := s.service.List(s.ctx, domain.ArticleFilter{Category: "policy"})
	s.Require().NoError(err)

	s.Len(page.Articles, 1)
	s.Equal(12, page.Total)
	s.Equal(DefaultListLimit, page.Limit)
	s.Equal(0, page.Offset)
}

func (s *ArticleServiceTestSuite) TestList_EmptyPageHasNonNilArticles() {
	s.articles.EXPECT().ListArticles(gomock.Any(), gomock.Any()).Return(nil, 0, nil)

	page, err := s.service.List(s.ctx, domain.ArticleFilter{Limit: 10, Offset: 40})
	s.Require().NoError(err)

	s.NotNil(page.Articles)
	s.Empty(page.Articles)
	s.Equal(40, page.Offset)
}

func (s *ArticleServiceTestSuite) TestList_RejectsInvalidFilters() {
	filters := []domain.ArticleFilter{
		{Limit: -1},
		{Limit: MaxListLimit + 1},
		{Limit: 10, Offset: -5},
		{Limit: 10, MinQuality: 1.5},
		{Limit: 10, MinQuality: math.NaN()},
		{Limit: 10, MinQuality: math.Inf(1)},
		{Limit: 10, Category: "sports"},
	}

	for _, f := range filters {
		_, err := s.service.List(s.ctx, f)
		s.ErrorIs(err, domain.ErrInvalidFilter, "filter %+v", f)
	}
}

func (s *ArticleServiceTestSuite) TestList_AcceptsUncategorized() {
	s.articles.EXPECT().ListArticles(gomock.Any(), gomock.Any()).Return(nil, 0, nil)

	_, err := s.service.List(s.ctx, domain.ArticleFilter{Category: domain.CategoryUncategorized})
	s.NoError(err)
}

func (s *ArticleServiceTestSuite) TestList_WrapsStoreError() {
	s.articles.EXPECT().ListArticles(gomock.Any(), gomock.Any()).Return(nil, 0, errors.New("timeout"))

	_, err := s.service.List(s.ctx, domain.ArticleFilter{})
	s.Require().Error(err)
	s.Contains(err.Error(), "list articles")
}

func (s *ArticleServiceTestSuite) TestGet() {
	s.articles.EXPECT().GetArticle(gomock.Any(), int64(3)).Return(&domain.Article{ID: 3}, nil)

	a, err := s.service.Get(s.ctx, 3)
	s.Require().NoError(err)
	s.Equal(int64(3), a.ID)
}

func (s *ArticleServiceTestSuite) TestGet_NotFound() {
	s.articles.EXPECT().GetArticle(gomock.Any(), int64(99)).Return(nil, domain.ErrNotFound)

	_, err := s.service.Get(s.ctx, 99)
	s.ErrorIs(err, domain.ErrNotFound)

	_, err = s.service.Get(s.ctx, 0)
	s.ErrorIs(err, domain.ErrNotFound)
}
