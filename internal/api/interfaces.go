package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_ingest/internal/domain"
	"news_ingest/internal/search"
)

type Jobs interface {
	Trigger(ctx context.Context) (*domain.Job, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
}

type Articles interface {
	List(ctx context.Context, filter domain.ArticleFilter) (*domain.ArticlePage, error)
	Get(ctx context.Context, id int64) (*domain.Article, error)
}

type Searcher interface {
	Search(ctx context.Context, params search.Params) (*search.Result, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}
