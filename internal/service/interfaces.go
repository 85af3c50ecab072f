package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_ingest/internal/domain"
	"news_ingest/internal/extract"
)

type ArticleStore interface {
	InsertArticle(ctx context.Context, article *domain.Article) (int64, error)
	ExistsByURLOrHash(ctx context.Context, fp domain.Fingerprint) (bool, error)
	GetArticle(ctx context.Context, id int64) (*domain.Article, error)
	ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, int, error)
}

type TelemetryStore interface {
	RecordSourceMetrics(ctx context.Context, metrics []domain.SourceMetric) error
	RecordModelCalls(ctx context.Context, jobID string, calls []domain.ModelCall) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Entry, error)
}

type Extractor interface {
	Extract(ctx context.Context, url string) (*extract.Page, error)
}

type Publisher interface {
	PublishArticle(ctx context.Context, article *domain.Article) error
}

type Indexer interface {
	IndexArticle(ctx context.Context, article *domain.Article) error
}
