package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_ingest/internal/domain"
)

const uniqueViolation = "23505"

var articleColumns = []string{
	"id", "url", "url_key", "title", "source", "content", "summary", "published_date",
	"scraped_at", "category", "country", "language", "content_hash", "quality_score",
	"eu_relevance", "confidence", "image_url", "job_id",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// InsertArticle stores a new article and returns its id. A url_key or
// content_hash collision is reported as domain.ErrDuplicate.
func (s *ArticleStore) InsertArticle(ctx context.Context, article *domain.Article) (int64, error) {
	query := `
		INSERT INTO articles (
			url, url_key, title, source, content, summary, published_date, scraped_at,
			category, country, language, content_hash, quality_score, eu_relevance,
			confidence, image_url, job_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		article.URL,
		article.URLKey,
		article.Title,
		article.Source,
		article.Content,
		article.Summary,
		article.PublishedDate,
		article.ScrapedAt,
		article.Category,
		article.Country,
		article.Language,
		article.ContentHash,
		article.QualityScore,
		article.EURelevance,
		article.Confidence,
		article.ImageURL,
		article.JobID,
	).Scan(&id)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return 0, fmt.Errorf("%w: %s", domain.ErrDuplicate, pqErr.Constraint)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *ArticleStore) ExistsByURLOrHash(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE url_key = $1 OR content_hash = $2)`,
		fp.URLKey, fp.ContentHash,
	)
	return exists, err
}

// KnownFingerprints returns the fingerprints of the most recently scraped
// articles, for seeding the in-process dedup index.
func (s *ArticleStore) KnownFingerprints(ctx context.Context, limit int) ([]domain.Fingerprint, error) {
	var fps []domain.Fingerprint
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &fps,
		`SELECT url_key, content_hash FROM articles ORDER BY scraped_at DESC, id DESC LIMIT $1`,
		limit,
	)
	return fps, err
}

func (s *ArticleStore) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var article domain.Article
	err = sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &article, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// ListArticles returns the filtered page, newest first, and the total number
// of matching articles.
func (s *ArticleStore) ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, int, error) {
	where := sq.And{}
	if filter.Category != "" {
		where = append(where, sq.Eq{"category": filter.Category})
	}
	if filter.Country != "" {
		where = append(where, sq.Expr("LOWER(country) = LOWER(?)", filter.Country))
	}
	if filter.MinQuality > 0 {
		where = append(where, sq.GtOrEq{"quality_score": filter.MinQuality})
	}

	exec := GetExecutor(ctx, s.db)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("articles").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := sqlx.GetContext(ctx, exec, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	listQuery, listArgs, err := psql.Select(articleColumns...).
		From("articles").
		Where(where).
		OrderBy("scraped_at DESC", "id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	var articles []domain.Article
	if err := sqlx.SelectContext(ctx, exec, &articles, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("select articles: %w", err)
	}
	return articles, total, nil
}
