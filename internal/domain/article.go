package domain

import (
	"slices"
	"time"
)

// CategoryUncategorized is assigned when no rule or model verdict applies.
// It is always a valid category regardless of the configured enumeration.
const CategoryUncategorized = "uncategorized"

// DefaultCategories is the enumeration used when none is configured.
var DefaultCategories = Categories{"startups", "policy", "research", "industry", "other"}

// Categories is an ordered category enumeration.
type Categories []string

// Contains reports whether c is a member of the enumeration. The
// uncategorized bucket is always a member.
func (cs Categories) Contains(c string) bool {
	if c == CategoryUncategorized {
		return true
	}
	return slices.Contains(cs, c)
}

// Article is both the per-entry draft built by the pipeline and the stored record.
// ID stays zero until the article is persisted.
type Article struct {
	ID            int64      `db:"id" json:"id"`
	URL           string     `db:"url" json:"url"`
	URLKey        string     `db:"url_key" json:"-"`
	Title         string     `db:"title" json:"title"`
	Source        string     `db:"source" json:"source"`
	Content       string     `db:"content" json:"content,omitempty"`
	Summary       *string    `db:"summary" json:"summary,omitempty"`
	PublishedDate *time.Time `db:"published_date" json:"published_date,omitempty"`
	ScrapedAt     time.Time  `db:"scraped_at" json:"scraped_at"`
	Category      string     `db:"category" json:"category"`
	Country       *string    `db:"country" json:"country,omitempty"`
	Language      string     `db:"language" json:"language"`
	ContentHash   string     `db:"content_hash" json:"content_hash"`
	QualityScore  float64    `db:"quality_score" json:"quality_score"`
	EURelevance   *float64   `db:"eu_relevance" json:"-"`
	Confidence    *float64   `db:"confidence" json:"-"`
	ImageURL      *string    `db:"image_url" json:"image_url,omitempty"`
	JobID         *string    `db:"job_id" json:"-"`
}

// Entry is a raw item yielded by a source before any processing.
type Entry struct {
	URL         string
	Title       string
	Content     string
	Summary     string
	PublishedAt *time.Time
	ImageURL    string
	// SourceLabel is the publisher label as reported by the feed itself.
	SourceLabel string
}

// ArticleFilter narrows ListArticles.
type ArticleFilter struct {
	Category   string
	Country    string
	MinQuality float64
	Limit      int
	Offset     int
}

type ArticlePage struct {
	Articles []Article `json:"articles"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// Fingerprint is the identity pair used for duplicate detection.
type Fingerprint struct {
	URLKey      string `db:"url_key"`
	ContentHash string `db:"content_hash"`
}
