package web

import (
	"bytes"
	"cmp"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"news_ingest/internal/domain"
	"news_ingest/internal/source"
)

var linkHints = []string{"article", "news", "post", "blog"}

type Config struct {
	Name       string
	URL        string
	MaxEntries int
}

// Getter fetches raw documents.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Source discovers article links on a listing page. Entries carry only the
// link and anchor text; the pipeline extracts their content.
type Source struct {
	name       string
	url        string
	maxEntries int
	getter     Getter
	logger     *slog.Logger
}

func New(cfg Config, getter Getter, logger *slog.Logger) *Source {
	return &Source{
		name:       cfg.Name,
		url:        cfg.URL,
		maxEntries: cfg.MaxEntries,
		getter:     getter,
		logger:     logger.With("source", cfg.Name, "kind", "web"),
	}
}

func (s *Source) Name() string {
	return cmp.Or(s.name, s.url)
}

func (s *Source) URL() string {
	return s.url
}

func (s *Source) Fetch(ctx context.Context) ([]domain.Entry, error) {
	base, err := url.Parse(s.url)
	if err != nil {
		return nil, &source.FetchError{Source: s.Name(), URL: s.url, Err: err}
	}

	data, err := s.getter.Get(ctx, s.url)
	if err != nil {
		return nil, &source.FetchError{Source: s.Name(), URL: s.url, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, &source.FetchError{Source: s.Name(), URL: s.url, Err: err}
	}

	seen := make(map[string]struct{})
	var entries []domain.Entry

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		link, ok := resolve(base, href)
		if !ok || !looksLikeArticle(link) {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		entries = append(entries, domain.Entry{
			URL:         link,
			Title:       strings.TrimSpace(a.Text()),
			SourceLabel: s.Name(),
		})
		return s.maxEntries <= 0 || len(entries) < s.maxEntries
	})

	s.logger.Debug("discovered article links", "entries", len(entries))

	return entries, nil
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

func looksLikeArticle(link string) bool {
	lower := strings.ToLower(link)
	for _, hint := range linkHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
