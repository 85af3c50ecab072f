package rss

import (
	"bytes"
	"cmp"
	"context"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"news_ingest/internal/domain"
	"news_ingest/internal/source"
)

type Config struct {
	Name       string
	URL        string
	MaxEntries int
}

// Getter fetches raw documents.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Source reads entries from an RSS or Atom feed.
type Source struct {
	name       string
	url        string
	maxEntries int
	getter     Getter
	parser     *gofeed.Parser
	logger     *slog.Logger
}

func New(cfg Config, getter Getter, logger *slog.Logger) *Source {
	return &Source{
		name:       cfg.Name,
		url:        cfg.URL,
		maxEntries: cfg.MaxEntries,
		getter:     getter,
		parser:     gofeed.NewParser(),
		logger:     logger.With("source", cfg.Name, "kind", "rss"),
	}
}

// Name returns the configured canonical name, or the feed URL when unnamed.
func (s *Source) Name() string {
	return cmp.Or(s.name, s.url)
}

func (s *Source) URL() string {
	return s.url
}

func (s *Source) Fetch(ctx context.Context) ([]domain.Entry, error) {
	data, err := s.getter.Get(ctx, s.url)
	if err != nil {
		return nil, &source.FetchError{Source: s.Name(), URL: s.url, Err: err}
	}

	feed, err := s.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &source.FetchError{Source: s.Name(), URL: s.url, Err: err}
	}

	items := feed.Items
	if s.maxEntries > 0 && len(items) > s.maxEntries {
		items = items[:s.maxEntries]
	}

	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, s.normalizeItem(feed, item))
	}

	s.logger.Debug("fetched feed",
		"feed_title", feed.Title,
		"items", len(feed.Items),
		"entries", len(entries),
	)

	return entries, nil
}

func (s *Source) normalizeItem(feed *gofeed.Feed, item *gofeed.Item) domain.Entry {
	entry := domain.Entry{
		URL:         strings.TrimSpace(item.Link),
		Title:       strings.TrimSpace(item.Title),
		Content:     item.Content,
		Summary:     item.Description,
		SourceLabel: cmp.Or(s.name, feed.Title, s.url),
		ImageURL:    imageURL(item),
	}

	if entry.URL == "" {
		entry.URL = strings.TrimSpace(item.GUID)
	}

	switch {
	case item.PublishedParsed != nil:
		published := item.PublishedParsed.UTC()
		entry.PublishedAt = &published
	case item.UpdatedParsed != nil:
		updated := item.UpdatedParsed.UTC()
		entry.PublishedAt = &updated
	}

	return entry
}

func imageURL(item *gofeed.Item) string {
	if item.Image != nil {
		if u := source.ValidImageURL(item.Image.URL); u != "" {
			return u
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, ext := range media["content"] {
			if u := source.ValidImageURL(ext.Attrs["url"]); u != "" {
				return u
			}
		}
	}

	for _, enc := range item.Enclosures {
		if enc == nil || !strings.HasPrefix(enc.Type, "image/") {
			continue
		}
		if u := source.ValidImageURL(enc.URL); u != "" {
			return u
		}
	}
	return ""
}
