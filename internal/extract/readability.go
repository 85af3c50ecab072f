// Package extract pulls readable article text out of web pages.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"news_ingest/internal/source"
	"news_ingest/internal/textclean"
)

// ExtractionError reports a page whose content could not be fetched or parsed.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Page is the readable content of one article page.
type Page struct {
	Title       string
	Content     string
	Excerpt     string
	PublishedAt *time.Time
	ImageURL    string
	Language    string
}

// Getter fetches raw documents.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Readability extracts pages with a readability port.
type Readability struct {
	getter Getter
}

func NewReadability(getter Getter) *Readability {
	return &Readability{getter: getter}
}

func (r *Readability) Extract(ctx context.Context, pageURL string) (*Page, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}

	data, err := r.getter.Get(ctx, pageURL)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}

	return Parse(data, parsed)
}

// Parse runs readability over an already fetched document.
func Parse(data []byte, pageURL *url.URL) (*Page, error) {
	if len(data) == 0 {
		return nil, &ExtractionError{URL: pageURL.String(), Err: fmt.Errorf("HTML data is empty")}
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL.String(), Err: err}
	}

	content := textclean.Clean(article.TextContent)
	if content == "" {
		return nil, &ExtractionError{URL: pageURL.String(), Err: fmt.Errorf("no content extracted")}
	}

	page := &Page{
		Title:    strings.TrimSpace(article.Title),
		Content:  content,
		Excerpt:  textclean.Clean(article.Excerpt),
		ImageURL: source.ValidImageURL(article.Image),
		Language: article.Language,
	}
	if article.PublishedTime != nil {
		published := article.PublishedTime.UTC()
		page.PublishedAt = &published
	}
	return page, nil
}
