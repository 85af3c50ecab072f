package web

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingest/internal/source"
)

type staticGetter struct {
	body []byte
	err  error
}

func (g staticGetter) Get(context.Context, string) ([]byte, error) {
	return g.body, g.err
}

const listingHTML = `<html><body>
<nav><a href="/about">About</a><a href="#top">Top</a></nav>
<a href="/news/eu-ai-act">EU AI Act passes</a>
<a href="https://other.example.org/blog/funding">Funding round</a>
<a href="/news/eu-ai-act#comments">Comments</a>
<a href="mailto:editor@example.com">Mail news desk</a>
<a href="javascript:void(0)">news</a>
<a href="/article/chips">Chip fab</a>
</body></html>`

func newSource(maxEntries int, g Getter) *Source {
	return New(Config{Name: "Example", URL: "https://example.com/tech/", MaxEntries: maxEntries}, g,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSource_FetchDiscoversArticleLinks(t *testing.T) {
	entries, err := newSource(0, staticGetter{body: []byte(listingHTML)}).Fetch(context.Background())
	require.NoError(t, err)

	var urls []string
	for _, e := range entries {
		urls = append(urls, e.URL)
		assert.Equal(t, "Example", e.SourceLabel)
		assert.Empty(t, e.Content)
	}
	assert.Equal(t, []string{
		"https://example.com/news/eu-ai-act",
		"https://other.example.org/blog/funding",
		"https://example.com/article/chips",
	}, urls)
	assert.Equal(t, "EU AI Act passes", entries[0].Title)
}

func TestSource_FetchRespectsMaxEntries(t *testing.T) {
	entries, err := newSource(1, staticGetter{body: []byte(listingHTML)}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSource_FetchError(t *testing.T) {
	_, err := newSource(0, staticGetter{err: io.ErrUnexpectedEOF}).Fetch(context.Background())
	var fe *source.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "https://example.com/tech/", fe.URL)
}
