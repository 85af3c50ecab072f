// Package search mirrors stored articles into Elasticsearch and serves
// full-text queries over them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"news_ingest/internal/domain"
)

const (
	defaultSize = 20
	maxSize     = 100
)

type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// Document is the indexed projection of an article.
type Document struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary,omitempty"`
	Content       string     `json:"content"`
	Source        string     `json:"source"`
	Category      string     `json:"category"`
	Country       string     `json:"country,omitempty"`
	Language      string     `json:"language"`
	QualityScore  float64    `json:"quality_score"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	ScrapedAt     time.Time  `json:"scraped_at"`
}

type Params struct {
	Query    string
	Category string
	From     int
	Size     int
}

type Result struct {
	Total int64      `json:"total"`
	Items []Document `json:"items"`
}

func New(addr, index string, logger *slog.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, index: index, log: logger}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

func toDocument(a *domain.Article) Document {
	doc := Document{
		ID:            a.ID,
		URL:           a.URL,
		Title:         a.Title,
		Content:       a.Content,
		Source:        a.Source,
		Category:      a.Category,
		Language:      a.Language,
		QualityScore:  a.QualityScore,
		PublishedDate: a.PublishedDate,
		ScrapedAt:     a.ScrapedAt,
	}
	if a.Summary != nil {
		doc.Summary = *a.Summary
	}
	if a.Country != nil {
		doc.Country = *a.Country
	}
	return doc
}

// IndexArticle upserts the article under its store id.
func (c *Client) IndexArticle(ctx context.Context, article *domain.Article) error {
	payload, err := json.Marshal(toDocument(article))
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: strconv.FormatInt(article.ID, 10),
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index doc failed: %s", strings.TrimSpace(string(body)))
	}

	c.log.Debug("indexed article", "id", article.ID, "index", c.index)
	return nil
}

func buildQuery(params Params) map[string]any {
	boolQuery := map[string]any{}

	if params.Query != "" {
		boolQuery["must"] = []map[string]any{{
			"multi_match": map[string]any{
				"query":  params.Query,
				"fields": []string{"title^2", "summary", "content"},
			},
		}}
	} else {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}

	if params.Category != "" {
		boolQuery["filter"] = []map[string]any{{
			"term": map[string]any{"category": params.Category},
		}}
	}

	return map[string]any{
		"from":             params.From,
		"size":             params.Size,
		"track_total_hits": true,
		"query":            map[string]any{"bool": boolQuery},
		"sort": []map[string]any{
			{"_score": map[string]any{"order": "desc"}},
			{"scraped_at": map[string]any{"order": "desc"}},
		},
	}
}

func (c *Client) Search(ctx context.Context, params Params) (*Result, error) {
	if params.Size <= 0 {
		params.Size = defaultSize
	}
	params.Size = min(params.Size, maxSize)
	params.From = max(params.From, 0)

	payload, err := json.Marshal(buildQuery(params))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		items = append(items, hit.Source)
	}

	return &Result{Total: parsed.Hits.Total.Value, Items: items}, nil
}
