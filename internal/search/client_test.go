package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingest/internal/domain"
	"news_ingest/testdata/utils"
)

type recordedRequest struct {
	method string
	path   string
	body   map[string]any
}

type fakeES struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	response string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	rec := recordedRequest{method: r.Method, path: r.URL.Path}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &rec.body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(f.response))
}

func (f *fakeES) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakeES) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "articles", nil)
	require.NoError(t, err)
	return c
}

func TestIndexArticle(t *testing.T) {
	fake := &fakeES{response: `{"result":"created"}`}
	c := newTestClient(t, fake)

	err := c.IndexArticle(context.Background(), &domain.Article{
		ID:           7,
		URL:          "https://tech.eu/a",
		Title:        "Robotics scaleup",
		Content:      "Body text",
		Summary:      utils.Ptr("Short"),
		Country:      utils.Ptr("Denmark"),
		Category:     "startups",
		QualityScore: 0.7,
		EURelevance:  utils.Ptr(9.0),
	})
	require.NoError(t, err)

	req := fake.last(t)
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/articles/_doc/7", req.path)
	assert.Equal(t, "Robotics scaleup", req.body["title"])
	assert.Equal(t, "Short", req.body["summary"])
	assert.Equal(t, "Denmark", req.body["country"])
	assert.NotContains(t, req.body, "eu_relevance")
}

func TestIndexArticle_ErrorResponse(t *testing.T) {
	fake := &fakeES{status: http.StatusBadRequest, response: `{"error":"mapper_parsing_exception"}`}
	c := newTestClient(t, fake)

	err := c.IndexArticle(context.Background(), &domain.Article{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestSearch(t *testing.T) {
	fake := &fakeES{response: `{
		"hits": {
			"total": {"value": 12},
			"hits": [
				{"_source": {"id": 3, "title": "EU AI Act vote", "category": "policy"}},
				{"_source": {"id": 5, "title": "Parliament debate", "category": "policy"}}
			]
		}
	}`}
	c := newTestClient(t, fake)

	res, err := c.Search(context.Background(), Params{Query: "ai act", Category: "policy", From: -4, Size: 500})
	require.NoError(t, err)

	assert.Equal(t, int64(12), res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(3), res.Items[0].ID)
	assert.Equal(t, "Parliament debate", res.Items[1].Title)

	req := fake.last(t)
	assert.Equal(t, "/articles/_search", req.path)
	assert.EqualValues(t, 0, req.body["from"])
	assert.EqualValues(t, maxSize, req.body["size"])

	raw, err := json.Marshal(req.body["query"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"multi_match"`)
	assert.Contains(t, string(raw), `"category":"policy"`)
}

func TestSearch_MatchAllWithoutQuery(t *testing.T) {
	fake := &fakeES{response: `{"hits":{"total":{"value":0},"hits":[]}}`}
	c := newTestClient(t, fake)

	res, err := c.Search(context.Background(), Params{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)

	req := fake.last(t)
	assert.EqualValues(t, defaultSize, req.body["size"])
	raw, err := json.Marshal(req.body["query"])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "match_all"))
}

func TestSearch_ErrorResponse(t *testing.T) {
	fake := &fakeES{status: http.StatusInternalServerError, response: `{"error":"index_not_found_exception"}`}
	c := newTestClient(t, fake)

	_, err := c.Search(context.Background(), Params{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
}

func TestPing(t *testing.T) {
	c := newTestClient(t, &fakeES{response: `{}`})
	assert.NoError(t, c.Ping(context.Background()))

	down := newTestClient(t, &fakeES{status: http.StatusServiceUnavailable, response: `{}`})
	assert.Error(t, down.Ping(context.Background()))
}
