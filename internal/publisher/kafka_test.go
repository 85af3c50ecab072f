package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingest/internal/domain"
	"news_ingest/testdata/utils"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func newTestKafka(w messageWriter) *Kafka {
	return &Kafka{writer: w, topic: "articles", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafka_PublishArticle(t *testing.T) {
	w := &recordingWriter{}
	k := newTestKafka(w)

	article := &domain.Article{
		ID:          17,
		URL:         "https://sifted.eu/a",
		Title:       "Seed round",
		Category:    "startups",
		EURelevance: utils.Ptr(8.0),
	}
	require.NoError(t, k.PublishArticle(context.Background(), article))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "17", string(msg.Key))
	assert.Equal(t, EventArticleStored, header(msg, "type"))

	var event ArticleEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventArticleStored, event.Type)
	assert.Equal(t, int64(17), event.Article.ID)
	assert.Equal(t, "startups", event.Article.Category)
	assert.NotContains(t, string(msg.Value), "eu_relevance")
}

func TestKafka_PublishJob(t *testing.T) {
	w := &recordingWriter{}
	k := newTestKafka(w)

	job := &domain.Job{ID: "0b4f", Status: domain.JobCompleted, ResultCount: utils.Ptr(3)}
	require.NoError(t, k.PublishJob(context.Background(), job))
	require.Len(t, w.msgs, 1)

	assert.Equal(t, "0b4f", string(w.msgs[0].Key))
	assert.Equal(t, "job.completed", header(w.msgs[0], "type"))

	var event JobEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, domain.JobCompleted, event.Job.Status)
	assert.Equal(t, 3, *event.Job.ResultCount)
}

func TestKafka_WriteError(t *testing.T) {
	k := newTestKafka(&recordingWriter{err: errors.New("leader not available")})

	err := k.PublishArticle(context.Background(), &domain.Article{ID: 1})
	assert.ErrorContains(t, err, "write kafka message")
}

func TestKafka_Close(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, newTestKafka(w).Close())
	assert.True(t, w.closed)
}
