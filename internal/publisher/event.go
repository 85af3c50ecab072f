package publisher

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"news_ingest/internal/domain"
)

const (
	EventArticleStored = "article.stored"
	eventJobPrefix     = "job."
)

// ArticleEvent announces a newly stored article.
type ArticleEvent struct {
	Type      string         `json:"type"`
	Article   domain.Article `json:"article"`
	Timestamp time.Time      `json:"timestamp"`
}

// JobEvent announces that a job reached a new status.
type JobEvent struct {
	Type      string     `json:"type"`
	Job       domain.Job `json:"job"`
	Timestamp time.Time  `json:"timestamp"`
}

type envelope struct {
	eventType string
	key       string
	body      []byte
}

func articleEnvelope(article *domain.Article, now time.Time) (envelope, error) {
	body, err := json.Marshal(ArticleEvent{
		Type:      EventArticleStored,
		Article:   *article,
		Timestamp: now.UTC(),
	})
	if err != nil {
		return envelope{}, fmt.Errorf("marshal article event: %w", err)
	}
	return envelope{
		eventType: EventArticleStored,
		key:       strconv.FormatInt(article.ID, 10),
		body:      body,
	}, nil
}

func jobEnvelope(job *domain.Job, now time.Time) (envelope, error) {
	eventType := eventJobPrefix + string(job.Status)
	body, err := json.Marshal(JobEvent{
		Type:      eventType,
		Job:       *job,
		Timestamp: now.UTC(),
	})
	if err != nil {
		return envelope{}, fmt.Errorf("marshal job event: %w", err)
	}
	return envelope{eventType: eventType, key: job.ID, body: body}, nil
}
