package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"news_ingest/internal/domain"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes article and job events to one topic, keyed so that events of
// the same article or job land on the same partition.
type Kafka struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

func NewKafka(cfg KafkaConfig, logger *slog.Logger) *Kafka {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
	}

	logger.Info("kafka publisher configured", "brokers", cfg.Brokers, "topic", cfg.Topic)

	return &Kafka{writer: writer, topic: cfg.Topic, logger: logger}
}

func (k *Kafka) PublishArticle(ctx context.Context, article *domain.Article) error {
	env, err := articleEnvelope(article, time.Now())
	if err != nil {
		return err
	}
	if err := k.write(ctx, env); err != nil {
		return err
	}

	k.logger.Debug("published article", "id", article.ID, "topic", k.topic)
	return nil
}

func (k *Kafka) PublishJob(ctx context.Context, job *domain.Job) error {
	env, err := jobEnvelope(job, time.Now())
	if err != nil {
		return err
	}
	if err := k.write(ctx, env); err != nil {
		return err
	}

	k.logger.Debug("published job event", "job_id", job.ID, "status", job.Status)
	return nil
}

func (k *Kafka) write(ctx context.Context, env envelope) error {
	msg := kafka.Message{
		Key:   []byte(env.key),
		Value: env.body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(env.eventType)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: time.Now().UTC(),
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
