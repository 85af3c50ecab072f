package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"news_ingest/internal/domain"
)

type RabbitMQ struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	exchange      string
	routingKey    string
	jobRoutingKey string
	logger        *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

// jobRoutingKey derives the routing key of job events from the article key.
func jobRoutingKey(routingKey string) string {
	return routingKey + ".jobs"
}

// NewRabbitMQ connects and declares a durable direct exchange with one queue
// bound for both article and job events.
func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range []string{cfg.RoutingKey, jobRoutingKey(cfg.RoutingKey)} {
		if err := ch.QueueBind(q.Name, key, cfg.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:          conn,
		channel:       ch,
		exchange:      cfg.Exchange,
		routingKey:    cfg.RoutingKey,
		jobRoutingKey: jobRoutingKey(cfg.RoutingKey),
		logger:        logger,
	}, nil
}

func (r *RabbitMQ) PublishArticle(ctx context.Context, article *domain.Article) error {
	env, err := articleEnvelope(article, time.Now())
	if err != nil {
		return err
	}
	if err := r.publish(ctx, r.routingKey, env); err != nil {
		return err
	}

	r.logger.Debug("published article", "id", article.ID, "url", article.URL)
	return nil
}

func (r *RabbitMQ) PublishJob(ctx context.Context, job *domain.Job) error {
	env, err := jobEnvelope(job, time.Now())
	if err != nil {
		return err
	}
	if err := r.publish(ctx, r.jobRoutingKey, env); err != nil {
		return err
	}

	r.logger.Debug("published job event", "job_id", job.ID, "status", job.Status)
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, env envelope) error {
	err := r.channel.PublishWithContext(
		ctx,
		r.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         env.eventType,
			MessageId:    env.key,
			Body:         env.body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
