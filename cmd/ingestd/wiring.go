package main

import (
	"context"
	"fmt"
	"log/slog"

	"news_ingest/internal/budget"
	"news_ingest/internal/classifier"
	"news_ingest/internal/config"
	"news_ingest/internal/domain"
	"news_ingest/internal/extract"
	"news_ingest/internal/llm"
	"news_ingest/internal/publisher"
	"news_ingest/internal/quality"
	"news_ingest/internal/search"
	"news_ingest/internal/service"
	"news_ingest/internal/source"
	"news_ingest/internal/source/rss"
	"news_ingest/internal/source/web"
)

type eventPublisher interface {
	PublishArticle(ctx context.Context, article *domain.Article) error
	PublishJob(ctx context.Context, job *domain.Job) error
	Close() error
}

func newFetcher(cfg config.IngestConfig, logger *slog.Logger) *source.Fetcher {
	return source.NewFetcher(source.FetcherConfig{
		Timeout:        cfg.RequestTimeout,
		UserAgent:      cfg.UserAgent,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
	}, logger)
}

func buildSources(cfg config.IngestConfig, logger *slog.Logger) []service.Source {
	fetcher := newFetcher(cfg, logger)

	sources := make([]service.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		switch sc.Kind {
		case "web":
			sources = append(sources, web.New(web.Config{
				Name:       sc.Name,
				URL:        sc.URL,
				MaxEntries: sc.MaxEntries,
			}, fetcher, logger))
		default:
			sources = append(sources, rss.New(rss.Config{
				Name:       sc.Name,
				URL:        sc.URL,
				MaxEntries: sc.MaxEntries,
			}, fetcher, logger))
		}
	}
	return sources
}

// buildExtractor makes a single attempt per page.
func buildExtractor(cfg config.IngestConfig, logger *slog.Logger) *extract.Readability {
	cfg.Retry.MaxAttempts = 1
	return extract.NewReadability(newFetcher(cfg, logger))
}

func buildModel(cfg config.ClassifierConfig, categories []string) classifier.Strategy {
	if cfg.Mode == config.ModeDisabled {
		return nil
	}
	client := llm.NewClient(llm.Config{
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	})
	return classifier.NewModel(client, domain.Categories(categories))
}

func buildScorer(cfg config.QualityConfig) *quality.Scorer {
	return quality.NewScorer(cfg.Tier1Sources, cfg.Tier2Sources)
}

func pipelineConfig(cfg *config.Config) service.PipelineConfig {
	return service.PipelineConfig{
		Categories:       domain.Categories(cfg.Ingest.Categories),
		QualityThreshold: cfg.Ingest.QualityThreshold,
		MaxAge:           cfg.Ingest.MaxAge(),
		DefaultLanguage:  cfg.Ingest.DefaultLanguage,
		Concurrency:      cfg.Ingest.Concurrency,
		RateLimitDelay:   cfg.Ingest.RateLimitDelay,
		ClassifierMode:   classifier.Mode(cfg.Classifier.Mode),
		Budget: budget.Config{
			CostCeiling:      cfg.Classifier.CostCeiling,
			FailureThreshold: cfg.Classifier.FailureThreshold,
			CoolDown:         cfg.Classifier.CoolDown,
		},
	}
}

// newEventPublisher returns nil when events are disabled.
func newEventPublisher(cfg config.EventsConfig, logger *slog.Logger) (eventPublisher, error) {
	switch cfg.Driver {
	case "rabbitmq":
		pub, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			return nil, err
		}
		return pub, nil
	case "kafka":
		return publisher.NewKafka(publisher.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// newSearchClient returns nil when search is disabled. An unreachable cluster
// is logged, not fatal; indexing is best effort.
func newSearchClient(ctx context.Context, cfg config.SearchConfig, logger *slog.Logger) (*search.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := search.New(cfg.Address, cfg.Index, logger)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		logger.Warn("elasticsearch not reachable at start-up", "address", cfg.Address, "error", err)
	}
	return client, nil
}
