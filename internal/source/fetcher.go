// Package source holds the HTTP plumbing shared by feed and site sources.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxBodyBytes = 10 << 20

// FetchError reports a source that could not be fetched or parsed.
type FetchError struct {
	Source string
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type FetcherConfig struct {
	Timeout        time.Duration
	UserAgent      string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Fetcher performs GET requests with a per-request timeout and exponential backoff.
type Fetcher struct {
	httpClient     *http.Client
	userAgent      string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func NewFetcher(cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent:      cfg.UserAgent,
		maxAttempts:    attempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger,
	}
}

// Get returns the response body of url, retrying transient failures.
// 4xx responses other than 408 and 429 are not retried.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	var err error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		body, err = f.doRequest(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable(err) || attempt == f.maxAttempts {
			break
		}

		backoff := f.calculateBackoff(attempt)
		f.logger.Warn("request failed, retrying",
			"url", url,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if f.maxAttempts > 1 {
		return nil, fmt.Errorf("after %d attempts: %w", f.maxAttempts, err)
	}
	return nil, err
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.code)
}

func retryable(err error) bool {
	se, ok := err.(*statusError)
	if !ok {
		return true
	}
	return se.code >= 500 || se.code == http.StatusTooManyRequests || se.code == http.StatusRequestTimeout
}

func (f *Fetcher) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (f *Fetcher) calculateBackoff(attempt int) time.Duration {
	backoff := f.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if f.maxBackoff > 0 && backoff > f.maxBackoff {
		backoff = f.maxBackoff
	}
	return backoff
}
